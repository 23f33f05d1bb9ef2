package models

import "time"

// TimelineRange is a curated date bucket shown on the public timeline, with
// an optional caption and an optional cover asset. The cover reference is
// cleared by the database when the asset is deleted.
type TimelineRange struct {
	ID      uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DateMin time.Time `gorm:"not null" json:"date_min"`
	DateMax time.Time `gorm:"not null" json:"date_max"`
	Caption *string   `gorm:"" json:"caption,omitempty"` // Nullable

	CoverAssetID *uint  `gorm:"" json:"cover_asset_id,omitempty"`
	CoverAsset   *Asset `gorm:"foreignKey:CoverAssetID;constraint:OnDelete:SET NULL" json:"cover_asset,omitempty"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (TimelineRange) TableName() string {
	return "timeline_ranges"
}
