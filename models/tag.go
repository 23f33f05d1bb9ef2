package models

// Tag is a named label with an independent lifecycle, attached to assets via
// the asset_tags join table. Deleting a tag cascades the join rows only.
type Tag struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"not null;uniqueIndex" json:"name"`
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Tag) TableName() string {
	return "tags"
}
