package models

// AssetType classifies an asset by its broad media kind. It is derived from
// the mime type at upload time, never chosen by the caller.
type AssetType string

const (
	AssetTypeImage    AssetType = "image"
	AssetTypeVideo    AssetType = "video"
	AssetTypeDocument AssetType = "document"
)

// AssetStatus tracks the two-phase upload: a record is created as pending,
// and flipped to committed only after its blob is durably on disk. Rows stuck
// in pending past a grace period are swept by the reconciler.
type AssetStatus string

const (
	AssetStatusPending   AssetStatus = "pending"
	AssetStatusCommitted AssetStatus = "committed"
)

// Asset represents one stored media item. It corresponds to the 'assets' table.
type Asset struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName    string      `gorm:"not null;uniqueIndex" json:"file_name"` // store-relative, server-generated
	MimeType    string      `gorm:"not null" json:"mime_type"`
	AssetType   AssetType   `gorm:"not null;index" json:"asset_type"`
	Description *string     `gorm:"" json:"description,omitempty"` // Nullable
	IsPublished bool        `gorm:"not null;default:false" json:"is_published"`
	Status      AssetStatus `gorm:"not null;default:pending;index" json:"-"`

	// best-effort image metadata, filled by the thumbnail worker
	Width   *int   `gorm:"" json:"width,omitempty"`         // Nullable
	Height  *int   `gorm:"" json:"height,omitempty"`        // Nullable
	TakenAt *int64 `gorm:"index" json:"taken_at,omitempty"` // Nullable, Unix timestamp

	ThumbnailPath        *string `gorm:"" json:"thumbnail_path,omitempty"` // Nullable, store-relative
	ThumbnailProcessedAt *int64  `gorm:"" json:"-"`                        // Nullable, Unix timestamp
	ThumbnailError       *string `gorm:"" json:"-"`                        // Nullable

	DateID *uint      `gorm:"index" json:"-"`
	Date   *AssetDate `gorm:"foreignKey:DateID" json:"date,omitempty"`
	Tags   []Tag      `gorm:"many2many:asset_tags;constraint:OnDelete:CASCADE" json:"tags,omitempty"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Asset) TableName() string {
	return "assets"
}
