package repository

import (
	"time"

	"github.com/izba-pamieci/izbabackend/media"
	"github.com/izba-pamieci/izbabackend/models"
)

// AssetRepositoryInterface defines the methods for asset data operations
type AssetRepositoryInterface interface {
	GetByID(id uint) (*models.Asset, error)
	GetByIDs(ids []uint) ([]models.Asset, error)
	GetAll(opts *AssetQueryOptions) ([]models.Asset, error)
	GetRandom(n int, filters *AssetFilters) ([]models.Asset, error)
	GetCount(filters *AssetFilters) (int64, error)
	GetStats(filters *AssetFilters) (*AssetStats, error)
	Create(asset *models.Asset) error
	Update(id uint, upd AssetUpdate) error
	UpdateMany(ids []uint, upd AssetUpdate) error
	Delete(id uint) error
	DeleteMany(ids []uint) (int64, error)
	MarkCommitted(id uint) error
	SetThumbnailResult(id uint, thumbPath *string, meta *media.ImageMetadata, taskErr error) error
	DeleteStalePending(grace time.Duration) ([]models.Asset, error)
}

// TagRepositoryInterface defines the methods for tag data operations
type TagRepositoryInterface interface {
	Create(tag *models.Tag) error
	GetByID(id uint) (*models.Tag, error)
	ListAll() ([]models.Tag, error)
	CountExisting(ids []uint) (int64, error)
	Delete(id uint) error
}

// TimelineRepositoryInterface defines the methods for timeline range data operations
type TimelineRepositoryInterface interface {
	Create(tr *models.TimelineRange) error
	GetByID(id uint) (*models.TimelineRange, error)
	ListAll() ([]models.TimelineRange, error)
	Update(id uint, dateMin, dateMax time.Time, caption *string, coverAssetID *uint) error
	Delete(id uint) error
}

// UserRepositoryInterface defines the methods for staff account operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	EnsureAdmin(username, password string) error
}
