package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/models"
)

// TimelineRepository handles database operations for TimelineRange entities.
type TimelineRepository struct {
	DB *gorm.DB
}

// NewTimelineRepository creates a new instance of TimelineRepository.
func NewTimelineRepository(db *gorm.DB) *TimelineRepository {
	return &TimelineRepository{DB: db}
}

// Create inserts a new timeline range.
func (r *TimelineRepository) Create(tr *models.TimelineRange) error {
	if tr.DateMax.Before(tr.DateMin) {
		return fmt.Errorf("timeline range date_min is after date_max")
	}
	now := time.Now().Unix()
	tr.CreatedAt = now
	tr.UpdatedAt = now

	if err := r.DB.Create(tr).Error; err != nil {
		return fmt.Errorf("failed to create timeline range: %w", err)
	}
	return nil
}

// GetByID retrieves a timeline range with its cover asset preloaded.
func (r *TimelineRepository) GetByID(id uint) (*models.TimelineRange, error) {
	var tr models.TimelineRange
	err := r.DB.Preload("CoverAsset").First(&tr, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get timeline range %d: %w", id, err)
	}
	return &tr, nil
}

// ListAll retrieves every timeline range ordered chronologically.
func (r *TimelineRepository) ListAll() ([]models.TimelineRange, error) {
	var ranges []models.TimelineRange
	err := r.DB.Preload("CoverAsset").Order("date_min ASC").Find(&ranges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline ranges: %w", err)
	}
	return ranges, nil
}

// Update replaces the mutable fields of a timeline range.
func (r *TimelineRepository) Update(id uint, dateMin, dateMax time.Time, caption *string, coverAssetID *uint) error {
	if dateMax.Before(dateMin) {
		return fmt.Errorf("timeline range date_min is after date_max")
	}

	updates := map[string]interface{}{
		"date_min":   dateMin,
		"date_max":   dateMax,
		"caption":    caption,
		"updated_at": time.Now().Unix(),
	}
	if coverAssetID == nil {
		updates["cover_asset_id"] = gorm.Expr("NULL")
	} else {
		updates["cover_asset_id"] = *coverAssetID
	}

	result := r.DB.Model(&models.TimelineRange{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update timeline range %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a timeline range.
func (r *TimelineRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.TimelineRange{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete timeline range %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
