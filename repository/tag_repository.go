package repository

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/facette/natsort"
	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/models"
)

// TagRepository handles database operations for Tag entities.
type TagRepository struct {
	DB *gorm.DB
}

// NewTagRepository creates a new instance of TagRepository.
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{DB: db}
}

// Create inserts a new tag; names are unique.
func (r *TagRepository) Create(tag *models.Tag) error {
	if tag.CreatedAt == 0 {
		tag.CreatedAt = time.Now().Unix()
	}
	if err := r.DB.Create(tag).Error; err != nil {
		return fmt.Errorf("failed to create tag %s: %w", tag.Name, err)
	}
	return nil
}

// GetByID retrieves a tag by its ID.
func (r *TagRepository) GetByID(id uint) (*models.Tag, error) {
	var tag models.Tag
	err := r.DB.First(&tag, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tag by ID %d: %w", id, err)
	}
	return &tag, nil
}

// ListAll retrieves every tag in natural name order, so "Klasa 2" sorts
// before "Klasa 10".
func (r *TagRepository) ListAll() ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.DB.Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	sort.Slice(tags, func(i, j int) bool {
		return natsort.Compare(tags[i].Name, tags[j].Name)
	})
	return tags, nil
}

// CountExisting reports how many of the given tag ids actually exist.
func (r *TagRepository) CountExisting(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.DB.Model(&models.Tag{}).Where("id IN ?", ids).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tags: %w", err)
	}
	return count, nil
}

// Delete removes a tag; its join rows cascade away with it.
func (r *TagRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Tag{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete tag %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
