package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/izba-pamieci/izbabackend/media"
	"github.com/izba-pamieci/izbabackend/models"
)

// DateUpdate is the tri-state date payload of an asset update: a nil
// *DateUpdate leaves the date untouched, Clear removes it, otherwise Date
// replaces it.
type DateUpdate struct {
	Clear bool
	Date  *models.AssetDate
}

// AssetUpdate carries the optional sub-operations of an asset update. Nil
// members are untouched. An empty description string clears the column; an
// empty TagIDs slice removes every tag.
type AssetUpdate struct {
	Description *string
	IsPublished *bool
	MimeType    *string
	AssetType   *models.AssetType
	Date        *DateUpdate
	TagIDs      *[]uint
}

// AssetStats summarizes the filtered asset set for the dashboard.
type AssetStats struct {
	Total     int64                      `json:"total"`
	Published int64                      `json:"published"`
	ByType    map[models.AssetType]int64 `json:"by_type"`
}

// AssetRepository handles database operations for Asset entities and their
// owned date rows and tag associations.
type AssetRepository struct {
	DB *gorm.DB
}

// NewAssetRepository creates a new instance of AssetRepository.
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{DB: db}
}

// GetByID retrieves one asset with its date and tags preloaded.
func (r *AssetRepository) GetByID(id uint) (*models.Asset, error) {
	var asset models.Asset
	err := r.DB.Preload("Date").Preload("Tags").First(&asset, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get asset by ID %d: %w", id, err)
	}
	return &asset, nil
}

// GetByIDs retrieves multiple assets by id; missing ids are silently skipped.
func (r *AssetRepository) GetByIDs(ids []uint) ([]models.Asset, error) {
	if len(ids) == 0 {
		return []models.Asset{}, nil
	}
	var assets []models.Asset
	err := r.DB.Preload("Date").Preload("Tags").Where("id IN ?", ids).Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assets by IDs: %w", err)
	}
	return assets, nil
}

func (r *AssetRepository) filteredQuery(f *AssetFilters) (*gorm.DB, error) {
	q := r.DB.Model(&models.Asset{}).Preload("Date").Preload("Tags")
	return applyAssetConditions(q, f)
}

// GetAll retrieves assets matching the options, filtered, sorted, paginated.
func (r *AssetRepository) GetAll(opts *AssetQueryOptions) ([]models.Asset, error) {
	if opts == nil {
		opts = &AssetQueryOptions{}
	}

	q, err := r.filteredQuery(opts.Filters)
	if err != nil {
		return nil, err
	}

	order, err := orderClause(opts.Sorting)
	if err != nil {
		return nil, err
	}
	q = applyPagination(q.Order(order), opts.Pagination)

	var assets []models.Asset
	if err := q.Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

// GetRandom retrieves up to n random assets matching the filters.
func (r *AssetRepository) GetRandom(n int, f *AssetFilters) ([]models.Asset, error) {
	if n <= 0 {
		return []models.Asset{}, nil
	}

	q, err := r.filteredQuery(f)
	if err != nil {
		return nil, err
	}

	var assets []models.Asset
	if err := q.Order("RANDOM()").Limit(n).Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to pick random assets: %w", err)
	}
	return assets, nil
}

// GetCount counts assets matching the filters.
func (r *AssetRepository) GetCount(f *AssetFilters) (int64, error) {
	q := r.DB.Model(&models.Asset{})
	q, err := applyAssetConditions(q, f)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return count, nil
}

// GetStats aggregates per-type and published counts over the filtered set.
func (r *AssetRepository) GetStats(f *AssetFilters) (*AssetStats, error) {
	builder := psql.Select(
		"assets.asset_type AS asset_type",
		"COUNT(*) AS total",
		"SUM(CASE WHEN assets.is_published THEN 1 ELSE 0 END) AS published",
	).From("assets").GroupBy("assets.asset_type")

	for _, cond := range buildAssetConditions(f) {
		builder = builder.Where(cond)
	}

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build asset stats query: %w", err)
	}

	var rows []struct {
		AssetType models.AssetType
		Total     int64
		Published int64
	}
	if err := r.DB.Raw(sqlStr, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query asset stats: %w", err)
	}

	stats := &AssetStats{ByType: make(map[models.AssetType]int64)}
	for _, row := range rows {
		stats.Total += row.Total
		stats.Published += row.Published
		stats.ByType[row.AssetType] = row.Total
	}
	return stats, nil
}

// Create inserts an asset and, when present, its date row in one transaction.
// The date row is inserted first so its generated id can be linked; a failed
// date insert rolls back the whole transaction and no asset row remains.
func (r *AssetRepository) Create(asset *models.Asset) error {
	now := time.Now().Unix()
	if asset.CreatedAt == 0 {
		asset.CreatedAt = now
	}
	if asset.UpdatedAt == 0 {
		asset.UpdatedAt = now
	}
	if asset.Status == "" {
		asset.Status = models.AssetStatusPending
	}

	return r.DB.Transaction(func(tx *gorm.DB) error {
		if asset.Date != nil {
			if err := asset.Date.Normalize(); err != nil {
				return fmt.Errorf("invalid asset date: %w", err)
			}
			if err := tx.Create(asset.Date).Error; err != nil {
				return fmt.Errorf("failed to create asset date: %w", err)
			}
			asset.DateID = &asset.Date.ID
		}

		if err := tx.Omit(clause.Associations).Create(asset).Error; err != nil {
			return fmt.Errorf("failed to create asset %s: %w", asset.FileName, err)
		}
		return nil
	})
}

// Update applies one update payload to one asset in its own transaction.
func (r *AssetRepository) Update(id uint, upd AssetUpdate) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return updateAssetTx(tx, id, upd)
	})
}

// UpdateMany applies the same payload to every id inside a single outer
// transaction: a failure at any id rolls back the whole batch.
func (r *AssetRepository) UpdateMany(ids []uint, upd AssetUpdate) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := updateAssetTx(tx, id, upd); err != nil {
				return err
			}
		}
		return nil
	})
}

// updateAssetTx runs the three optional sub-operations of an asset update:
// date sub-record, tag associations, then scalar fields. Scalars are written
// only when something actually changed.
func updateAssetTx(tx *gorm.DB, id uint, upd AssetUpdate) error {
	var asset models.Asset
	if err := tx.First(&asset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("failed to load asset %d for update: %w", id, err)
	}

	updates := map[string]interface{}{}

	if upd.Date != nil {
		if err := applyDateUpdate(tx, &asset, upd.Date, updates); err != nil {
			return err
		}
	}

	if upd.TagIDs != nil {
		if err := reconcileTags(tx, id, *upd.TagIDs); err != nil {
			return err
		}
	}

	if upd.Description != nil {
		if *upd.Description == "" { // allow clearing the description
			updates["description"] = gorm.Expr("NULL")
		} else {
			updates["description"] = *upd.Description
		}
	}
	if upd.IsPublished != nil {
		updates["is_published"] = *upd.IsPublished
	}
	if upd.MimeType != nil {
		updates["mime_type"] = *upd.MimeType
	}
	if upd.AssetType != nil {
		updates["asset_type"] = *upd.AssetType
	}

	// skip the write entirely when neither a scalar nor the resolved date id changed
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().Unix()

	if err := tx.Model(&models.Asset{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update asset %d: %w", id, err)
	}
	return nil
}

// applyDateUpdate updates, inserts, or deletes the asset's owned date row.
func applyDateUpdate(tx *gorm.DB, asset *models.Asset, du *DateUpdate, updates map[string]interface{}) error {
	if du.Clear {
		if asset.DateID == nil {
			return nil
		}
		if err := tx.Delete(&models.AssetDate{}, *asset.DateID).Error; err != nil {
			return fmt.Errorf("failed to delete date for asset %d: %w", asset.ID, err)
		}
		updates["date_id"] = gorm.Expr("NULL")
		return nil
	}

	if du.Date == nil {
		return nil
	}
	date := *du.Date
	if err := date.Normalize(); err != nil {
		return fmt.Errorf("invalid date for asset %d: %w", asset.ID, err)
	}

	if asset.DateID != nil {
		err := tx.Model(&models.AssetDate{}).Where("id = ?", *asset.DateID).Updates(map[string]interface{}{
			"date_min":       date.DateMin,
			"date_max":       date.DateMax,
			"date_precision": date.DatePrecision,
			"date_is_range":  date.DateIsRange,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update date for asset %d: %w", asset.ID, err)
		}
		return nil
	}

	date.ID = 0
	if err := tx.Create(&date).Error; err != nil {
		return fmt.Errorf("failed to create date for asset %d: %w", asset.ID, err)
	}
	updates["date_id"] = date.ID
	return nil
}

// reconcileTags diffs the join rows against the wanted tag set: rows outside
// the set are removed, missing ones inserted. Re-adding an existing tag is a
// no-op, not an error.
func reconcileTags(tx *gorm.DB, assetID uint, tagIDs []uint) error {
	want := make([]uint, 0, len(tagIDs))
	seen := make(map[uint]bool, len(tagIDs))
	for _, id := range tagIDs {
		if !seen[id] {
			seen[id] = true
			want = append(want, id)
		}
	}

	if len(want) == 0 {
		if err := tx.Exec("DELETE FROM asset_tags WHERE asset_id = ?", assetID).Error; err != nil {
			return fmt.Errorf("failed to clear tags for asset %d: %w", assetID, err)
		}
		return nil
	}

	if err := tx.Exec("DELETE FROM asset_tags WHERE asset_id = ? AND tag_id NOT IN ?", assetID, want).Error; err != nil {
		return fmt.Errorf("failed to remove stale tags for asset %d: %w", assetID, err)
	}

	var existing []uint
	if err := tx.Raw("SELECT tag_id FROM asset_tags WHERE asset_id = ?", assetID).Scan(&existing).Error; err != nil {
		return fmt.Errorf("failed to load tags for asset %d: %w", assetID, err)
	}
	has := make(map[uint]bool, len(existing))
	for _, id := range existing {
		has[id] = true
	}

	for _, tagID := range want {
		if has[tagID] {
			continue
		}
		if err := tx.Exec("INSERT INTO asset_tags (asset_id, tag_id) VALUES (?, ?)", assetID, tagID).Error; err != nil {
			return fmt.Errorf("failed to tag asset %d with tag %d: %w", assetID, tagID, err)
		}
	}
	return nil
}

// Delete removes one asset and its orphaned date row in one transaction.
// Tag join rows are removed by the database cascade, not explicit code.
func (r *AssetRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		deleted, err := deleteAssetsTx(tx, []uint{id})
		if err != nil {
			return err
		}
		if deleted == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteMany removes multiple assets and their orphaned date rows in one
// transaction; missing ids are not an error.
func (r *AssetRepository) DeleteMany(ids []uint) (int64, error) {
	var deleted int64
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = deleteAssetsTx(tx, ids)
		return err
	})
	return deleted, err
}

func deleteAssetsTx(tx *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	// collect owned date rows before the asset rows disappear
	var dateIDs []uint
	err := tx.Model(&models.Asset{}).
		Where("id IN ? AND date_id IS NOT NULL", ids).
		Pluck("date_id", &dateIDs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to collect date rows for assets %v: %w", ids, err)
	}

	result := tx.Delete(&models.Asset{}, ids)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete assets %v: %w", ids, result.Error)
	}

	if len(dateIDs) > 0 {
		if err := tx.Delete(&models.AssetDate{}, dateIDs).Error; err != nil {
			return 0, fmt.Errorf("failed to delete orphaned date rows %v: %w", dateIDs, err)
		}
	}

	return result.RowsAffected, nil
}

// MarkCommitted flips a pending asset to committed once its blob is durable.
func (r *AssetRepository) MarkCommitted(id uint) error {
	result := r.DB.Model(&models.Asset{}).Where("id = ?", id).
		Update("status", models.AssetStatusCommitted)
	if result.Error != nil {
		return fmt.Errorf("failed to mark asset %d committed: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetThumbnailResult records the outcome of a thumbnail job, plus any image
// metadata extracted along the way.
func (r *AssetRepository) SetThumbnailResult(id uint, thumbPath *string, meta *media.ImageMetadata, taskErr error) error {
	now := time.Now().Unix()
	updates := map[string]interface{}{
		"thumbnail_path":         thumbPath,
		"thumbnail_processed_at": now,
		"thumbnail_error":        gorm.Expr("NULL"),
	}
	if taskErr != nil {
		updates["thumbnail_error"] = taskErr.Error()
	}
	if meta != nil {
		updates["width"] = meta.Width
		updates["height"] = meta.Height
		updates["taken_at"] = meta.TakenAt
	}

	err := r.DB.Model(&models.Asset{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to record thumbnail result for asset %d: %w", id, err)
	}
	return nil
}

// DeleteStalePending removes assets stuck in pending status past the grace
// period and returns the removed records so blobs can be cleaned up too.
func (r *AssetRepository) DeleteStalePending(grace time.Duration) ([]models.Asset, error) {
	cutoff := time.Now().Add(-grace).Unix()

	var stale []models.Asset
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("status = ? AND created_at < ?", models.AssetStatusPending, cutoff).
			Find(&stale).Error
		if err != nil {
			return fmt.Errorf("failed to find stale pending assets: %w", err)
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]uint, len(stale))
		for i, a := range stale {
			ids[i] = a.ID
		}
		_, err = deleteAssetsTx(tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}
