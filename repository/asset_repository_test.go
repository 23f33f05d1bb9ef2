package repository

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/database"
	"github.com/izba-pamieci/izbabackend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func makeAsset(t *testing.T, repo *AssetRepository, fileName string, mutate func(*models.Asset)) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		FileName:  fileName,
		MimeType:  "image/jpeg",
		AssetType: models.AssetTypeImage,
	}
	if mutate != nil {
		mutate(asset)
	}
	require.NoError(t, repo.Create(asset))
	require.NotZero(t, asset.ID)
	return asset
}

func makeTags(t *testing.T, db *gorm.DB, names ...string) []models.Tag {
	t.Helper()
	tagRepo := NewTagRepository(db)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag := models.Tag{Name: name}
		require.NoError(t, tagRepo.Create(&tag))
		tags = append(tags, tag)
	}
	return tags
}

func TestCreateAssetWithDate(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))

	asset := makeAsset(t, repo, "a.jpeg", func(a *models.Asset) {
		a.Date = &models.AssetDate{
			DateMin:       time.Date(1957, 6, 14, 10, 30, 0, 0, time.UTC),
			DateMax:       time.Date(1957, 6, 14, 10, 30, 0, 0, time.UTC),
			DatePrecision: models.PrecisionMonth,
		}
	})

	loaded, err := repo.GetByID(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.DateID)
	require.NotNil(t, loaded.Date)
	assert.True(t, loaded.Date.DateMin.Equal(time.Date(1957, 6, 1, 0, 0, 0, 0, time.UTC)),
		"date should be truncated to its precision on write, got %s", loaded.Date.DateMin)
	assert.Equal(t, models.AssetStatusPending, loaded.Status)
}

func TestCreateAssetInvalidDateLeavesNothingBehind(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)

	asset := &models.Asset{
		FileName:  "bad.jpeg",
		MimeType:  "image/jpeg",
		AssetType: models.AssetTypeImage,
		Date: &models.AssetDate{
			DateMin:       time.Date(1960, 2, 1, 0, 0, 0, 0, time.UTC),
			DateMax:       time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
			DatePrecision: models.PrecisionDay,
		},
	}
	require.Error(t, repo.Create(asset))

	var assetCount, dateCount int64
	require.NoError(t, db.Model(&models.Asset{}).Count(&assetCount).Error)
	require.NoError(t, db.Model(&models.AssetDate{}).Count(&dateCount).Error)
	assert.Zero(t, assetCount)
	assert.Zero(t, dateCount)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	_, err := repo.GetByID(42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetByIDsSkipsMissing(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	a := makeAsset(t, repo, "a.jpeg", nil)
	b := makeAsset(t, repo, "b.jpeg", nil)

	assets, err := repo.GetByIDs([]uint{a.ID, 999, b.ID})
	require.NoError(t, err)
	assert.Len(t, assets, 2)
}

func TestUpdateScalarFields(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	asset := makeAsset(t, repo, "a.jpeg", nil)

	err := repo.Update(asset.ID, AssetUpdate{
		Description: strPtr("Klasa 7b, boisko szkolne"),
		IsPublished: boolPtr(true),
	})
	require.NoError(t, err)

	loaded, err := repo.GetByID(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Description)
	assert.Equal(t, "Klasa 7b, boisko szkolne", *loaded.Description)
	assert.True(t, loaded.IsPublished)

	// empty string clears the column
	require.NoError(t, repo.Update(asset.ID, AssetUpdate{Description: strPtr("")}))
	loaded, err = repo.GetByID(asset.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.Description)
}

func TestUpdateNotFound(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	err := repo.Update(123, AssetUpdate{IsPublished: boolPtr(true)})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateDateLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)
	asset := makeAsset(t, repo, "a.jpeg", nil)

	// attach
	err := repo.Update(asset.ID, AssetUpdate{Date: &DateUpdate{Date: &models.AssetDate{
		DateMin:       time.Date(1970, 5, 1, 0, 0, 0, 0, time.UTC),
		DateMax:       time.Date(1970, 5, 1, 0, 0, 0, 0, time.UTC),
		DatePrecision: models.PrecisionYear,
	}}})
	require.NoError(t, err)

	loaded, err := repo.GetByID(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Date)
	firstDateID := *loaded.DateID
	assert.True(t, loaded.Date.DateMin.Equal(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)))

	// replace updates the existing row in place
	err = repo.Update(asset.ID, AssetUpdate{Date: &DateUpdate{Date: &models.AssetDate{
		DateMin:       time.Date(1980, 3, 2, 0, 0, 0, 0, time.UTC),
		DateMax:       time.Date(1981, 3, 2, 0, 0, 0, 0, time.UTC),
		DatePrecision: models.PrecisionYear,
		DateIsRange:   true,
	}}})
	require.NoError(t, err)

	loaded, err = repo.GetByID(asset.ID)
	require.NoError(t, err)
	assert.Equal(t, firstDateID, *loaded.DateID)
	assert.True(t, loaded.Date.DateIsRange)

	// clear removes the row
	require.NoError(t, repo.Update(asset.ID, AssetUpdate{Date: &DateUpdate{Clear: true}}))
	loaded, err = repo.GetByID(asset.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.DateID)

	var dateCount int64
	require.NoError(t, db.Model(&models.AssetDate{}).Count(&dateCount).Error)
	assert.Zero(t, dateCount)

	// clearing an asset without a date is a no-op
	require.NoError(t, repo.Update(asset.ID, AssetUpdate{Date: &DateUpdate{Clear: true}}))
}

func TestUpdateTagReconciliation(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)
	asset := makeAsset(t, repo, "a.jpeg", nil)
	tags := makeTags(t, db, "sport", "teatr", "wycieczki")

	setTags := func(ids []uint) []string {
		t.Helper()
		require.NoError(t, repo.Update(asset.ID, AssetUpdate{TagIDs: &ids}))
		loaded, err := repo.GetByID(asset.ID)
		require.NoError(t, err)
		names := make([]string, 0, len(loaded.Tags))
		for _, tag := range loaded.Tags {
			names = append(names, tag.Name)
		}
		return names
	}

	assert.ElementsMatch(t, []string{"sport", "teatr"}, setTags([]uint{tags[0].ID, tags[1].ID}))
	assert.ElementsMatch(t, []string{"teatr", "wycieczki"}, setTags([]uint{tags[1].ID, tags[2].ID}))

	// duplicates in the wanted set are harmless
	assert.ElementsMatch(t, []string{"sport"}, setTags([]uint{tags[0].ID, tags[0].ID}))

	// empty set clears everything
	assert.Empty(t, setTags([]uint{}))
}

func TestUpdateManyIsAtomic(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	a := makeAsset(t, repo, "a.jpeg", nil)
	b := makeAsset(t, repo, "b.jpeg", nil)

	err := repo.UpdateMany([]uint{a.ID, 999, b.ID}, AssetUpdate{IsPublished: boolPtr(true)})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	for _, id := range []uint{a.ID, b.ID} {
		loaded, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.False(t, loaded.IsPublished, "batch failure must roll back every member")
	}
}

func TestDeleteRemovesOwnedRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)
	tags := makeTags(t, db, "sport")

	asset := makeAsset(t, repo, "a.jpeg", func(a *models.Asset) {
		a.Date = &models.AssetDate{
			DateMin:       time.Date(1965, 9, 1, 0, 0, 0, 0, time.UTC),
			DateMax:       time.Date(1965, 9, 1, 0, 0, 0, 0, time.UTC),
			DatePrecision: models.PrecisionDay,
		}
	})
	require.NoError(t, repo.Update(asset.ID, AssetUpdate{TagIDs: &[]uint{tags[0].ID}}))

	require.NoError(t, repo.Delete(asset.ID))

	var dateCount, joinCount, tagCount int64
	require.NoError(t, db.Model(&models.AssetDate{}).Count(&dateCount).Error)
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM asset_tags").Scan(&joinCount).Error)
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Zero(t, dateCount, "owned date row must not be orphaned")
	assert.Zero(t, joinCount, "join rows removed by the foreign key cascade")
	assert.EqualValues(t, 1, tagCount, "the tag itself survives")
}

func TestDeleteNotFound(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	assert.ErrorIs(t, repo.Delete(77), gorm.ErrRecordNotFound)
}

func TestDeleteManySkipsMissing(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	a := makeAsset(t, repo, "a.jpeg", nil)
	b := makeAsset(t, repo, "b.jpeg", nil)

	deleted, err := repo.DeleteMany([]uint{a.ID, 999, b.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}

func seedFilterFixtures(t *testing.T, db *gorm.DB, repo *AssetRepository) []models.Tag {
	t.Helper()
	tags := makeTags(t, db, "sport", "teatr")

	makeAsset(t, repo, "apel.jpeg", func(a *models.Asset) {
		a.Description = strPtr("Apel szkolny")
		a.IsPublished = true
		a.Date = &models.AssetDate{
			DateMin:       time.Date(1955, 5, 1, 0, 0, 0, 0, time.UTC),
			DateMax:       time.Date(1955, 5, 1, 0, 0, 0, 0, time.UTC),
			DatePrecision: models.PrecisionDay,
		}
	})
	makeAsset(t, repo, "mecz.mp4", func(a *models.Asset) {
		a.MimeType = "video/mp4"
		a.AssetType = models.AssetTypeVideo
		a.Description = strPtr("Mecz na boisku")
		a.Date = &models.AssetDate{
			DateMin:       time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
			DateMax:       time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC),
			DatePrecision: models.PrecisionYear,
			DateIsRange:   true,
		}
	})
	makeAsset(t, repo, "kronika.pdf", func(a *models.Asset) {
		a.MimeType = "application/pdf"
		a.AssetType = models.AssetTypeDocument
		a.IsPublished = true
	})

	return tags
}

func TestGetAllFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)
	seedFilterFixtures(t, db, repo)

	t.Run("by type", func(t *testing.T) {
		assets, err := repo.GetAll(&AssetQueryOptions{Filters: &AssetFilters{
			AssetTypes: []models.AssetType{models.AssetTypeVideo, models.AssetTypeDocument},
		}})
		require.NoError(t, err)
		assert.Len(t, assets, 2)
	})

	t.Run("by description substring, case-insensitive", func(t *testing.T) {
		assets, err := repo.GetAll(&AssetQueryOptions{Filters: &AssetFilters{
			Description: strPtr("BOISK"),
		}})
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, "mecz.mp4", assets[0].FileName)
	})

	t.Run("description wildcards match literally", func(t *testing.T) {
		makeAsset(t, repo, "frekwencja.jpeg", func(a *models.Asset) {
			a.Description = strPtr("Frekwencja 100% w klasie 5a")
		})
		makeAsset(t, repo, "jubileusz.jpeg", func(a *models.Asset) {
			a.Description = strPtr("Jubileusz 100-lecia szkoły")
		})

		assets, err := repo.GetAll(&AssetQueryOptions{Filters: &AssetFilters{
			Description: strPtr("100%"),
		}})
		require.NoError(t, err)
		require.Len(t, assets, 1, "\"100%%\" must not act as a wildcard")
		assert.Equal(t, "frekwencja.jpeg", assets[0].FileName)
	})

	t.Run("by published", func(t *testing.T) {
		assets, err := repo.GetAll(&AssetQueryOptions{Filters: &AssetFilters{
			IsPublished: boolPtr(true),
		}})
		require.NoError(t, err)
		assert.Len(t, assets, 2)
	})

	t.Run("date overlap includes partial overlaps", func(t *testing.T) {
		// 1958..1962 overlaps the 1960s range asset but not the 1955 one
		dateMin := time.Date(1958, 1, 1, 0, 0, 0, 0, time.UTC)
		dateMax := time.Date(1962, 1, 1, 0, 0, 0, 0, time.UTC)
		assets, err := repo.GetAll(&AssetQueryOptions{Filters: &AssetFilters{
			DateMin: &dateMin, DateMax: &dateMax,
		}})
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, "mecz.mp4", assets[0].FileName)
	})

	t.Run("undated assets never match a date filter", func(t *testing.T) {
		dateMin := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
		assets, err := repo.GetAll(&AssetQueryOptions{Filters: &AssetFilters{
			DateMin: &dateMin,
		}})
		require.NoError(t, err)
		for _, a := range assets {
			assert.NotEqual(t, "kronika.pdf", a.FileName)
		}
	})
}

func TestGetAllTagSupersetFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)
	tags := seedFilterFixtures(t, db, repo)

	assets, err := repo.GetAll(nil)
	require.NoError(t, err)
	require.Len(t, assets, 3)
	byName := make(map[string]models.Asset, len(assets))
	for _, a := range assets {
		byName[a.FileName] = a
	}

	// apel: sport+teatr, mecz: sport only
	require.NoError(t, repo.Update(byName["apel.jpeg"].ID, AssetUpdate{TagIDs: &[]uint{tags[0].ID, tags[1].ID}}))
	require.NoError(t, repo.Update(byName["mecz.mp4"].ID, AssetUpdate{TagIDs: &[]uint{tags[0].ID}}))

	matched, err := repo.GetAll(&AssetQueryOptions{Filters: &AssetFilters{
		TagIDs: []uint{tags[0].ID, tags[1].ID},
	}})
	require.NoError(t, err)
	require.Len(t, matched, 1, "only assets carrying ALL requested tags match")
	assert.Equal(t, byName["apel.jpeg"].ID, matched[0].ID)
}

func TestGetAllSorting(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)
	seedFilterFixtures(t, db, repo)

	t.Run("by date, undated last", func(t *testing.T) {
		assets, err := repo.GetAll(&AssetQueryOptions{
			Sorting: &AssetSorting{Field: SortByDate},
		})
		require.NoError(t, err)
		require.Len(t, assets, 3)
		assert.Equal(t, "apel.jpeg", assets[0].FileName)
		assert.Equal(t, "mecz.mp4", assets[1].FileName)
		assert.Equal(t, "kronika.pdf", assets[2].FileName, "undated asset sorts last")
	})

	t.Run("by date descending, undated still last", func(t *testing.T) {
		assets, err := repo.GetAll(&AssetQueryOptions{
			Sorting: &AssetSorting{Field: SortByDate, Descending: true},
		})
		require.NoError(t, err)
		require.Len(t, assets, 3)
		assert.Equal(t, "mecz.mp4", assets[0].FileName)
		assert.Equal(t, "kronika.pdf", assets[2].FileName)
	})

	t.Run("by description, undescribed last", func(t *testing.T) {
		assets, err := repo.GetAll(&AssetQueryOptions{
			Sorting: &AssetSorting{Field: SortByDescription},
		})
		require.NoError(t, err)
		require.Len(t, assets, 3)
		assert.Equal(t, "apel.jpeg", assets[0].FileName)
		assert.Equal(t, "kronika.pdf", assets[2].FileName)
	})
}

func TestGetAllPagination(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	for i := 0; i < 5; i++ {
		makeAsset(t, repo, fmt.Sprintf("a%d.jpeg", i), func(a *models.Asset) {
			a.CreatedAt = int64(1000 + i)
			a.UpdatedAt = int64(1000 + i)
		})
	}

	opts := &AssetQueryOptions{
		Sorting:    &AssetSorting{Field: SortByCreatedAt},
		Pagination: &Pagination{Page: 1, PageSize: 2},
	}
	assets, err := repo.GetAll(opts)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "a2.jpeg", assets[0].FileName)
	assert.Equal(t, "a3.jpeg", assets[1].FileName)

	// last page is short
	opts.Pagination = &Pagination{Page: 2, PageSize: 2}
	assets, err = repo.GetAll(opts)
	require.NoError(t, err)
	assert.Len(t, assets, 1)

	count, err := repo.GetCount(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count, "count ignores pagination")
}

func TestGetRandomRespectsFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)
	seedFilterFixtures(t, db, repo)

	assets, err := repo.GetRandom(10, &AssetFilters{IsPublished: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	for _, a := range assets {
		assert.True(t, a.IsPublished)
	}

	assets, err = repo.GetRandom(0, nil)
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)
	seedFilterFixtures(t, db, repo)

	stats, err := repo.GetStats(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 2, stats.Published)
	assert.EqualValues(t, 1, stats.ByType[models.AssetTypeImage])
	assert.EqualValues(t, 1, stats.ByType[models.AssetTypeVideo])
	assert.EqualValues(t, 1, stats.ByType[models.AssetTypeDocument])

	filtered, err := repo.GetStats(&AssetFilters{
		AssetTypes: []models.AssetType{models.AssetTypeImage},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, filtered.Total)
}

func TestMarkCommitted(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	asset := makeAsset(t, repo, "a.jpeg", nil)

	require.NoError(t, repo.MarkCommitted(asset.ID))
	loaded, err := repo.GetByID(asset.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetStatusCommitted, loaded.Status)

	assert.ErrorIs(t, repo.MarkCommitted(999), gorm.ErrRecordNotFound)
}

func TestSetThumbnailResult(t *testing.T) {
	repo := NewAssetRepository(newTestDB(t))
	asset := makeAsset(t, repo, "a.jpeg", nil)

	thumb := "thumbnails/a.jpeg"
	require.NoError(t, repo.SetThumbnailResult(asset.ID, &thumb, nil, nil))

	loaded, err := repo.GetByID(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ThumbnailPath)
	assert.Equal(t, thumb, *loaded.ThumbnailPath)
	assert.NotNil(t, loaded.ThumbnailProcessedAt)
	assert.Nil(t, loaded.ThumbnailError)

	// a later failure records the error and clears nothing else retroactively
	require.NoError(t, repo.SetThumbnailResult(asset.ID, nil, nil, fmt.Errorf("ffmpeg exploded")))
	loaded, err = repo.GetByID(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ThumbnailError)
	assert.Equal(t, "ffmpeg exploded", *loaded.ThumbnailError)
	assert.Nil(t, loaded.ThumbnailPath)
}

func TestDeleteStalePending(t *testing.T) {
	db := newTestDB(t)
	repo := NewAssetRepository(db)

	stale := makeAsset(t, repo, "stale.jpeg", func(a *models.Asset) {
		a.CreatedAt = time.Now().Add(-2 * time.Hour).Unix()
		a.UpdatedAt = a.CreatedAt
	})
	fresh := makeAsset(t, repo, "fresh.jpeg", nil)
	committed := makeAsset(t, repo, "done.jpeg", func(a *models.Asset) {
		a.CreatedAt = time.Now().Add(-2 * time.Hour).Unix()
		a.UpdatedAt = a.CreatedAt
	})
	require.NoError(t, repo.MarkCommitted(committed.ID))

	removed, err := repo.DeleteStalePending(time.Hour)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, stale.ID, removed[0].ID)

	_, err = repo.GetByID(stale.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.GetByID(fresh.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(committed.ID)
	assert.NoError(t, err)
}
