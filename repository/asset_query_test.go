package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/izba-pamieci/izbabackend/models"
)

func TestBuildAssetConditionsEmpty(t *testing.T) {
	assert.Nil(t, buildAssetConditions(nil))
	assert.Empty(t, buildAssetConditions(&AssetFilters{}))
}

func TestBuildAssetConditionsAssetTypes(t *testing.T) {
	conds := buildAssetConditions(&AssetFilters{
		AssetTypes: []models.AssetType{models.AssetTypeImage, models.AssetTypeVideo},
	})
	require.Len(t, conds, 1)

	sqlStr, args, err := conds[0].ToSql()
	require.NoError(t, err)
	assert.Equal(t, "assets.asset_type IN (?,?)", sqlStr)
	assert.Equal(t, []interface{}{models.AssetTypeImage, models.AssetTypeVideo}, args)
}

func TestBuildAssetConditionsDescription(t *testing.T) {
	desc := "Szkoła"
	conds := buildAssetConditions(&AssetFilters{Description: &desc})
	require.Len(t, conds, 1)

	sqlStr, args, err := conds[0].ToSql()
	require.NoError(t, err)
	assert.Equal(t, `LOWER(assets.description) LIKE ? ESCAPE '\'`, sqlStr)
	assert.Equal(t, []interface{}{"%szkoła%"}, args)
}

func TestBuildAssetConditionsDescriptionEscapesWildcards(t *testing.T) {
	desc := `100% _of_ c:\photos`
	conds := buildAssetConditions(&AssetFilters{Description: &desc})
	require.Len(t, conds, 1)

	_, args, err := conds[0].ToSql()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{`%100\% \_of\_ c:\\photos%`}, args)
}

func TestBuildAssetConditionsEmptyDescriptionSkipped(t *testing.T) {
	desc := ""
	conds := buildAssetConditions(&AssetFilters{Description: &desc})
	assert.Empty(t, conds)
}

func TestBuildAssetConditionsDateOverlap(t *testing.T) {
	dateMin := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	dateMax := time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("both bounds", func(t *testing.T) {
		conds := buildAssetConditions(&AssetFilters{DateMin: &dateMin, DateMax: &dateMax})
		require.Len(t, conds, 1)

		sqlStr, args, err := conds[0].ToSql()
		require.NoError(t, err)
		assert.Contains(t, sqlStr, "d.date_max >= ? AND d.date_min <= ?")
		assert.Equal(t, []interface{}{dateMin, dateMax}, args)
	})

	t.Run("lower bound only", func(t *testing.T) {
		conds := buildAssetConditions(&AssetFilters{DateMin: &dateMin})
		require.Len(t, conds, 1)

		sqlStr, args, err := conds[0].ToSql()
		require.NoError(t, err)
		assert.Contains(t, sqlStr, "d.date_max >= ?")
		assert.NotContains(t, sqlStr, "date_min <=")
		assert.Equal(t, []interface{}{dateMin}, args)
	})

	t.Run("upper bound only", func(t *testing.T) {
		conds := buildAssetConditions(&AssetFilters{DateMax: &dateMax})
		require.Len(t, conds, 1)

		sqlStr, _, err := conds[0].ToSql()
		require.NoError(t, err)
		assert.Contains(t, sqlStr, "d.date_min <= ?")
	})
}

func TestBuildAssetConditionsTagSuperset(t *testing.T) {
	conds := buildAssetConditions(&AssetFilters{TagIDs: []uint{3, 7}})
	require.Len(t, conds, 2, "one containment predicate per tag")

	for i, want := range []uint{3, 7} {
		sqlStr, args, err := conds[i].ToSql()
		require.NoError(t, err)
		assert.Contains(t, sqlStr, "at.tag_id = ?")
		assert.Equal(t, []interface{}{want}, args)
	}
}

func TestBuildAssetConditionsCompose(t *testing.T) {
	published := true
	desc := "klasa"
	conds := buildAssetConditions(&AssetFilters{
		AssetTypes:  []models.AssetType{models.AssetTypeImage},
		Description: &desc,
		IsPublished: &published,
		TagIDs:      []uint{1},
	})
	assert.Len(t, conds, 4)
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name     string
		sorting  *AssetSorting
		expected string
	}{
		{"default", nil, "assets.created_at DESC"},
		{"created asc", &AssetSorting{Field: SortByCreatedAt}, "assets.created_at ASC"},
		{"updated desc", &AssetSorting{Field: SortByUpdatedAt, Descending: true}, "assets.updated_at DESC"},
		{
			"description nulls last",
			&AssetSorting{Field: SortByDescription},
			"assets.description IS NULL, LOWER(assets.description) ASC",
		},
		{
			"date nulls last",
			&AssetSorting{Field: SortByDate, Descending: true},
			"(SELECT d.date_min FROM asset_dates d WHERE d.id = assets.date_id) IS NULL, (SELECT d.date_min FROM asset_dates d WHERE d.id = assets.date_id) DESC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orderClause(tt.sorting)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOrderClauseRejectsUnknownField(t *testing.T) {
	_, err := orderClause(&AssetSorting{Field: "file_name"})
	assert.Error(t, err)
}

func TestIsValidSortField(t *testing.T) {
	assert.True(t, IsValidSortField(SortByDate))
	assert.True(t, IsValidSortField(SortByDescription))
	assert.False(t, IsValidSortField("id"))
}
