package repository

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/izba-pamieci/izbabackend/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SortField names a column assets can be ordered by.
type SortField string

const (
	SortByDate        SortField = "date"
	SortByDescription SortField = "description"
	SortByCreatedAt   SortField = "createdAt"
	SortByUpdatedAt   SortField = "updatedAt"
)

// IsValidSortField checks if a string is a known sort field.
func IsValidSortField(f SortField) bool {
	switch f {
	case SortByDate, SortByDescription, SortByCreatedAt, SortByUpdatedAt:
		return true
	default:
		return false
	}
}

// AssetFilters compose orthogonally; nil/empty members are skipped.
type AssetFilters struct {
	AssetTypes  []models.AssetType // set membership
	Description *string            // case-insensitive substring
	DateMin     *time.Time         // range overlap, not containment
	DateMax     *time.Time
	IsPublished *bool
	TagIDs      []uint // superset match: asset must carry ALL listed tags
}

// AssetSorting orders results by one field; nulls always sort last.
type AssetSorting struct {
	Field      SortField
	Descending bool
}

// Pagination is a zero-based page index plus page size, applied after
// filtering and sorting.
type Pagination struct {
	Page     int
	PageSize int
}

// AssetQueryOptions bundles the three orthogonal query aspects.
type AssetQueryOptions struct {
	Filters    *AssetFilters
	Sorting    *AssetSorting
	Pagination *Pagination
}

// likeEscaper neutralizes LIKE metacharacters so a search for "100%" matches
// the literal text instead of acting as a wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// assets with a date row matching the filter span; overlap semantics, an
// asset matches if its span intersects the filter span at all
const dateOverlapSubquery = "EXISTS (SELECT 1 FROM asset_dates d WHERE d.id = assets.date_id AND %s)"

// buildAssetConditions folds the optional filters into a list of independent
// predicates. Pure: no query object is mutated, which keeps each clause
// unit-testable on its own.
func buildAssetConditions(f *AssetFilters) []sq.Sqlizer {
	if f == nil {
		return nil
	}

	var conds []sq.Sqlizer

	if len(f.AssetTypes) > 0 {
		conds = append(conds, sq.Eq{"assets.asset_type": f.AssetTypes})
	}

	if f.Description != nil && *f.Description != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(*f.Description)) + "%"
		conds = append(conds, sq.Expr(`LOWER(assets.description) LIKE ? ESCAPE '\'`, pattern))
	}

	if f.DateMin != nil && f.DateMax != nil {
		conds = append(conds, sq.Expr(
			fmt.Sprintf(dateOverlapSubquery, "d.date_max >= ? AND d.date_min <= ?"),
			*f.DateMin, *f.DateMax))
	} else if f.DateMin != nil {
		conds = append(conds, sq.Expr(
			fmt.Sprintf(dateOverlapSubquery, "d.date_max >= ?"), *f.DateMin))
	} else if f.DateMax != nil {
		conds = append(conds, sq.Expr(
			fmt.Sprintf(dateOverlapSubquery, "d.date_min <= ?"), *f.DateMax))
	}

	if f.IsPublished != nil {
		conds = append(conds, sq.Eq{"assets.is_published": *f.IsPublished})
	}

	// superset match: one containment check per requested tag
	for _, tagID := range f.TagIDs {
		conds = append(conds, sq.Expr(
			"EXISTS (SELECT 1 FROM asset_tags at WHERE at.asset_id = assets.id AND at.tag_id = ?)",
			tagID))
	}

	return conds
}

// applyAssetConditions attaches the built predicates to a gorm query.
func applyAssetConditions(q *gorm.DB, f *AssetFilters) (*gorm.DB, error) {
	for _, cond := range buildAssetConditions(f) {
		sqlStr, args, err := cond.ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build asset filter clause: %w", err)
		}
		q = q.Where(sqlStr, args...)
	}
	return q, nil
}

// orderClause translates a sorting choice into SQL. The "IS NULL" prefix
// pushes null values to the end regardless of direction.
func orderClause(s *AssetSorting) (string, error) {
	if s == nil {
		return "assets.created_at DESC", nil
	}
	if !IsValidSortField(s.Field) {
		return "", fmt.Errorf("invalid sort field %q", s.Field)
	}

	dir := "ASC"
	if s.Descending {
		dir = "DESC"
	}

	switch s.Field {
	case SortByDate:
		expr := "(SELECT d.date_min FROM asset_dates d WHERE d.id = assets.date_id)"
		return fmt.Sprintf("%s IS NULL, %s %s", expr, expr, dir), nil
	case SortByDescription:
		return fmt.Sprintf("assets.description IS NULL, LOWER(assets.description) %s", dir), nil
	case SortByUpdatedAt:
		return "assets.updated_at " + dir, nil
	default:
		return "assets.created_at " + dir, nil
	}
}

// applyPagination adds offset/limit when a page size is set.
func applyPagination(q *gorm.DB, p *Pagination) *gorm.DB {
	if p == nil || p.PageSize <= 0 {
		return q
	}
	page := p.Page
	if page < 0 {
		page = 0
	}
	return q.Offset(page * p.PageSize).Limit(p.PageSize)
}
