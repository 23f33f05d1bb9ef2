package models

import (
	"fmt"
	"time"
)

// DatePrecision states how coarse an asset's historical date is. Both ends of
// the stored range are truncated to this precision on write.
type DatePrecision string

const (
	PrecisionDay     DatePrecision = "day"
	PrecisionMonth   DatePrecision = "month"
	PrecisionYear    DatePrecision = "year"
	PrecisionDecade  DatePrecision = "decade"
	PrecisionCentury DatePrecision = "century"
)

// IsValidPrecision checks if a string is a known date precision.
func IsValidPrecision(p DatePrecision) bool {
	switch p {
	case PrecisionDay, PrecisionMonth, PrecisionYear, PrecisionDecade, PrecisionCentury:
		return true
	default:
		return false
	}
}

// AssetDate is a fuzzy historical date or date range attached to an asset.
// It never exists without an owning asset; the asset repository creates and
// deletes rows in the same transaction as the asset itself.
type AssetDate struct {
	ID            uint          `gorm:"primaryKey;autoIncrement" json:"-"`
	DateMin       time.Time     `gorm:"not null" json:"date_min"`
	DateMax       time.Time     `gorm:"not null" json:"date_max"`
	DatePrecision DatePrecision `gorm:"not null;default:day" json:"date_precision"`
	DateIsRange   bool          `gorm:"not null;default:false" json:"date_is_range"`
}

// TableName explicitly sets the table name for GORM.
func (AssetDate) TableName() string {
	return "asset_dates"
}

// TruncateToPrecision rounds a date down to the start of its precision bucket.
// Idempotent: truncating an already-truncated date is a no-op.
func TruncateToPrecision(t time.Time, p DatePrecision) time.Time {
	y, m, _ := t.Date()
	switch p {
	case PrecisionMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case PrecisionYear:
		return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	case PrecisionDecade:
		return time.Date(y-y%10, 1, 1, 0, 0, 0, 0, time.UTC)
	case PrecisionCentury:
		return time.Date(y-y%100, 1, 1, 0, 0, 0, 0, time.UTC)
	default: // day
		return time.Date(y, m, t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Normalize validates the payload and truncates both ends to the precision.
func (d *AssetDate) Normalize() error {
	if !IsValidPrecision(d.DatePrecision) {
		return fmt.Errorf("invalid date precision %q", d.DatePrecision)
	}
	if d.DateMax.Before(d.DateMin) {
		return fmt.Errorf("date_min %s is after date_max %s",
			d.DateMin.Format("2006-01-02"), d.DateMax.Format("2006-01-02"))
	}
	d.DateMin = TruncateToPrecision(d.DateMin, d.DatePrecision)
	d.DateMax = TruncateToPrecision(d.DateMax, d.DatePrecision)
	return nil
}
