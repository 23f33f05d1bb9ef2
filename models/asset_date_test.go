package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTruncateToPrecision(t *testing.T) {
	input := time.Date(1957, time.June, 14, 13, 45, 30, 0, time.UTC)

	tests := []struct {
		precision DatePrecision
		expected  time.Time
	}{
		{PrecisionDay, date(1957, time.June, 14)},
		{PrecisionMonth, date(1957, time.June, 1)},
		{PrecisionYear, date(1957, time.January, 1)},
		{PrecisionDecade, date(1950, time.January, 1)},
		{PrecisionCentury, date(1900, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(string(tt.precision), func(t *testing.T) {
			got := TruncateToPrecision(input, tt.precision)
			assert.True(t, got.Equal(tt.expected), "got %s", got)
		})
	}
}

func TestTruncateToPrecisionIdempotent(t *testing.T) {
	input := time.Date(1983, time.November, 3, 8, 0, 0, 0, time.UTC)
	for _, p := range []DatePrecision{PrecisionDay, PrecisionMonth, PrecisionYear, PrecisionDecade, PrecisionCentury} {
		once := TruncateToPrecision(input, p)
		twice := TruncateToPrecision(once, p)
		assert.True(t, once.Equal(twice), "precision %s", p)
	}
}

func TestTruncateToPrecisionNeverLater(t *testing.T) {
	input := time.Date(1969, time.December, 31, 23, 59, 59, 0, time.UTC)
	for _, p := range []DatePrecision{PrecisionDay, PrecisionMonth, PrecisionYear, PrecisionDecade, PrecisionCentury} {
		got := TruncateToPrecision(input, p)
		assert.False(t, got.After(input), "precision %s moved the date forward", p)
	}
}

func TestIsValidPrecision(t *testing.T) {
	assert.True(t, IsValidPrecision(PrecisionDay))
	assert.True(t, IsValidPrecision(PrecisionCentury))
	assert.False(t, IsValidPrecision("week"))
	assert.False(t, IsValidPrecision(""))
}

func TestAssetDateNormalize(t *testing.T) {
	d := AssetDate{
		DateMin:       time.Date(1944, time.August, 1, 12, 0, 0, 0, time.UTC),
		DateMax:       time.Date(1944, time.October, 2, 6, 0, 0, 0, time.UTC),
		DatePrecision: PrecisionMonth,
		DateIsRange:   true,
	}
	require.NoError(t, d.Normalize())
	assert.True(t, d.DateMin.Equal(date(1944, time.August, 1)))
	assert.True(t, d.DateMax.Equal(date(1944, time.October, 1)))
}

func TestAssetDateNormalizeRejectsInvertedRange(t *testing.T) {
	d := AssetDate{
		DateMin:       date(1960, time.January, 2),
		DateMax:       date(1960, time.January, 1),
		DatePrecision: PrecisionDay,
	}
	assert.Error(t, d.Normalize())
}

func TestAssetDateNormalizeRejectsUnknownPrecision(t *testing.T) {
	d := AssetDate{
		DateMin:       date(1960, time.January, 1),
		DateMax:       date(1960, time.January, 1),
		DatePrecision: "fortnight",
	}
	assert.Error(t, d.Normalize())
}

func TestAssetDateNormalizeMayCollapseRangeEnds(t *testing.T) {
	// both ends inside the same decade collapse to the same bucket start
	d := AssetDate{
		DateMin:       date(1951, time.March, 5),
		DateMax:       date(1958, time.July, 20),
		DatePrecision: PrecisionDecade,
		DateIsRange:   true,
	}
	require.NoError(t, d.Normalize())
	assert.True(t, d.DateMin.Equal(d.DateMax))
}
