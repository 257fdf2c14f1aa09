package handler

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// parseDateTime parses a datetime string in the formats callers actually send
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseLimit parses a limit query value, falling back to def when absent.
// The second result is false for a non-numeric or non-positive value.
func parseLimit(s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit <= 0 {
		return 0, false
	}
	return limit, true
}

// toDecimalPtr converts an optional float into a decimal pointer
func toDecimalPtr(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}

// fromDecimalPtr converts an optional decimal into a float pointer
func fromDecimalPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}
