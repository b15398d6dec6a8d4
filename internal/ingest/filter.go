package ingest

import (
	"fmt"
	"time"
)

// ParseRunDate validates an 8-digit YYYYMMDD run date parameter.
func ParseRunDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYYMMDD)", ErrInvalidDate, s)
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYYMMDD)", ErrInvalidDate, s)
	}
	return t, nil
}

// FilterByDate returns the records whose sale date equals runDate,
// preserving input order. An empty result is a valid outcome, not an
// error.
func FilterByDate(records []Record, runDate time.Time) []Record {
	var out []Record
	for _, rec := range records {
		if rec.SaleDate.Equal(runDate) {
			out = append(out, rec)
		}
	}
	return out
}
