package ingest

import (
	"errors"
	"testing"
	"time"
)

func TestParseRunDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"20250616", time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), false},
		{"20241231", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{"2025-06-16", time.Time{}, true},
		{"202506", time.Time{}, true},
		{"20251340", time.Time{}, true}, // month 13
		{"20250230", time.Time{}, true}, // Feb 30
		{"abcdefgh", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRunDate(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDate) {
					t.Fatalf("Expected ErrInvalidDate for %q, got %v", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseRunDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterByDate(t *testing.T) {
	d15 := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	d16 := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

	records := []Record{
		{SaleID: 1, SaleDate: d15},
		{SaleID: 2, SaleDate: d16},
		{SaleID: 3, SaleDate: d15},
		{SaleID: 4, SaleDate: d16},
	}

	got := FilterByDate(records, d16)
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	// Original position order is preserved
	if got[0].SaleID != 2 || got[1].SaleID != 4 {
		t.Errorf("Order not preserved: %d, %d", got[0].SaleID, got[1].SaleID)
	}
}

func TestFilterByDateEmptyMatch(t *testing.T) {
	records := []Record{
		{SaleID: 1, SaleDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
	}

	got := FilterByDate(records, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	if len(got) != 0 {
		t.Errorf("Expected empty result, got %d records", len(got))
	}
}
