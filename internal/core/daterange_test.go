package core

import (
	"errors"
	"testing"
)

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantNil    bool
		wantErr    error
	}{
		{name: "no bounds", wantNil: true},
		{name: "both bounds", start: "2024-01-01", end: "2024-01-31"},
		{name: "same day", start: "2024-01-01", end: "2024-01-01"},
		{name: "only start", start: "2024-01-01", wantErr: ErrPartialRange},
		{name: "only end", end: "2024-01-31", wantErr: ErrPartialRange},
		{name: "inverted", start: "2024-02-01", end: "2024-01-01", wantErr: ErrInvertedRange},
		{name: "bad start", start: "x", end: "2024-01-01", wantErr: ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseDateRange(tt.start, tt.end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrValidation) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r == nil) != tt.wantNil {
				t.Fatalf("range nil=%v, want nil=%v", r == nil, tt.wantNil)
			}
		})
	}
}

func TestDateRangeContainsIsInclusive(t *testing.T) {
	r, err := NewDateRange(NewDate(2024, 1, 1), NewDate(2024, 1, 31))
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []Date{NewDate(2024, 1, 1), NewDate(2024, 1, 15), NewDate(2024, 1, 31)} {
		if !r.Contains(d) {
			t.Fatalf("%s should be inside %s", d, r)
		}
	}
	for _, d := range []Date{NewDate(2023, 12, 31), NewDate(2024, 2, 1)} {
		if r.Contains(d) {
			t.Fatalf("%s should be outside %s", d, r)
		}
	}

	var all *DateRange
	if !all.Contains(NewDate(1999, 1, 1)) || all.String() != "all" {
		t.Fatalf("nil range should contain everything")
	}
	if r.String() != "2024-01-01..2024-01-31" {
		t.Fatalf("unexpected key %s", r)
	}
}
