package http

import (
	"encoding/json"
	"errors"
	"testing"

	"walletnote/internal/core"
)

func TestStringValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"12,50", "12,50"},
		{json.Number("12.5"), "12.5"},
		{12.5, "12.5"},
		{int64(7), "7"},
		{true, "true"},
		{[]any{1}, ""},
	}
	for _, tt := range tests {
		if got := stringValue(tt.in); got != tt.want {
			t.Errorf("stringValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  rent  ":      "rent",
		"a\x00b\x1fc":   "abc",
		"line1\nline2":  "line1\nline2",
		"tab\there\x7f": "tab\there",
		"":              "",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseExpense(t *testing.T) {
	e, err := parseExpense(map[string]any{
		"date":        "2024-02-29",
		"amount":      json.Number("80"),
		"category":    " Housing ",
		"description": nil,
	})
	if err != nil {
		t.Fatalf("parseExpense: %v", err)
	}
	if e.Date.String() != "2024-02-29" || e.Amount.String() != "80" || e.Category != "Housing" || e.Description != "" {
		t.Errorf("unexpected expense %+v", e)
	}

	_, err = parseExpense(map[string]any{"date": "2024-02-29", "amount": "1", "category": "Pets"})
	if !errors.Is(err, core.ErrUnknownCategory) || !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected unknown category validation error, got %v", err)
	}
}
