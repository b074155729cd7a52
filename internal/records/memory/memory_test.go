package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"walletnote/internal/core"
	"walletnote/internal/records"
	"walletnote/internal/records/recordstest"
)

func TestStoreContract(t *testing.T) {
	recordstest.Run(t, func(t *testing.T) records.Store {
		return New()
	})
}

func TestNewFromFileSeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.csv")
	content := "# date,amount,category,description\n" +
		"2024-01-05,50.00,Food\n" +
		"\n" +
		"2024-01-20,30.00,Food,snacks, salty\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 seeded records, got %d", s.Len())
	}
	got, _ := s.Query(context.Background(), nil)
	if got[1].Description != "snacks, salty" {
		t.Fatalf("description should keep commas, got %q", got[1].Description)
	}
}

func TestNewFromFileMissingFails(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable for missing seed file, got %v", err)
	}
}

func TestNewFromFileRejectsBadLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.csv")
	if err := os.WriteFile(path, []byte("2024-01-05,-3,Food\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}
