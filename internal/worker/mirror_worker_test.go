package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"walletnote/internal/amqp"
	"walletnote/internal/core"
	"walletnote/internal/records"
	"walletnote/internal/records/memory"
	"walletnote/internal/records/recordstest"
	"walletnote/internal/storage"
)

func TestHandleAddThenDeleteByID(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewMirrorWorker(mirror)

	e := recordstest.Expense(t, "2024-01-05", "12.5", "Food", "lunch")
	e.ID = records.NewID()

	if err := w.HandleEvent(ctx, amqp.NewExpenseAddedEvent(e)); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, _ := mirror.Query(ctx, nil)
	if len(got) != 1 || got[0].ID != e.ID || got[0].Description != "lunch" || got[0].Amount.String() != "12.5" {
		t.Fatalf("mirror = %+v", got)
	}

	if err := w.HandleEvent(ctx, amqp.NewExpenseDeletedByIDEvent(e.ID)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Redelivery of the same delete is harmless.
	if err := w.HandleEvent(ctx, amqp.NewExpenseDeletedByIDEvent(e.ID)); err != nil {
		t.Fatalf("redelivered delete: %v", err)
	}
	if mirror.Len() != 0 {
		t.Fatalf("mirror still holds %d records", mirror.Len())
	}

	if s := w.Stats(); s.Added != 1 || s.Deleted != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestHandleDeleteByValue(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New()
	w := NewMirrorWorker(mirror)

	e := recordstest.Expense(t, "2024-02-01", "30", "Housing", "")
	for i := 0; i < 2; i++ {
		if _, err := mirror.Add(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	if err := w.HandleEvent(ctx, amqp.NewExpensesDeletedEvent(e, 2)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mirror.Len() != 0 {
		t.Errorf("mirror still holds %d records", mirror.Len())
	}
	if got := w.Stats().Deleted; got != 2 {
		t.Errorf("Deleted = %d", got)
	}
}

func TestMalformedEventsAreDropped(t *testing.T) {
	w := NewMirrorWorker(memory.New())
	ctx := context.Background()

	events := []*amqp.ExpenseEvent{
		{Type: amqp.EventExpenseAdded, ID: "x", Date: "yesterday", Amount: "5", Category: "Food"},
		{Type: amqp.EventExpenseAdded, ID: "y", Date: "2024-01-01", Amount: "-5", Category: "Food"},
		{Type: amqp.EventExpenseDeleted, Date: "2024-01-01", Amount: "", Category: "Food"},
		{Type: "expense.renamed"},
	}
	for _, ev := range events {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Errorf("HandleEvent(%+v) = %v, want nil", ev, err)
		}
	}
	if got := w.Stats().Skipped; got != int64(len(events)) {
		t.Errorf("Skipped = %d, want %d", got, len(events))
	}
}

// brokenStore fails every write with a storage error.
type brokenStore struct{ *memory.Store }

func (brokenStore) Add(context.Context, core.Expense) (core.Expense, error) {
	return core.Expense{}, core.ErrStorageWrite
}

func TestStorageFailuresAreReturned(t *testing.T) {
	w := NewMirrorWorker(brokenStore{memory.New()})
	e := recordstest.Expense(t, "2024-01-05", "5", "Food", "")
	e.ID = records.NewID()

	err := w.HandleEvent(context.Background(), amqp.NewExpenseAddedEvent(e))
	if !errors.Is(err, core.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	source := memory.New()
	mirror := memory.New()
	w := NewMirrorWorker(mirror)

	kept, err := source.Add(ctx, recordstest.Expense(t, "2024-01-01", "10", "Food", ""))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mirror.Add(ctx, kept); err != nil {
		t.Fatal(err)
	}
	if _, err := source.Add(ctx, recordstest.Expense(t, "2024-01-02", "20", "Medical", "")); err != nil {
		t.Fatal(err)
	}
	if _, err := mirror.Add(ctx, recordstest.Expense(t, "2023-12-31", "99", "Investment", "")); err != nil {
		t.Fatal(err)
	}

	added, removed, err := w.Reconcile(ctx, source)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if added != 1 || removed != 1 {
		t.Errorf("added/removed = %d/%d, want 1/1", added, removed)
	}

	want, _ := source.Query(ctx, nil)
	have, _ := mirror.Query(ctx, nil)
	if len(have) != len(want) {
		t.Fatalf("mirror has %d records, source %d", len(have), len(want))
	}
	for i := range want {
		if have[i].ID != want[i].ID {
			t.Errorf("record %d: id %s, want %s", i, have[i].ID, want[i].ID)
		}
	}

	added, removed, err = w.Reconcile(ctx, source)
	if err != nil || added != 0 || removed != 0 {
		t.Errorf("second Reconcile = %d/%d (%v), want no-op", added, removed, err)
	}
}

func TestAddAfterReconcileIsAlreadyApplied(t *testing.T) {
	replicas := []struct {
		name string
		open func(t *testing.T) records.Store
	}{
		{"memory", func(t *testing.T) records.Store { return memory.New() }},
		{"sqlite", func(t *testing.T) records.Store {
			repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "mirror.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { repo.Close() })
			return repo
		}},
	}

	for _, tt := range replicas {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			source := memory.New()
			mirror := tt.open(t)
			w := NewMirrorWorker(mirror)

			stored, err := source.Add(ctx, recordstest.Expense(t, "2024-03-10", "42", "Food", "market"))
			if err != nil {
				t.Fatal(err)
			}
			if added, _, err := w.Reconcile(ctx, source); err != nil || added != 1 {
				t.Fatalf("Reconcile = %d (%v), want 1 added", added, err)
			}

			// The queued event for the same record arrives afterwards, twice.
			for i := 0; i < 2; i++ {
				if err := w.HandleEvent(ctx, amqp.NewExpenseAddedEvent(stored)); err != nil {
					t.Fatalf("delivery %d: %v", i+1, err)
				}
			}

			got, err := mirror.Query(ctx, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0].ID != stored.ID {
				t.Fatalf("mirror = %+v, want only %s", got, stored.ID)
			}
			if s := w.Stats(); s.Added != 1 || s.Skipped != 0 {
				t.Errorf("stats = %+v", s)
			}
		})
	}
}
