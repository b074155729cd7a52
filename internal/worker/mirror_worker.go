// Package worker replays ledger change events into a replica store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"walletnote/internal/amqp"
	"walletnote/internal/core"
	"walletnote/internal/records"
)

// MirrorWorker keeps a replica store in step with the primary by applying
// the events the expense service publishes. Replica records keep the
// primary's IDs, so deletes by ID line up.
type MirrorWorker struct {
	mirror records.Store
	stats  Stats
}

// Stats counts what the worker has applied since it started.
type Stats struct {
	Added   int64
	Deleted int64
	Skipped int64
}

func NewMirrorWorker(mirror records.Store) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// HandleEvent applies one event. Only storage failures are returned, so the
// consumer requeues them; events that can never apply are logged and
// dropped.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	switch ev.Type {
	case amqp.EventExpenseAdded:
		return w.applyAdd(ctx, ev)
	case amqp.EventExpenseDeleted:
		if ev.ID != "" {
			return w.applyDeleteByID(ctx, ev.ID)
		}
		return w.applyDeleteByValue(ctx, ev)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "type", ev.Type)
		atomic.AddInt64(&w.stats.Skipped, 1)
		return nil
	}
}

func (w *MirrorWorker) applyAdd(ctx context.Context, ev *amqp.ExpenseEvent) error {
	e, err := expenseFromEvent(ev)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed add event", "id", ev.ID, "error", err)
		atomic.AddInt64(&w.stats.Skipped, 1)
		return nil
	}

	if _, err := w.mirror.Add(ctx, e); err != nil {
		if errors.Is(err, core.ErrDuplicate) {
			// Applied before, by a redelivery or a reconcile pass.
			slog.DebugContext(ctx, "Mirror already has expense", "id", ev.ID)
			return nil
		}
		if errors.Is(err, core.ErrValidation) {
			slog.ErrorContext(ctx, "Mirror rejected expense", "id", ev.ID, "error", err)
			atomic.AddInt64(&w.stats.Skipped, 1)
			return nil
		}
		return fmt.Errorf("mirror add %s: %w", ev.ID, err)
	}

	atomic.AddInt64(&w.stats.Added, 1)
	slog.InfoContext(ctx, "Mirrored expense", "id", ev.ID, "date", ev.Date, "category", ev.Category)
	return nil
}

func (w *MirrorWorker) applyDeleteByID(ctx context.Context, id string) error {
	err := w.mirror.DeleteByID(ctx, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		// Already gone, e.g. a redelivered event.
		slog.DebugContext(ctx, "Mirror has no such expense", "id", id)
		return nil
	case err != nil:
		return fmt.Errorf("mirror delete %s: %w", id, err)
	}
	atomic.AddInt64(&w.stats.Deleted, 1)
	slog.InfoContext(ctx, "Mirrored delete", "id", id)
	return nil
}

func (w *MirrorWorker) applyDeleteByValue(ctx context.Context, ev *amqp.ExpenseEvent) error {
	e, err := expenseFromEvent(ev)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed delete event", "error", err)
		atomic.AddInt64(&w.stats.Skipped, 1)
		return nil
	}

	n, err := w.mirror.Delete(ctx, e)
	if err != nil {
		return fmt.Errorf("mirror delete by value: %w", err)
	}
	if n != ev.Removed {
		slog.WarnContext(ctx, "Mirror delete count differs from primary",
			"primary", ev.Removed,
			"mirror", n,
			"date", ev.Date,
			"category", ev.Category)
	}
	atomic.AddInt64(&w.stats.Deleted, n)
	return nil
}

// Reconcile brings the mirror in line with source by ID: records missing
// from the mirror are added and records the source no longer has are
// removed. It covers events lost while the worker was down.
func (w *MirrorWorker) Reconcile(ctx context.Context, source records.ExpenseReader) (added, removed int, err error) {
	want, err := source.Query(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("read source: %w", err)
	}
	have, err := w.mirror.Query(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("read mirror: %w", err)
	}

	inSource := make(map[string]struct{}, len(want))
	for _, e := range want {
		inSource[e.ID] = struct{}{}
	}
	inMirror := make(map[string]struct{}, len(have))
	for _, e := range have {
		inMirror[e.ID] = struct{}{}
	}

	for _, e := range want {
		if _, ok := inMirror[e.ID]; ok {
			continue
		}
		_, err := w.mirror.Add(ctx, e)
		switch {
		case errors.Is(err, core.ErrDuplicate):
			continue
		case err != nil:
			return added, removed, fmt.Errorf("mirror add %s: %w", e.ID, err)
		}
		added++
	}
	for _, e := range have {
		if _, ok := inSource[e.ID]; ok {
			continue
		}
		if err := w.mirror.DeleteByID(ctx, e.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return added, removed, fmt.Errorf("mirror delete %s: %w", e.ID, err)
		}
		removed++
	}

	atomic.AddInt64(&w.stats.Added, int64(added))
	atomic.AddInt64(&w.stats.Deleted, int64(removed))
	slog.InfoContext(ctx, "Mirror reconciled",
		"source_records", len(want),
		"added", added,
		"removed", removed)
	return added, removed, nil
}

func (w *MirrorWorker) Stats() Stats {
	return Stats{
		Added:   atomic.LoadInt64(&w.stats.Added),
		Deleted: atomic.LoadInt64(&w.stats.Deleted),
		Skipped: atomic.LoadInt64(&w.stats.Skipped),
	}
}

func expenseFromEvent(ev *amqp.ExpenseEvent) (core.Expense, error) {
	date, err := core.ParseDate(ev.Date)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseMoney(ev.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:          ev.ID,
		Date:        date,
		Amount:      amount,
		Category:    ev.Category,
		Description: ev.Description,
	}, nil
}
