package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"walletnote/internal/amqp"
	"walletnote/internal/cache"
	"walletnote/internal/core"
	"walletnote/internal/records"
	"walletnote/internal/summary"
)

// EventPublisher announces committed writes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
	Close() error
}

// ExpenseService is the single entry point to the ledger: it owns the store,
// keeps summaries cached per range and publishes change events.
type ExpenseService struct {
	store     records.Store
	publisher EventPublisher
	summaries cache.Cache[core.Overview]

	// gen counts writes; an overview computed across a write is not cached.
	genMu sync.Mutex
	gen   uint64
}

// Option configures an ExpenseService.
type Option func(*ExpenseService)

// WithPublisher enables change notifications.
func WithPublisher(p EventPublisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithSummaryCache replaces the default summary cache.
func WithSummaryCache(c cache.Cache[core.Overview]) Option {
	return func(s *ExpenseService) { s.summaries = c }
}

func NewExpenseService(store records.Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:     store,
		summaries: cache.NewLRUCache[core.Overview](64, 5*time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddExpense validates and stores e, returning it with its assigned ID.
func (s *ExpenseService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	stored, err := s.store.Add(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}
	s.invalidate()
	s.publish(ctx, amqp.NewExpenseAddedEvent(stored))
	return stored, nil
}

// ListExpenses returns the records in rng (nil for all) by date.
func (s *ExpenseService) ListExpenses(ctx context.Context, rng *core.DateRange) ([]core.Expense, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	items, err := s.store.Query(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return items, nil
}

// TotalAmount sums the records in rng.
func (s *ExpenseService) TotalAmount(ctx context.Context, rng *core.DateRange) (core.Money, error) {
	if err := rng.Validate(); err != nil {
		return core.Money{}, err
	}
	total, err := s.store.SumAmount(ctx, rng)
	if err != nil {
		return core.Money{}, fmt.Errorf("total amount: %w", err)
	}
	return total, nil
}

// DeleteExpense removes every record value-equal to e.
func (s *ExpenseService) DeleteExpense(ctx context.Context, e core.Expense) (int64, error) {
	n, err := s.store.Delete(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("delete expense: %w", err)
	}
	if n > 0 {
		s.invalidate()
		s.publish(ctx, amqp.NewExpensesDeletedEvent(e.Normalized(), n))
	}
	return n, nil
}

// DeleteExpenseByID removes exactly the record with the given ID.
func (s *ExpenseService) DeleteExpenseByID(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate()
	s.publish(ctx, amqp.NewExpenseDeletedByIDEvent(id))
	return nil
}

// Overview returns the total and both breakdowns for rng, served from the
// cache while no write has happened since it was computed.
func (s *ExpenseService) Overview(ctx context.Context, rng *core.DateRange) (core.Overview, error) {
	if err := rng.Validate(); err != nil {
		return core.Overview{}, err
	}
	key := rng.String()
	if ov, ok := s.summaries.Get(key); ok {
		return ov, nil
	}
	gen := s.generation()
	items, err := s.store.Query(ctx, rng)
	if err != nil {
		return core.Overview{}, fmt.Errorf("summarize expenses: %w", err)
	}
	ov := summary.Overview(rng, items)
	s.remember(gen, key, ov)
	return ov, nil
}

// invalidate drops cached summaries after a committed write.
func (s *ExpenseService) invalidate() {
	s.genMu.Lock()
	s.gen++
	s.summaries.Purge()
	s.genMu.Unlock()
}

func (s *ExpenseService) generation() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen
}

// remember caches ov unless a write committed since gen was read.
func (s *ExpenseService) remember(gen uint64, key string, ov core.Overview) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gen != gen {
		slog.Debug("Discarding overview computed across a write", "range", key)
		return
	}
	s.summaries.Set(key, ov)
}

func (s *ExpenseService) SummaryByCategory(ctx context.Context, rng *core.DateRange) ([]core.CategoryTotal, error) {
	ov, err := s.Overview(ctx, rng)
	if err != nil {
		return nil, err
	}
	return ov.ByCategory, nil
}

func (s *ExpenseService) SummaryByMonth(ctx context.Context, rng *core.DateRange) ([]core.MonthTotal, error) {
	ov, err := s.Overview(ctx, rng)
	if err != nil {
		return nil, err
	}
	return ov.ByMonth, nil
}

// publish never fails the caller: the write has already been committed.
func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", ev.Type,
			"id", ev.ID,
			"error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
