package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"walletnote/internal/amqp"
	"walletnote/internal/core"
	"walletnote/internal/records/memory"
	"walletnote/internal/records/recordstest"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
	closed bool
}

func (f *fakePublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

// countingStore wraps the memory store to count queries reaching it.
type countingStore struct {
	*memory.Store
	queries int
	failAdd error
}

func (c *countingStore) Query(ctx context.Context, rng *core.DateRange) ([]core.Expense, error) {
	c.queries++
	return c.Store.Query(ctx, rng)
}

func (c *countingStore) Add(ctx context.Context, e core.Expense) (core.Expense, error) {
	if c.failAdd != nil {
		return core.Expense{}, c.failAdd
	}
	return c.Store.Add(ctx, e)
}

func newTestService(t *testing.T) (*ExpenseService, *countingStore, *fakePublisher) {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	pub := &fakePublisher{}
	svc := NewExpenseService(store, WithPublisher(pub))
	t.Cleanup(func() { _ = svc.Close() })
	return svc, store, pub
}

func seedScenario(t *testing.T, svc *ExpenseService) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []core.Expense{
		recordstest.Expense(t, "2024-01-05", "50.00", "Food", ""),
		recordstest.Expense(t, "2024-01-20", "30.00", "Food", "snacks"),
		recordstest.Expense(t, "2024-02-01", "100.00", "Housing", ""),
	} {
		if _, err := svc.AddExpense(ctx, e); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
}

func TestAddExpensePublishesEvent(t *testing.T) {
	svc, _, pub := newTestService(t)

	stored, err := svc.AddExpense(context.Background(), recordstest.Expense(t, "2024-01-05", "12.5", "Food", "pizza"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("expected assigned id")
	}
	if len(pub.events) != 1 || pub.events[0].Type != amqp.EventExpenseAdded || pub.events[0].ID != stored.ID {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestAddExpenseValidation(t *testing.T) {
	svc, _, pub := newTestService(t)
	e := recordstest.Expense(t, "2024-01-05", "12.5", "", "")

	_, err := svc.AddExpense(context.Background(), e)
	if !errors.Is(err, core.ErrValidation) || !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected empty category validation error, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatal("no event expected for rejected write")
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, store, pub := newTestService(t)
	pub.err = errors.New("broker down")

	if _, err := svc.AddExpense(context.Background(), recordstest.Expense(t, "2024-01-05", "1", "Food", "")); err != nil {
		t.Fatalf("add should succeed despite publish failure: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("record not stored")
	}
}

func TestStorageFailureIsReturned(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.failAdd = core.ErrStorageWrite

	_, err := svc.AddExpense(context.Background(), recordstest.Expense(t, "2024-01-05", "1", "Food", ""))
	if !errors.Is(err, core.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
}

func TestScenarioThroughService(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedScenario(t, svc)
	ctx := context.Background()
	jan := recordstest.Range(t, "2024-01-01", "2024-01-31")

	total, err := svc.TotalAmount(ctx, jan)
	if err != nil || total.String() != "80" {
		t.Fatalf("TotalAmount(jan) = %s, %v; want 80", total, err)
	}

	cats, err := svc.SummaryByCategory(ctx, nil)
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(cats) != 2 || cats[0].Category != "Housing" || cats[1].Category != "Food" || cats[1].Total.String() != "80" {
		t.Fatalf("unexpected category summary: %+v", cats)
	}

	months, err := svc.SummaryByMonth(ctx, nil)
	if err != nil {
		t.Fatalf("by month: %v", err)
	}
	if len(months) != 2 || months[0].Month != "2024-01" || months[1].Month != "2024-02" {
		t.Fatalf("unexpected month summary: %+v", months)
	}
}

func TestSummaryCacheInvalidatedByWrites(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedScenario(t, svc)
	ctx := context.Background()

	if _, err := svc.Overview(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SummaryByCategory(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if store.queries != 1 {
		t.Fatalf("expected cached second read, store saw %d queries", store.queries)
	}

	n, err := svc.DeleteExpense(ctx, recordstest.Expense(t, "2024-02-01", "100", "Housing", ""))
	if err != nil || n != 1 {
		t.Fatalf("delete = %d, %v", n, err)
	}
	ov, err := svc.Overview(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if store.queries != 2 {
		t.Fatalf("expected recompute after write, store saw %d queries", store.queries)
	}
	if ov.Count != 2 || ov.Total.String() != "80" {
		t.Fatalf("stale overview: %+v", ov)
	}
}

// gatedStore holds its first query after reading, so a write can commit
// while that read is still in flight.
type gatedStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Query(ctx context.Context, rng *core.DateRange) ([]core.Expense, error) {
	items, err := g.Store.Query(ctx, rng)
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return items, err
}

func TestOverviewReadAcrossWriteIsNotCached(t *testing.T) {
	store := &gatedStore{
		Store:   memory.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewExpenseService(store)
	ctx := context.Background()

	done := make(chan core.Overview)
	go func() {
		ov, err := svc.Overview(ctx, nil)
		if err != nil {
			t.Error(err)
		}
		done <- ov
	}()

	<-store.entered
	if _, err := svc.AddExpense(ctx, recordstest.Expense(t, "2024-01-05", "50", "Food", "")); err != nil {
		t.Fatal(err)
	}
	close(store.release)
	if ov := <-done; ov.Count != 0 {
		t.Fatalf("in-flight overview count = %d, want 0", ov.Count)
	}

	ov, err := svc.Overview(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Count != 1 || ov.Total.String() != "50" {
		t.Fatalf("stale overview after write: %+v", ov)
	}
}

func TestDeleteWithoutMatchPublishesNothing(t *testing.T) {
	svc, _, pub := newTestService(t)
	seedScenario(t, svc)
	before := len(pub.events)

	n, err := svc.DeleteExpense(context.Background(), recordstest.Expense(t, "2024-03-01", "1", "Food", ""))
	if err != nil || n != 0 {
		t.Fatalf("delete = %d, %v", n, err)
	}
	if len(pub.events) != before {
		t.Fatal("no event expected when nothing was removed")
	}
}

func TestDeleteExpenseByID(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	stored, err := svc.AddExpense(ctx, recordstest.Expense(t, "2024-01-05", "9", "Other", ""))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteExpenseByID(ctx, stored.ID); err != nil {
		t.Fatalf("delete by id: %v", err)
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != amqp.EventExpenseDeleted || last.ID != stored.ID {
		t.Fatalf("unexpected event %+v", last)
	}
	if err := svc.DeleteExpenseByID(ctx, stored.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRangeValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	start, _ := core.ParseDate("2024-02-01")
	end, _ := core.ParseDate("2024-01-01")
	inverted := &core.DateRange{Start: start, End: end}

	if _, err := svc.ListExpenses(context.Background(), inverted); !errors.Is(err, core.ErrInvertedRange) {
		t.Fatalf("expected ErrInvertedRange, got %v", err)
	}
	if _, err := svc.Overview(context.Background(), &core.DateRange{Start: start}); !errors.Is(err, core.ErrPartialRange) {
		t.Fatalf("expected ErrPartialRange, got %v", err)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewExpenseService(memory.New(), WithPublisher(pub))
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !pub.closed {
		t.Fatal("publisher not closed")
	}
}
