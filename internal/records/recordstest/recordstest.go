// Package recordstest holds the behavioural suite every records.Store
// implementation must pass.
package recordstest

import (
	"context"
	"errors"
	"testing"

	"walletnote/internal/core"
	"walletnote/internal/records"
	"walletnote/internal/summary"
)

// Factory returns a fresh, initialized, empty store. The suite closes it.
type Factory func(t *testing.T) records.Store

// Run exercises the full store contract against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s records.Store)
	}{
		{"InitIsIdempotent", testInitIsIdempotent},
		{"AddAssignsIDAndQueryReturnsRecord", testAddAndQuery},
		{"AddRejectsInvalidRecords", testAddRejectsInvalid},
		{"QueryRangeIsInclusive", testQueryRangeInclusive},
		{"QueryEmptyIsNotAnError", testQueryEmpty},
		{"QueryOrdersByDateThenInsertion", testQueryOrdering},
		{"SumAmount", testSumAmount},
		{"Scenario", testScenario},
		{"DeleteRemovesEveryValueEqualRecord", testDeleteMultiset},
		{"DeleteMatchesAbsentDescriptionExactly", testDeleteNullDescription},
		{"DeleteWithoutMatchRemovesNothing", testDeleteNoMatch},
		{"DeleteByID", testDeleteByID},
		{"AddRejectsStoredID", testAddRejectsStoredID},
		{"SummariesAgreeWithSum", testSummariesAgree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		if err := s.Close(); err != nil {
			t.Fatalf("first close: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("second close: %v", err)
		}
	})
}

// Expense builds a record from literal fields, failing the test on bad input.
func Expense(t *testing.T, date, amount, category, desc string) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("date %q: %v", date, err)
	}
	m, err := core.ParseMoney(amount)
	if err != nil {
		t.Fatalf("amount %q: %v", amount, err)
	}
	return core.Expense{Date: d, Amount: m, Category: category, Description: desc}
}

// Range builds an inclusive range from literal dates.
func Range(t *testing.T, start, end string) *core.DateRange {
	t.Helper()
	r, err := core.ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("range %s..%s: %v", start, end, err)
	}
	return r
}

func mustAdd(t *testing.T, s records.Store, e core.Expense) core.Expense {
	t.Helper()
	stored, err := s.Add(context.Background(), e)
	if err != nil {
		t.Fatalf("add %+v: %v", e, err)
	}
	return stored
}

func mustQuery(t *testing.T, s records.Store, rng *core.DateRange) []core.Expense {
	t.Helper()
	got, err := s.Query(context.Background(), rng)
	if err != nil {
		t.Fatalf("query %s: %v", rng, err)
	}
	return got
}

func countValue(list []core.Expense, e core.Expense) int {
	n := 0
	for _, r := range list {
		if r.SameValue(e) {
			n++
		}
	}
	return n
}

func testInitIsIdempotent(t *testing.T, s records.Store) {
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	mustAdd(t, s, Expense(t, "2024-01-01", "1", "Food", ""))
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init after writes: %v", err)
	}
	if got := mustQuery(t, s, nil); len(got) != 1 {
		t.Fatalf("init must not drop data, got %d records", len(got))
	}
}

func testAddAndQuery(t *testing.T, s records.Store) {
	in := Expense(t, "2024-03-10", "12.5", "Transportation", "  train ticket ")
	stored := mustAdd(t, s, in)
	if !records.ValidID(stored.ID) {
		t.Fatalf("expected generated id, got %q", stored.ID)
	}
	if stored.Description != "train ticket" {
		t.Fatalf("expected trimmed description, got %q", stored.Description)
	}

	got := mustQuery(t, s, Range(t, "2024-03-01", "2024-03-31"))
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.ID != stored.ID || !r.SameValue(in) {
		t.Fatalf("round trip mismatch: stored %+v, got %+v", stored, r)
	}
	if r.Amount.String() != "12.5" || r.Date.String() != "2024-03-10" {
		t.Fatalf("unexpected fields %s %s", r.Amount, r.Date)
	}
}

func testAddRejectsInvalid(t *testing.T, s records.Store) {
	ctx := context.Background()
	bad := []core.Expense{
		{Date: core.NewDate(2024, 1, 1), Amount: core.NewMoney(0), Category: "Food"},
		{Date: core.NewDate(2024, 1, 1), Amount: core.NewMoney(-5), Category: "Food"},
		{Date: core.Date{}, Amount: core.NewMoney(5), Category: "Food"},
		{Date: core.NewDate(2024, 1, 1), Amount: core.NewMoney(5), Category: ""},
	}
	for i, e := range bad {
		if _, err := s.Add(ctx, e); !errors.Is(err, core.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if got := mustQuery(t, s, nil); len(got) != 0 {
		t.Fatalf("rejected records must not be stored, got %d", len(got))
	}
}

func testQueryRangeInclusive(t *testing.T, s records.Store) {
	mustAdd(t, s, Expense(t, "2023-12-31", "1", "Food", ""))
	mustAdd(t, s, Expense(t, "2024-01-01", "2", "Food", ""))
	mustAdd(t, s, Expense(t, "2024-01-31", "3", "Food", ""))
	mustAdd(t, s, Expense(t, "2024-02-01", "4", "Food", ""))

	got := mustQuery(t, s, Range(t, "2024-01-01", "2024-01-31"))
	if len(got) != 2 {
		t.Fatalf("expected both boundary days, got %d records", len(got))
	}
	if all := mustQuery(t, s, nil); len(all) != 4 {
		t.Fatalf("expected 4 records without range, got %d", len(all))
	}
}

func testQueryEmpty(t *testing.T, s records.Store) {
	got, err := s.Query(context.Background(), Range(t, "2030-01-01", "2030-12-31"))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func testQueryOrdering(t *testing.T, s records.Store) {
	first := mustAdd(t, s, Expense(t, "2024-05-02", "1", "Food", "b"))
	second := mustAdd(t, s, Expense(t, "2024-05-01", "2", "Food", "a"))
	third := mustAdd(t, s, Expense(t, "2024-05-02", "3", "Food", "c"))

	got := mustQuery(t, s, nil)
	want := []string{second.ID, first.ID, third.ID}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func testSumAmount(t *testing.T, s records.Store) {
	ctx := context.Background()
	sum, err := s.SumAmount(ctx, nil)
	if err != nil {
		t.Fatalf("sum on empty store: %v", err)
	}
	if !sum.IsZero() {
		t.Fatalf("expected zero on empty store, got %s", sum)
	}

	mustAdd(t, s, Expense(t, "2024-06-01", "10.25", "Food", ""))
	mustAdd(t, s, Expense(t, "2024-06-30", "4.75", "Medical", ""))
	mustAdd(t, s, Expense(t, "2024-07-01", "100", "Housing", ""))

	sum, err = s.SumAmount(ctx, Range(t, "2024-06-01", "2024-06-30"))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum.String() != "15" {
		t.Fatalf("expected 15, got %s", sum)
	}

	sum, err = s.SumAmount(ctx, Range(t, "2025-01-01", "2025-01-31"))
	if err != nil || !sum.IsZero() {
		t.Fatalf("expected zero for empty range, got %s (%v)", sum, err)
	}

	sum, err = s.SumAmount(ctx, nil)
	if err != nil || sum.String() != "115" {
		t.Fatalf("expected 115 overall, got %s (%v)", sum, err)
	}
}

func testScenario(t *testing.T, s records.Store) {
	ctx := context.Background()
	mustAdd(t, s, Expense(t, "2024-01-05", "50.00", "Food", ""))
	mustAdd(t, s, Expense(t, "2024-01-20", "30.00", "Food", "snacks"))
	mustAdd(t, s, Expense(t, "2024-02-01", "100.00", "Housing", ""))

	sum, err := s.SumAmount(ctx, Range(t, "2024-01-01", "2024-01-31"))
	if err != nil || sum.String() != "80" {
		t.Fatalf("expected January sum 80, got %s (%v)", sum, err)
	}

	all := mustQuery(t, s, nil)
	byCat := summary.ByCategory(all)
	if len(byCat) != 2 || byCat[0].Category != "Housing" || byCat[0].Total.String() != "100" ||
		byCat[1].Category != "Food" || byCat[1].Total.String() != "80" {
		t.Fatalf("unexpected category summary %+v", byCat)
	}
	byMonth := summary.ByMonth(all)
	if len(byMonth) != 2 || byMonth[0].Month != "2024-01" || byMonth[0].Total.String() != "80" ||
		byMonth[1].Month != "2024-02" || byMonth[1].Total.String() != "100" {
		t.Fatalf("unexpected month summary %+v", byMonth)
	}
}

func testDeleteMultiset(t *testing.T, s records.Store) {
	dup := Expense(t, "2024-04-04", "9.99", "Entertainment", "cinema")
	mustAdd(t, s, dup)
	mustAdd(t, s, dup)
	keep := mustAdd(t, s, Expense(t, "2024-04-04", "9.99", "Entertainment", "popcorn"))

	n, err := s.Delete(context.Background(), dup)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows removed, got %d", n)
	}

	got := mustQuery(t, s, nil)
	if countValue(got, dup) != 0 {
		t.Fatalf("value-equal records survived delete")
	}
	if len(got) != 1 || got[0].ID != keep.ID {
		t.Fatalf("unrelated record was removed: %+v", got)
	}
}

func testDeleteNullDescription(t *testing.T, s records.Store) {
	ctx := context.Background()
	absent := Expense(t, "2024-01-05", "50", "Food", "")
	present := Expense(t, "2024-01-05", "50", "Food", "lunch")
	mustAdd(t, s, absent)
	mustAdd(t, s, present)

	n, err := s.Delete(ctx, present)
	if err != nil || n != 1 {
		t.Fatalf("expected exactly the described record removed, got n=%d err=%v", n, err)
	}
	got := mustQuery(t, s, nil)
	if len(got) != 1 || got[0].HasDescription() {
		t.Fatalf("record without description must survive, got %+v", got)
	}

	n, err = s.Delete(ctx, absent)
	if err != nil || n != 1 {
		t.Fatalf("expected absent-description record removed, got n=%d err=%v", n, err)
	}
}

func testDeleteNoMatch(t *testing.T, s records.Store) {
	mustAdd(t, s, Expense(t, "2024-01-05", "50", "Food", ""))
	n, err := s.Delete(context.Background(), Expense(t, "2024-01-05", "51", "Food", ""))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing removed, got %d", n)
	}
	if got := mustQuery(t, s, nil); len(got) != 1 {
		t.Fatalf("expected record to survive, got %d", len(got))
	}
}

func testDeleteByID(t *testing.T, s records.Store) {
	ctx := context.Background()
	dup := Expense(t, "2024-08-08", "20", "Medical", "")
	a := mustAdd(t, s, dup)
	b := mustAdd(t, s, dup)

	if err := s.DeleteByID(ctx, a.ID); err != nil {
		t.Fatalf("delete by id: %v", err)
	}
	got := mustQuery(t, s, nil)
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("expected only the twin to remain, got %+v", got)
	}

	if err := s.DeleteByID(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := s.DeleteByID(ctx, records.NewID()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func testSummariesAgree(t *testing.T, s records.Store) {
	ctx := context.Background()
	mustAdd(t, s, Expense(t, "2024-01-01", "10.5", "Food", ""))
	mustAdd(t, s, Expense(t, "2024-02-14", "20.25", "Entertainment", "dinner"))
	mustAdd(t, s, Expense(t, "2024-02-15", "300", "School Tuition", ""))
	mustAdd(t, s, Expense(t, "2024-03-01", "0.25", "Food", "gum"))

	all := mustQuery(t, s, nil)
	sum, err := s.SumAmount(ctx, nil)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}

	var fromCategories core.Money
	for _, c := range summary.ByCategory(all) {
		fromCategories = fromCategories.Add(c.Total)
	}
	if !fromCategories.Equal(sum.Decimal) {
		t.Fatalf("category totals %s differ from stored sum %s", fromCategories, sum)
	}

	var fromMonths core.Money
	for _, m := range summary.ByMonth(all) {
		fromMonths = fromMonths.Add(m.Total)
	}
	if !fromMonths.Equal(sum.Decimal) {
		t.Fatalf("month totals %s differ from stored sum %s", fromMonths, sum)
	}
}

func testAddRejectsStoredID(t *testing.T, s records.Store) {
	ctx := context.Background()
	stored, err := s.Add(ctx, Expense(t, "2024-01-05", "50", "Food", ""))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err = s.Add(ctx, stored)
	if !errors.Is(err, core.ErrDuplicate) || !errors.Is(err, core.ErrStorageWrite) {
		t.Fatalf("expected ErrDuplicate wrapped in ErrStorageWrite, got %v", err)
	}

	got, err := s.Query(ctx, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("duplicate id stored: %d records", len(got))
	}
}
