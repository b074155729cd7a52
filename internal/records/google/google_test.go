package google

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"walletnote/internal/core"
	"walletnote/internal/records"
	"walletnote/internal/records/recordstest"
)

// fakeSheet keeps rows in memory and mimics the Values API closely enough
// for the store: appends go to the bottom, A1:E1 updates replace the header.
type fakeSheet struct {
	mu      sync.Mutex
	rows    [][]interface{}
	readErr error
	calls   []string
}

func (f *fakeSheet) getValues(_ context.Context, rng string) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "get "+rng)
	if f.readErr != nil {
		return nil, f.readErr
	}
	if strings.HasSuffix(rng, "A1:E1") {
		if len(f.rows) == 0 {
			return nil, nil
		}
		return [][]interface{}{f.rows[0]}, nil
	}
	out := make([][]interface{}, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeSheet) appendRow(_ context.Context, _ string, row []interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeSheet) updateValues(_ context.Context, rng string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update "+rng)
	if len(f.rows) == 0 {
		f.rows = append(f.rows, rows[0])
		return nil
	}
	f.rows[0] = rows[0]
	return nil
}

func (f *fakeSheet) deleteRows(_ context.Context, _ string, rows []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sorted := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, r := range sorted {
		f.rows = append(f.rows[:r], f.rows[r+1:]...)
	}
	return nil
}

func newFakeStore(t *testing.T) (*Store, *fakeSheet) {
	t.Helper()
	api := &fakeSheet{}
	s := newStore(api, "")
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s, api
}

func TestStoreContract(t *testing.T) {
	recordstest.Run(t, func(t *testing.T) records.Store {
		s, _ := newFakeStore(t)
		return s
	})
}

func TestInitWritesHeaderOnce(t *testing.T) {
	s, api := newFakeStore(t)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	updates := 0
	for _, c := range api.calls {
		if strings.HasPrefix(c, "update ") {
			updates++
		}
	}
	if updates != 1 {
		t.Fatalf("expected header written once, got %d updates", updates)
	}
	if len(api.rows) != 1 || api.rows[0][0] != "ID" {
		t.Fatalf("unexpected sheet contents: %v", api.rows)
	}
}

func TestDefaultSheetName(t *testing.T) {
	s, api := newFakeStore(t)
	if s.sheet != "Expenses" {
		t.Fatalf("sheet = %q, want Expenses", s.sheet)
	}
	if api.calls[0] != "get 'Expenses'!A1:E1" {
		t.Fatalf("unexpected first call %q", api.calls[0])
	}
}

func TestQuerySkipsMalformedRows(t *testing.T) {
	s, api := newFakeStore(t)
	api.rows = append(api.rows,
		[]interface{}{"a", "2024-01-05", 50.0, "Food", ""},
		[]interface{}{},
		[]interface{}{"b", "not a date", 10.0, "Food"},
		[]interface{}{"c", "2024-01-06", "-3", "Food"},
		[]interface{}{"d", "2024-01-07", "12,5", "Transport", "bus"},
	)

	got, err := s.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid rows, got %d: %+v", len(got), got)
	}
	if got[1].ID != "d" || got[1].Amount.String() != "12.5" || got[1].Description != "bus" {
		t.Fatalf("unexpected parsed row: %+v", got[1])
	}
}

func TestReadFailureIsStorageRead(t *testing.T) {
	s, api := newFakeStore(t)
	api.readErr = errors.New("quota exceeded")

	if _, err := s.Query(context.Background(), nil); !errors.Is(err, core.ErrStorageRead) {
		t.Fatalf("expected ErrStorageRead, got %v", err)
	}
	if _, err := s.Delete(context.Background(), recordstest.Expense(t, "2024-01-05", "50", "Food", "")); !errors.Is(err, core.ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
}

func TestInitFailureIsStorageUnavailable(t *testing.T) {
	api := &fakeSheet{readErr: errors.New("forbidden")}
	s := newStore(api, "Ledger")
	if err := s.Init(context.Background()); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name    string
		cols    []string
		wantErr bool
		want    string
	}{
		{"full", []string{"id1", "2024-02-01", "9.99", "Food", " pizza "}, false, "pizza"},
		{"no description", []string{"id2", "2024-02-01", "9.99", "Food"}, false, ""},
		{"too short", []string{"id3", "2024-02-01", "9.99"}, true, ""},
		{"bad amount", []string{"id4", "2024-02-01", "abc", "Food"}, true, ""},
		{"bad date", []string{"id5", "01/02/2024", "1", "Food"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := parseRow(tt.cols)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && e.Description != tt.want {
				t.Fatalf("description = %q, want %q", e.Description, tt.want)
			}
		})
	}
}

func TestToStringsFormatsNumbersPlainly(t *testing.T) {
	got := toStrings([]interface{}{1000000.0, 12.5, " x "})
	want := []string{"1000000", "12.5", "x"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toStrings[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s, api := newFakeStore(t)
	ctx := context.Background()
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	before := len(api.calls)

	e := recordstest.Expense(t, "2024-01-05", "50", "Food", "")
	checks := []struct {
		name string
		err  error
	}{
		{"add", func() error { _, err := s.Add(ctx, e); return err }()},
		{"query", func() error { _, err := s.Query(ctx, nil); return err }()},
		{"sum", func() error { _, err := s.SumAmount(ctx, nil); return err }()},
		{"delete", func() error { _, err := s.Delete(ctx, e); return err }()},
		{"delete by id", s.DeleteByID(ctx, "x")},
	}
	for _, c := range checks {
		if !errors.Is(c.err, core.ErrStorageUnavailable) {
			t.Errorf("%s: expected ErrStorageUnavailable, got %v", c.name, c.err)
		}
	}
	if len(api.calls) != before || len(api.rows) != 1 {
		t.Fatalf("closed store reached the sheet: calls %v rows %v", api.calls[before:], api.rows)
	}
}
