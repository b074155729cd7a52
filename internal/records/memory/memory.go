package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"walletnote/internal/core"
	"walletnote/internal/records"
)

var _ records.Store = (*Store)(nil)

// Store keeps expenses in a slice guarded by a mutex. Insertion order is
// preserved, which gives the same ordering guarantees as the SQL stores.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

func New() *Store {
	return &Store{}
}

// NewFromFile seeds a store from a CSV-like file of
// "date,amount,category[,description]" lines. Blank lines and lines starting
// with '#' are skipped. A file that cannot be read fails with
// core.ErrStorageUnavailable.
func NewFromFile(path string) (*Store, error) {
	s := New()
	lines, err := readLines(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read seed file: %w", core.ErrStorageUnavailable, err)
	}
	for i, line := range lines {
		parts := strings.SplitN(line, ",", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("seed line %d: expected date,amount,category[,description]", i+1)
		}
		d, err := core.ParseDate(parts[0])
		if err != nil {
			return nil, fmt.Errorf("seed line %d: %w", i+1, err)
		}
		m, err := core.ParseMoney(parts[1])
		if err != nil {
			return nil, fmt.Errorf("seed line %d: %w", i+1, err)
		}
		e := core.Expense{Date: d, Amount: m, Category: parts[2]}
		if len(parts) == 4 {
			e.Description = parts[3]
		}
		if _, err := s.Add(context.Background(), e); err != nil {
			return nil, fmt.Errorf("seed line %d: %w", i+1, err)
		}
	}
	return s, nil
}

// Init is a no-op: there is no schema to create.
func (s *Store) Init(_ context.Context) error {
	return nil
}

func (s *Store) Add(_ context.Context, e core.Expense) (core.Expense, error) {
	e, err := records.PrepareInsert(e)
	if err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == e.ID {
			return core.Expense{}, fmt.Errorf("%w: %w: create expense %s", core.ErrStorageWrite, core.ErrDuplicate, e.ID)
		}
	}
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) Query(_ context.Context, rng *core.DateRange) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.items {
		if rng.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) SumAmount(ctx context.Context, rng *core.DateRange) (core.Money, error) {
	items, err := s.Query(ctx, rng)
	if err != nil {
		return core.Money{}, err
	}
	var total core.Money
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *Store) Delete(_ context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	var removed int64
	for _, item := range s.items {
		if item.SameValue(e) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return removed, nil
}

func (s *Store) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
}

// Close is a no-op; the records live as long as the Store value.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
