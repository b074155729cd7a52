package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"walletnote/internal/core"
	"walletnote/internal/records"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ records.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	mu      sync.Mutex
	db      *sql.DB
	path    string
	queries *Queries
}

// NewSQLiteRepository opens the database at dbPath and brings its schema up
// to date. Any failure is reported as core.ErrStorageUnavailable.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %w", core.ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %w", core.ErrStorageUnavailable, err)
	}
	// SQLite allows one writer; a single connection serialises statements.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", core.ErrStorageUnavailable, err)
	}

	repo := &SQLiteRepository{
		db:      db,
		path:    dbPath,
		queries: New(db),
	}

	if err := repo.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// Init runs the embedded migrations.
func (r *SQLiteRepository) Init(ctx context.Context) error {
	version, err := RunMigrations(ctx, r.path)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
	}
	slog.DebugContext(ctx, "SQLite schema ready", "path", r.path, "version", version)
	return nil
}

func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *SQLiteRepository) Add(ctx context.Context, e core.Expense) (core.Expense, error) {
	e, err := records.PrepareInsert(e)
	if err != nil {
		return core.Expense{}, err
	}

	err = r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount.Float64(),
		Category:    e.Category,
		Description: nullString(e.Description),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.Expense{}, fmt.Errorf("%w: %w: create expense %s", core.ErrStorageWrite, core.ErrDuplicate, e.ID)
		}
		slog.ErrorContext(ctx, "Failed to insert expense", "error", err, "date", e.Date.String())
		return core.Expense{}, fmt.Errorf("%w: create expense: %w", core.ErrStorageWrite, err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"date", e.Date.String(),
		"amount", e.Amount.String(),
		"category", e.Category)

	return e, nil
}

func (r *SQLiteRepository) Query(ctx context.Context, rng *core.DateRange) ([]core.Expense, error) {
	var (
		rows []Expense
		err  error
	)
	if rng == nil {
		rows, err = r.queries.ListExpenses(ctx)
	} else {
		rows, err = r.queries.ListExpensesBetween(ctx, rng.Start.String(), rng.End.String())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list expenses: %w", core.ErrStorageRead, err)
	}

	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := row.toCore()
		if err != nil {
			return nil, fmt.Errorf("%w: decode expense %s: %w", core.ErrStorageRead, row.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SQLiteRepository) SumAmount(ctx context.Context, rng *core.DateRange) (core.Money, error) {
	var (
		total float64
		err   error
	)
	if rng == nil {
		total, err = r.queries.SumAmount(ctx)
	} else {
		total, err = r.queries.SumAmountBetween(ctx, rng.Start.String(), rng.End.String())
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: sum expenses: %w", core.ErrStorageRead, err)
	}
	return core.NewMoney(total), nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, e core.Expense) (int64, error) {
	e = e.Normalized()
	n, err := r.queries.DeleteExpensesByValue(ctx, DeleteExpensesByValueParams{
		Date:        e.Date.String(),
		Amount:      e.Amount.Float64(),
		Category:    e.Category,
		Description: nullString(e.Description),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to delete expenses", "error", err, "date", e.Date.String())
		return 0, fmt.Errorf("%w: delete expenses: %w", core.ErrStorageWrite, err)
	}

	slog.InfoContext(ctx, "Expenses deleted from SQLite",
		"removed", n,
		"date", e.Date.String(),
		"amount", e.Amount.String(),
		"category", e.Category)

	return n, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: delete expense %s: %w", core.ErrStorageWrite, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id)
	return nil
}

func (row Expense) toCore() (core.Expense, error) {
	d, err := core.ParseDate(string(row.Date))
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:          row.ID,
		Date:        d,
		Amount:      core.NewMoney(row.Amount),
		Category:    row.Category,
		Description: row.Description.String,
	}, nil
}

// isUniqueViolation reports a PRIMARY KEY or UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
