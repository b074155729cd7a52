// Package postgres is a records.Store backed by a PostgreSQL server through
// gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"walletnote/internal/core"
	"walletnote/internal/records"
)

var _ records.Store = (*Store)(nil)

type expenseRow struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Date        time.Time `gorm:"type:date;not null;index"`
	Amount      float64   `gorm:"not null;check:amount > 0"`
	Category    string    `gorm:"size:100;not null"`
	Description *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (expenseRow) TableName() string { return "expenses" }

type Store struct {
	mu     sync.Mutex
	db     *gorm.DB
	closed bool
}

// Open connects to dsn and migrates the expenses table.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", core.ErrStorageUnavailable)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", core.ErrStorageUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: get sql db: %w", core.ErrStorageUnavailable, err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.Init(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Init(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&expenseRow{}); err != nil {
		return fmt.Errorf("%w: migrate expenses: %w", core.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Add(ctx context.Context, e core.Expense) (core.Expense, error) {
	e, err := records.PrepareInsert(e)
	if err != nil {
		return core.Expense{}, err
	}
	row := expenseRow{
		ID:          e.ID,
		Date:        e.Date.Time,
		Amount:      e.Amount.Float64(),
		Category:    e.Category,
		Description: optional(e.Description),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.Expense{}, fmt.Errorf("%w: %w: create expense %s", core.ErrStorageWrite, core.ErrDuplicate, e.ID)
		}
		slog.ErrorContext(ctx, "Failed to insert expense", "error", err, "date", e.Date.String())
		return core.Expense{}, fmt.Errorf("%w: create expense: %w", core.ErrStorageWrite, err)
	}
	slog.InfoContext(ctx, "Expense saved to Postgres",
		"id", e.ID,
		"date", e.Date.String(),
		"amount", e.Amount.String(),
		"category", e.Category)
	return e, nil
}

func (s *Store) Query(ctx context.Context, rng *core.DateRange) ([]core.Expense, error) {
	var rows []expenseRow
	q := within(s.db.WithContext(ctx), rng).Order("date").Order("created_at").Order("id")
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list expenses: %w", core.ErrStorageRead, err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCore())
	}
	return out, nil
}

func (s *Store) SumAmount(ctx context.Context, rng *core.DateRange) (core.Money, error) {
	var total float64
	q := within(s.db.WithContext(ctx).Model(&expenseRow{}), rng)
	if err := q.Select("COALESCE(SUM(amount), 0)").Scan(&total).Error; err != nil {
		return core.Money{}, fmt.Errorf("%w: sum expenses: %w", core.ErrStorageRead, err)
	}
	return core.NewMoney(total), nil
}

func (s *Store) Delete(ctx context.Context, e core.Expense) (int64, error) {
	e = e.Normalized()
	res := s.db.WithContext(ctx).
		Where("date = ? AND amount = ? AND category = ? AND description IS NOT DISTINCT FROM ?",
			e.Date.String(), e.Amount.Float64(), e.Category, optional(e.Description)).
		Delete(&expenseRow{})
	if res.Error != nil {
		slog.ErrorContext(ctx, "Failed to delete expenses", "error", res.Error, "date", e.Date.String())
		return 0, fmt.Errorf("%w: delete expenses: %w", core.ErrStorageWrite, res.Error)
	}
	slog.InfoContext(ctx, "Expenses deleted from Postgres",
		"removed", res.RowsAffected,
		"date", e.Date.String(),
		"category", e.Category)
	return res.RowsAffected, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&expenseRow{})
	if res.Error != nil {
		return fmt.Errorf("%w: delete expense %s: %w", core.ErrStorageWrite, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete expense %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Expense deleted from Postgres", "id", id)
	return nil
}

func within(q *gorm.DB, rng *core.DateRange) *gorm.DB {
	if rng == nil {
		return q
	}
	return q.Where("date BETWEEN ? AND ?", rng.Start.String(), rng.End.String())
}

func (row expenseRow) toCore() core.Expense {
	e := core.Expense{
		ID:       row.ID,
		Date:     core.DateOf(row.Date),
		Amount:   core.NewMoney(row.Amount),
		Category: row.Category,
	}
	if row.Description != nil {
		e.Description = *row.Description
	}
	return e
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
