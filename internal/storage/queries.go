package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Expense is a row of the expenses table.
type Expense struct {
	ID          string
	Date        sqliteDate
	Amount      float64
	Category    string
	Description sql.NullString
}

// sqliteDate scans DATE columns whether the driver hands back text or a
// parsed time.
type sqliteDate string

func (d *sqliteDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = sqliteDate(v.Format("2006-01-02"))
	case string:
		*d = sqliteDate(truncateDate(v))
	case []byte:
		*d = sqliteDate(truncateDate(string(v)))
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
	return nil
}

func truncateDate(s string) string {
	if len(s) > len("2006-01-02") {
		return s[:len("2006-01-02")]
	}
	return s
}

const createExpense = `-- name: CreateExpense :exec
INSERT INTO expenses (id, date, amount, category, description)
VALUES (?, ?, ?, ?, ?)
`

type CreateExpenseParams struct {
	ID          string
	Date        string
	Amount      float64
	Category    string
	Description sql.NullString
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID,
		arg.Date,
		arg.Amount,
		arg.Category,
		arg.Description,
	)
	return err
}

const listExpenses = `-- name: ListExpenses :many
SELECT id, date, amount, category, description FROM expenses
ORDER BY date, rowid
`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const listExpensesBetween = `-- name: ListExpensesBetween :many
SELECT id, date, amount, category, description FROM expenses
WHERE date BETWEEN ? AND ?
ORDER BY date, rowid
`

func (q *Queries) ListExpensesBetween(ctx context.Context, start, end string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesBetween, start, end)
	if err != nil {
		return nil, err
	}
	return scanExpenses(rows)
}

const sumAmount = `-- name: SumAmount :one
SELECT COALESCE(SUM(amount), 0.0) FROM expenses
`

func (q *Queries) SumAmount(ctx context.Context) (float64, error) {
	row := q.db.QueryRowContext(ctx, sumAmount)
	var total float64
	err := row.Scan(&total)
	return total, err
}

const sumAmountBetween = `-- name: SumAmountBetween :one
SELECT COALESCE(SUM(amount), 0.0) FROM expenses
WHERE date BETWEEN ? AND ?
`

func (q *Queries) SumAmountBetween(ctx context.Context, start, end string) (float64, error) {
	row := q.db.QueryRowContext(ctx, sumAmountBetween, start, end)
	var total float64
	err := row.Scan(&total)
	return total, err
}

const deleteExpensesByValue = `-- name: DeleteExpensesByValue :execrows
DELETE FROM expenses
WHERE date = ? AND amount = ? AND category = ? AND description IS ?
`

type DeleteExpensesByValueParams struct {
	Date        string
	Amount      float64
	Category    string
	Description sql.NullString
}

func (q *Queries) DeleteExpensesByValue(ctx context.Context, arg DeleteExpensesByValueParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpensesByValue,
		arg.Date,
		arg.Amount,
		arg.Category,
		arg.Description,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpense = `-- name: DeleteExpense :execrows
DELETE FROM expenses WHERE id = ?
`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanExpenses(rows *sql.Rows) ([]Expense, error) {
	defer rows.Close()
	items := []Expense{}
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Amount,
			&i.Category,
			&i.Description,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
