// Package records defines the Record Store port every expense backend
// implements.
package records

import (
	"context"

	"github.com/google/uuid"

	"walletnote/internal/core"
)

// Ports for storage adapters.
type (
	ExpenseWriter interface {
		// Add validates and persists e, returning it with its assigned ID.
		Add(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	ExpenseReader interface {
		// Query returns every record inside rng (nil means all), ordered by
		// date then insertion.
		Query(ctx context.Context, rng *core.DateRange) ([]core.Expense, error)
		// SumAmount returns the total of the records inside rng, zero when
		// nothing matches.
		SumAmount(ctx context.Context, rng *core.DateRange) (core.Money, error)
	}

	ExpenseDeleter interface {
		// Delete removes every record value-equal to e and reports how many
		// were removed.
		Delete(ctx context.Context, e core.Expense) (int64, error)
		// DeleteByID removes exactly one record or returns core.ErrNotFound.
		DeleteByID(ctx context.Context, id string) error
	}

	Store interface {
		// Init ensures the backing schema exists. It is idempotent.
		Init(ctx context.Context) error
		ExpenseWriter
		ExpenseReader
		ExpenseDeleter
		// Close releases the backend. Calling it twice is a no-op.
		Close() error
	}
)

// NewID returns a fresh synthetic record identifier.
func NewID() string {
	return uuid.NewString()
}

// PrepareInsert normalizes e, validates it and assigns an ID when missing.
func PrepareInsert(e core.Expense) (core.Expense, error) {
	e = e.Normalized()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	return e, nil
}

// ValidID reports whether id looks like an identifier produced by NewID.
func ValidID(id string) bool {
	return uuid.Validate(id) == nil
}
