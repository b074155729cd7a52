package amqp

import (
	"encoding/json"
	"time"

	"walletnote/internal/core"
)

// EventType names what happened to the ledger.
type EventType string

const (
	EventExpenseAdded   EventType = "expense.added"
	EventExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is published after a successful write. Value deletes carry
// the removed tuple and count; id deletes carry only the ID.
type ExpenseEvent struct {
	Type        EventType `json:"type"`
	ID          string    `json:"id,omitempty"`
	Date        string    `json:"date,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Removed     int64     `json:"removed,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseAddedEvent describes a freshly stored record.
func NewExpenseAddedEvent(e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        EventExpenseAdded,
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Description: e.Description,
		Timestamp:   time.Now(),
	}
}

// NewExpensesDeletedEvent describes a value delete that removed n records.
func NewExpensesDeletedEvent(e core.Expense, n int64) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        EventExpenseDeleted,
		Date:        e.Date.String(),
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Description: e.Description,
		Removed:     n,
		Timestamp:   time.Now(),
	}
}

// NewExpenseDeletedByIDEvent describes the removal of one record by ID.
func NewExpenseDeletedByIDEvent(id string) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      EventExpenseDeleted,
		ID:        id,
		Removed:   1,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes a message body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
