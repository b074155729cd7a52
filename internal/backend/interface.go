// Package backend builds the one Record Store a process runs against and
// wires the expense service around it.
package backend

import (
	"context"
	"time"

	"walletnote/internal/cache"
	"walletnote/internal/records"
	"walletnote/internal/services"
)

// CleanupFunc releases whatever CreateBackend opened.
type CleanupFunc func() error

// BackendResult contains the service over the selected store.
type BackendResult struct {
	Service *services.ExpenseService
	// SummaryCache is registered with a cache.Manager by the caller.
	SummaryCache cache.Cleaner
	Cleanup      CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// OpenStore opens the bare store without service, cache or publisher.
	OpenStore(ctx context.Context, config Config) (records.Store, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string

	// PostgreSQL
	PostgresDSN string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory; empty means start empty
	MemorySeedFile string

	// Change notifications; empty URL disables them
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

const defaultSummaryTTL = 5 * time.Minute

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
