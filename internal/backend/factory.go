package backend

import (
	"context"
	"fmt"
	"log/slog"

	"walletnote/internal/amqp"
	"walletnote/internal/cache"
	"walletnote/internal/core"
	"walletnote/internal/records"
	"walletnote/internal/records/google"
	"walletnote/internal/records/memory"
	"walletnote/internal/services"
	"walletnote/internal/storage"
	"walletnote/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store, connects the optional event
// publisher and returns the service that owns both.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.OpenStore(ctx, config)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without notifications", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(client))
		}
	}

	size, ttl := config.SummaryCacheSize, config.SummaryCacheTTL
	if size <= 0 {
		size = 64
	}
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	summaries := cache.NewLRUCache[core.Overview](size, ttl)
	opts = append(opts, services.WithSummaryCache(summaries))

	svc := services.NewExpenseService(store, opts...)
	f.logger.Info("Backend ready", "backend", config.Type.String())

	return &BackendResult{
		Service:      svc,
		SummaryCache: summaries,
		Cleanup:      svc.Close,
	}, nil
}

func (f *DefaultFactory) OpenStore(ctx context.Context, config Config) (records.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case PostgresBackend:
		store, err := postgres.Open(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return store, nil

	case SheetsBackend:
		store, err := google.New(ctx, google.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets store: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)
		return store, nil

	case MemoryBackend:
		if config.MemorySeedFile == "" {
			f.logger.Info("Initialized memory backend")
			return memory.New(), nil
		}
		store, err := memory.NewFromFile(config.MemorySeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile, "records", store.Len())
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
