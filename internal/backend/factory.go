package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/source/memory"
	"ledger/internal/source/postgres"
	"ledger/internal/source/postgrest"
	"ledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case PostgRESTBackend:
		return f.createPostgRESTBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createPostgRESTBackend(config Config) (*BackendResult, error) {
	client, err := postgrest.New(config.PostgRESTURL, config.PostgRESTAPIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgREST client: %w", err)
	}

	f.logger.Info("Initialized PostgREST backend",
		"url", config.PostgRESTURL,
		"api_key_set", config.PostgRESTAPIKey != "")

	return &BackendResult{Source: client}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := postgres.New(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres pool: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Source: store,
		Cleanup: func() error {
			store.Close()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite mirror backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Source:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store, err := memory.NewFromDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Source: store}, nil
}
