package backend

import (
	"context"
	"fmt"

	"martelinho/internal/log"
	"martelinho/internal/storage"
	"martelinho/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to reach SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", log.FieldOperation, log.OpStartup, "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Services: store.Services(),
		Users:    store,
		Ping:     store.Ping,
		Cleanup:  store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()

	f.logger.Info("Initialized memory backend", log.FieldOperation, log.OpStartup)

	return &BackendResult{
		Services: store.Services(),
		Users:    store,
		Ping:     func(context.Context) error { return nil },
	}, nil
}
