package backend

import (
	"context"
	"errors"
	"fmt"

	"conti/internal/api"
	"conti/internal/ledger/memory"
	clog "conti/internal/log"
	"conti/internal/session"
	"conti/internal/storage"
)

type DefaultFactory struct {
	logger *clog.Logger
}

func NewFactory(logger *clog.Logger) Factory {
	if logger == nil {
		logger = clog.New(clog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(clog.ComponentLedger)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case APIBackend:
		return f.createAPIBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// The api backend persists its session in the SQLite database, which also
// holds the worker's mirror.
func (f *DefaultFactory) createAPIBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	sess := session.New(repo)
	if err := sess.Hydrate(ctx); err != nil && !errors.Is(err, session.ErrTokenExpired) {
		_ = repo.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	} else if err != nil {
		f.logger.WarnContext(ctx, "Stored session expired, run login again")
	}

	var opts []api.Option
	if config.PageSize > 0 {
		opts = append(opts, api.WithPageSize(config.PageSize))
	}
	client, err := api.New(config.APIBaseURL, sess, config.APITimeout, opts...)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized API backend",
		"base_url", config.APIBaseURL,
		"authenticated", sess.IsAuthenticated())

	return &BackendResult{
		Ledger:  client,
		Session: sess,
		Mirror:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend (read-only mirror)", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:  repo,
		Mirror:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.SeedFile == "" {
		f.logger.Info("Initialized empty memory backend")
		return &BackendResult{Ledger: memory.New(nil, nil, nil)}, nil
	}

	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed file: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{Ledger: store}, nil
}
