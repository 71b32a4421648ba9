package commands

import (
	"context"
	"fmt"
	"io"

	"conti/internal/backend"
	"conti/internal/cache"
	"conti/internal/cli"
	"conti/internal/config"
	clog "conti/internal/log"
	"conti/internal/services"
)

// app is what every command needs: configuration, a logger, the opened
// backend and the cached report service on top of it.
type app struct {
	cfg     *config.Config
	logger  *clog.Logger
	backend *backend.BackendResult
	cache   *cache.QueryCache
	reports *services.ReportService
}

// openApp loads configuration from the environment. A non-empty seedFile
// forces the memory backend.
func openApp(ctx context.Context, logOut io.Writer, seedFile string) (*app, error) {
	cfg, err := loadConfig(seedFile)
	if err != nil {
		return nil, err
	}

	logger := cli.SetupLogger(cfg.SlogLevel(), logOut)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}

	qc := newQueryCache(cfg)
	return &app{
		cfg:     cfg,
		logger:  logger,
		backend: res,
		cache:   qc,
		reports: services.NewReportService(res.Ledger, qc),
	}, nil
}

func loadConfig(seedFile string) (*config.Config, error) {
	if seedFile == "" {
		return cli.LoadAndValidateConfig()
	}
	cfg := config.Load()
	cfg.DataBackend = "memory"
	cfg.SeedFile = seedFile
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// A zero CACHE_SIZE turns caching off; the LRU reads a zero size as unbounded
// so the TTL is zeroed instead.
func newQueryCache(cfg *config.Config) *cache.QueryCache {
	if cfg.CacheSize == 0 {
		return cache.NewQueryCache(0, 0)
	}
	return cache.NewQueryCache(cfg.CacheSize, cfg.CacheTTL)
}

func (a *app) Close() error {
	return a.backend.Close()
}
