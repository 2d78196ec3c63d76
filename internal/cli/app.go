package cli

import (
	"context"
	"fmt"

	"github.com/quorumtrade/quorumtrade/internal/config"
	"github.com/quorumtrade/quorumtrade/internal/dataflows"
	"github.com/quorumtrade/quorumtrade/internal/engine"
	"github.com/quorumtrade/quorumtrade/internal/memory"
	"github.com/quorumtrade/quorumtrade/internal/orchestrator"
	"github.com/quorumtrade/quorumtrade/internal/storage"
)

// App bundles the long-lived dependencies behind the CLI commands: the
// reasoning engine, market data provider, memory store, and session store.
type App struct {
	cfg   *config.Config
	orch  *orchestrator.Orchestrator
	store *storage.Store
	mem   *memory.Store
}

// NewApp wires the application from configuration. The reasoning engine and
// data provider are required; memory and persistence failures are fatal here
// because the pipeline's degraded modes cover runtime faults, not a missing
// database at startup.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	eng, err := engine.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init reasoning engine: %w", err)
	}

	var provider dataflows.SnapshotProvider = dataflows.Offline()
	if cfg.OnlineTools {
		provider = dataflows.NewLiveProvider(cfg.FinnhubAPIKey, cfg.DataCacheDir, cfg.CacheEnabled)
	}

	mem, err := memory.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	orch := orchestrator.New(eng, provider, mem,
		orchestrator.WithStore(store),
		orchestrator.WithResultsDir(cfg.ResultsDir),
	)

	return &App{cfg: cfg, orch: orch, store: store, mem: mem}, nil
}

func (a *App) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.mem != nil {
		_ = a.mem.Close()
	}
}
