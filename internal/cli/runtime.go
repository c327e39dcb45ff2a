package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parlor/parlor/internal/config"
	"github.com/parlor/parlor/internal/ledger"
	"github.com/parlor/parlor/internal/orchestrator"
	"github.com/parlor/parlor/internal/planner"
	"github.com/parlor/parlor/internal/provider"
	"github.com/parlor/parlor/internal/quota"
	"github.com/parlor/parlor/internal/roster"
	"github.com/parlor/parlor/internal/store"
	"github.com/parlor/parlor/internal/streamer"
	"github.com/parlor/parlor/internal/tools"
)

// runtime bundles the wired collaborators shared by the chat and serve
// commands.
type runtime struct {
	cfg     *config.Config
	store   *store.Store
	tracker *quota.Tracker
	orch    *orchestrator.Orchestrator
}

// buildRuntime loads config, opens the store, wires the turn pipeline, and
// syncs the configured roster.
func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Providers.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("no API key configured (set PARLOR_OPENAI_API_KEY or providers.openai.apiKey)")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.Open(cfg.Paths.DBPath)
	if err != nil {
		return nil, err
	}

	client := provider.NewOpenAIClient(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name)

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)
	bridge := tools.NewBridge(registry, 60*time.Second)

	tracker := quota.NewTracker(cfg.Quota)
	if err := roster.Sync(st, cfg, tracker); err != nil {
		st.Close()
		return nil, err
	}

	orch := orchestrator.New(orchestrator.Options{
		Store:             st,
		Planner:           planner.New(client),
		Streamer:          streamer.New(client, st),
		Bridge:            bridge,
		Ledger:            ledger.New(st),
		Quota:             tracker,
		MaxToolIterations: cfg.Model.MaxToolIterations,
		HistoryWindow:     cfg.Model.HistoryWindow,
	})

	return &runtime{cfg: cfg, store: st, tracker: tracker, orch: orch}, nil
}

func (r *runtime) Close() {
	r.store.Close()
}
