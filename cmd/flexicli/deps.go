package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/flexicli/flexicli/internal/approval"
	"github.com/flexicli/flexicli/internal/builtintools"
	"github.com/flexicli/flexicli/internal/config"
	"github.com/flexicli/flexicli/internal/embeddings"
	"github.com/flexicli/flexicli/internal/executor"
	"github.com/flexicli/flexicli/internal/httpapi"
	"github.com/flexicli/flexicli/internal/miniagent"
	"github.com/flexicli/flexicli/internal/modelclient"
	"github.com/flexicli/flexicli/internal/monitor"
	"github.com/flexicli/flexicli/internal/orchestrator"
	"github.com/flexicli/flexicli/internal/planner"
	"github.com/flexicli/flexicli/internal/session"
	"github.com/flexicli/flexicli/internal/tools"
	"github.com/flexicli/flexicli/internal/vectorstore"
)

const systemPrompt = `You are FlexiCLI, a local coding assistant. Use the available tools to read, write, and inspect files in the current project, and answer concisely.`

// deps bundles every long-lived dependency a run or REPL session needs,
// so shutdown order is explicit and each component's lifetime is obvious at
// the call site.
type deps struct {
	cfg    *config.Config
	logger *zap.Logger
	cwd    string

	store      *session.Store
	projects   *session.Registry
	registry   *tools.Registry
	gate       *approval.Gate
	client     *modelclient.Client
	embedder   embeddings.Provider
	vecStore   *vectorstore.Store
	orch       *orchestrator.Orchestrator
	spawner    *miniagent.Spawner
	bus        *monitor.Bus
	hub        *monitor.Hub
	httpServer *httpapi.Server
}

func initDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*deps, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	store, err := session.OpenProject(cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to open project store: %w", err)
	}

	projects, err := session.NewRegistry()
	if err != nil {
		logger.Warn("failed to open global project registry, cross-project listing disabled", zap.Error(err))
	} else if err := projects.Touch(store.Meta()); err != nil {
		logger.Warn("failed to record project in global registry", zap.Error(err))
	}

	registry := tools.NewRegistry()
	builtintools.Register(registry, cwd)

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		RemoteEndpoint:   cfg.EmbeddingAPI.Endpoint,
		RemoteAPIKey:     cfg.EmbeddingAPI.APIKey.Value(),
		RemoteModel:      cfg.EmbeddingAPI.ModelName,
		RemoteDeployment: cfg.EmbeddingAPI.Deployment,
		LocalModel:       cfg.Embeddings.Model,
		LocalCacheDir:    cfg.Embeddings.CacheDir,
		CacheSize:        2048,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	vecStore, err := vectorstore.NewStoreFromConfig(cfg, provider, logger)
	if err != nil {
		store.Close()
		_ = provider.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	backend, err := modelclient.NewHTTPBackend(cfg.Model)
	if err != nil {
		store.Close()
		_ = provider.Close()
		return nil, fmt.Errorf("failed to initialize model backend: %w", err)
	}
	client := modelclient.NewClient(cfg, backend)

	transport := approval.NewConsoleTransport(os.Stdout, os.Stdin)
	gate := approval.NewGate(cfg, transport)

	bus := monitor.NewBus()

	orch := orchestrator.New(orchestrator.Deps{
		Store:    store,
		Planner:  planner.New(),
		Registry: registry,
		Gate:     gate,
		Client:   client,
		Sink:     bus,
	}, cwd, cfg.MiniAgent.DefaultTimeout, systemPrompt)

	spawner := miniagent.NewSpawner(orch, cfg.MiniAgent.MaxConcurrent, cfg.MiniAgent.QueueSize, bus)
	if err := spawner.Start(ctx); err != nil {
		store.Close()
		_ = provider.Close()
		return nil, fmt.Errorf("failed to start mini-agent spawner: %w", err)
	}

	var hub *monitor.Hub
	var httpServer *httpapi.Server
	if cfg.Monitoring.Enabled {
		hub = monitor.NewHub(logger)
		bus.Attach(hub)

		httpServer, err = httpapi.NewServer(httpapi.Deps{
			Store:    store,
			Registry: registry,
			Spawner:  spawner,
			Bus:      bus,
			Hub:      hub,
			Projects: projects,
			Logger:   logger,
		}, "127.0.0.1", cfg.Monitoring.Port)
		if err != nil {
			logger.Warn("failed to start monitoring http server, continuing without it", zap.Error(err))
		} else {
			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Warn("monitoring http server stopped", zap.Error(err))
				}
			}()
		}
	}

	return &deps{
		cfg:        cfg,
		logger:     logger,
		cwd:        cwd,
		store:      store,
		projects:   projects,
		registry:   registry,
		gate:       gate,
		client:     client,
		embedder:   provider,
		vecStore:   vecStore,
		orch:       orch,
		spawner:    spawner,
		bus:        bus,
		hub:        hub,
		httpServer: httpServer,
	}, nil
}

// Close releases every resource acquired by initDeps, in reverse order.
func (d *deps) Close(ctx context.Context) {
	if d.httpServer != nil {
		_ = d.httpServer.Shutdown(ctx)
	}
	if d.spawner != nil {
		d.spawner.Stop()
	}
	if d.vecStore != nil {
		_ = d.vecStore.Close()
	}
	if d.embedder != nil {
		_ = d.embedder.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
	_ = d.logger.Sync()
}
