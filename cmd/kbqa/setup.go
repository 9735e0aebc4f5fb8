package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/kbqa/internal/config"
	"github.com/sandevgo/kbqa/internal/providers/kb"
	"github.com/sandevgo/kbqa/internal/providers/mcp"
	"github.com/sandevgo/kbqa/internal/service/command"
	"github.com/sandevgo/kbqa/internal/service/dialogue"
	"github.com/sandevgo/kbqa/internal/service/intent"
	"github.com/sandevgo/kbqa/internal/service/memory"
	"github.com/sandevgo/kbqa/internal/service/orchestrator"
	"github.com/sandevgo/kbqa/internal/service/router"
	"github.com/sandevgo/kbqa/internal/service/synth"
	"github.com/sandevgo/kbqa/internal/storage/sqlite"
	"github.com/sandevgo/kbqa/internal/transport/httpserver"
	"github.com/sandevgo/kbqa/internal/transport/mcpserver"
	"github.com/sandevgo/kbqa/internal/transport/telegram"
	"github.com/sandevgo/kbqa/pkg/log"
	"github.com/sandevgo/kbqa/pkg/retry"
	"github.com/sandevgo/kbqa/pkg/srv"
)

// Engine is the wired query engine plus the background services it needs.
type Engine struct {
	App          *config.AppConfig
	Config       *config.EngineConfig
	Store        *memory.Store
	Knowledge    *kb.Provider
	Orchestrator *orchestrator.Orchestrator
	Archiver     *memory.Archiver

	// Services run for as long as the engine does: remote responders,
	// knowledge watcher, snapshot archiver and cleanup.
	Services []srv.Service
}

func NewEngine(ctx context.Context) (*Engine, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}

	appCfg := config.NewAppConfig(ctx)
	engCfg := config.NewEngineConfig(ctx)
	e := &Engine{
		App:    appCfg,
		Config: engCfg,
		Store:  memory.NewStore(engCfg),
	}

	provider, err := kb.New(appCfg.GetKnowledgePath(), engCfg,
		kb.WithCacheSize(appCfg.QueryCacheSize),
		kb.WithFetcher(kb.NewFetcher(appCfg.FetchTimeout, retry.NewQuickConfig())),
	)
	if err != nil {
		return nil, err
	}
	e.Knowledge = provider

	remote := mcp.NewService(
		mcp.NewPool(),
		mcp.NewRegistry(mcp.NewFileStorage(appCfg.GetRespondersPath())),
		mcp.NewDirectoryCache(),
	)
	e.Services = append(e.Services, remote)

	rt := router.New(engCfg, provider, remote)
	reindex := func(ctx context.Context) {
		if err := rt.Reindex(ctx); err != nil {
			log.FromCtx(ctx).Error().Err(err).Msg("failed to rebuild responder index")
		}
	}
	provider.OnReload(reindex)
	remote.OnChange(reindex)

	if err := provider.Load(ctx); err != nil {
		return nil, fmt.Errorf("%w (run 'kbqa install' to create a sample)", err)
	}
	if appCfg.WatchKnowledge {
		e.Services = append(e.Services, kb.NewWatcher(provider))
	}

	resolver := intent.NewResolver(e.Store, rt, engCfg)
	controller := dialogue.NewController(e.Store, resolver, provider, engCfg)
	e.Orchestrator = orchestrator.New(e.Store, controller, rt, synth.New(engCfg), provider, engCfg)

	if appCfg.EnableArchive {
		db, err := sqlite.NewDB(ctx, appCfg.GetSnapshotPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot store: %w", err)
		}
		e.Archiver = memory.NewArchiver(e.Store, sqlite.NewSnapshotRepo(db), appCfg.ArchiveInterval)
		// The archiver flushes on shutdown, so the db closes after it.
		e.Services = append(e.Services, e.Archiver, srv.NewCleanup(db.Close))
	}

	return e, nil
}

// Dispatcher returns the slash command and question handler for chat transports.
func (e *Engine) Dispatcher() *command.Dispatcher {
	return command.NewDispatcher(command.New(command.NewCommands(e.Orchestrator)), e.Orchestrator)
}

// NewServices wires the engine and every enabled transport. Transports come
// first so they stop taking questions before the archiver flushes.
func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)

	e, err := NewEngine(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize engine")
	}

	transports, err := initTransports(ctx, e)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	if len(transports) == 0 {
		logger.Warn().Msg("no transport enabled, set KBQA_ENABLE_HTTP, KBQA_ENABLE_TELEGRAM or KBQA_ENABLE_MCP")
	}

	return append(transports, e.Services...)
}

func initTransports(ctx context.Context, e *Engine) ([]srv.Service, error) {
	var services []srv.Service

	if e.App.EnableHTTP {
		services = append(services, httpserver.NewServer(ctx, config.NewHTTPConfig(ctx), e.Orchestrator))
	}

	if e.App.EnableMCPServer {
		services = append(services, mcpserver.NewServer(config.NewMCPServerConfig(ctx), e.Orchestrator))
	}

	if e.App.EnableTelegram {
		bot, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), e.Dispatcher())
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
