// Component wiring for CLI commands.
//
// Information Hiding:
// - Store selection and connection setup hidden
// - Provider pool, gateway and generator construction hidden
// - Shutdown ordering hidden behind Close

package cli

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/richinex/dossier/agent"
	"github.com/richinex/dossier/cache"
	"github.com/richinex/dossier/config"
	"github.com/richinex/dossier/content"
	"github.com/richinex/dossier/internal/logging"
	"github.com/richinex/dossier/llm"
	"github.com/richinex/dossier/research"
	"github.com/richinex/dossier/router"
	"github.com/richinex/dossier/search"
	"github.com/richinex/dossier/storage"
)

// App is a fully wired engine for one CLI invocation.
type App struct {
	Settings config.Settings
	Logger   *zap.Logger
	Cache    *cache.Manager
	Router   *router.Router

	closers []func() error
}

// Open loads settings and builds every component.
func Open(ctx context.Context, opts Options) (*App, error) {
	settings, err := config.Load(opts.Provider, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.MaxIter > 0 {
		settings.Agent.MaxIterations = opts.MaxIter
	}
	if opts.Verbose {
		settings.Log.Level = "debug"
	}

	logger, err := logging.New(logging.Options{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		File:   settings.Log.File,
	})
	if err != nil {
		return nil, err
	}

	app := &App{Settings: settings, Logger: logger}
	app.closers = append(app.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	store, history, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Cache = cache.NewManager(store, cache.Options{
		Threshold:      settings.Cache.Threshold,
		ExactScanLimit: settings.Cache.ExactScanLimit,
		FuzzyScanLimit: settings.Cache.FuzzyScanLimit,
		Logger:         logger,
	})

	pool := llm.NewPool(llm.PoolOptions{
		Models:      settings.LLM.PoolModels(),
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: settings.LLM.Temperature32(),
	})

	gateway := search.NewGateway(search.Options{
		HTTPClient:    &http.Client{},
		CallTimeout:   search.DefaultCallTimeout,
		ScrapeTimeout: settings.Search.ScrapeTimeout,
		Logger:        logger,
	})

	generator := content.NewGenerator(pool, content.Options{
		CallTimeout: settings.LLM.CallTimeout,
		Logger:      logger,
	})

	pipeline := research.New(research.Options{
		Cache:       app.Cache,
		Generator:   generator,
		Gateway:     gateway,
		MaxResults:  settings.Search.MaxResults,
		ScrapeChars: settings.Search.ScrapeChars,
		Logger:      logger,
	})

	runnerOpts := agent.RunnerOptions{
		Pool:    pool,
		Gateway: gateway,
		Config: agent.NewBuilder(agent.DefaultConfig().Name).
			SystemPrompt(agent.ResearchSystemPrompt).
			MaxIterations(settings.Agent.MaxIterations).
			CallTimeout(settings.LLM.CallTimeout).
			Build(),
		ToolTimeout: settings.Agent.ToolTimeout,
		MaxResults:  settings.Search.MaxResults,
		ScrapeChars: settings.Search.ScrapeChars,
		Logger:      logger,
	}
	routerOpts := router.Options{
		Cache:     app.Cache,
		Generator: generator,
		Pipeline:  pipeline,
		Logger:    logger,
	}
	// Leave the interfaces nil when no store keeps history.
	if history != nil {
		runnerOpts.History = history
		routerOpts.History = history
	}
	routerOpts.Agents = agent.NewRunner(runnerOpts)

	app.Router = router.New(routerOpts)
	return app, nil
}

// openStore selects the interaction log backend. Only SQLite keeps profile
// history; the other stores return a nil history.
func (a *App) openStore(ctx context.Context) (cache.Store, *storage.SqliteStorage, error) {
	c := a.Settings.Cache
	log := a.Logger.With(zap.String("store", c.Store))

	switch c.Store {
	case config.StoreMemory:
		log.Info("using in-memory cache store")
		return cache.NewMemoryStore(), nil, nil

	case config.StoreRedis:
		store, err := storage.OpenRedis(ctx, c.RedisAddr, c.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		log.Info("connected cache store", zap.String("addr", c.RedisAddr))
		return store, nil, nil

	case config.StorePostgres:
		store, err := storage.OpenPostgres(c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		log.Info("connected cache store")
		return store, nil, nil

	case config.StoreSqlite:
		store, err := storage.OpenSqlite(c.DBPath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store.Close)
		log.Info("opened cache store", zap.String("path", c.DBPath))
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache store %q", c.Store)
	}
}

// Credentials resolves the request keys for backend from the environment.
// A missing key is left empty so the request reports it.
func (a *App) Credentials(backend llm.ProviderType) router.Credentials {
	key, err := config.APIKeyFor(backend.String())
	if err != nil {
		a.Logger.Debug("no API key configured", zap.Stringer("backend", backend))
	}
	return router.Credentials{
		Backend:   backend,
		APIKey:    key,
		SearchKey: config.SearchAPIKey(),
	}
}

// Close releases stores and flushes the logger, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
