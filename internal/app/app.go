package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/http"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if strings.EqualFold(logMode, "production") {
		gin.SetMode(gin.ReleaseMode)
	}
	// Prices travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: observability.DefaultServiceName,
		Environment: cfg.Environment,
	})
	metrics := observability.Init(log)

	theDB, err := resolveDatabase(log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database (%s): %w", dbProviderBootstrapErrorCode(err), err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, metrics)
	handlerset := wireHandlers(log, theDB, serviceset, metrics)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       &http.Server{Engine: router},
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves the API and the background collectors until ctx is cancelled
// or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	if bus := a.Clients.ChangeBus; bus != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, bus.Client())
		if bus.Client() != nil {
			forwardLog := a.Log.With("component", "ChangeForwarder")
			if err := bus.StartForwarder(ctx, func(n changes.Notice) {
				a.Metrics.IncChangeNotice("received")
				forwardLog.Debug("change notice received", "batch_id", n.BatchID, "changes", len(n.Changes))
			}); err != nil {
				a.Log.Warn("change forwarder not started", "error", err)
			}
		}
	}

	addr := ":" + a.Cfg.Port
	g.Go(func() error {
		a.Log.Info("Server listening", "addr", addr)
		return a.Server.Serve(ctx, addr, a.Cfg.ShutdownTimeout)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
