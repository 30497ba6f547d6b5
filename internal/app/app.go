package app

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dudesk/dudesk-chat/internal/http"
	"github.com/dudesk/dudesk-chat/internal/observability"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Services Services
	Server   *http.Server

	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log)

	clientset, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = shutdownOtel(context.Background())
		log.Sync()
		return nil, err
	}
	serviceset, err := wireServices(log, cfg, clientset)
	if err != nil {
		clientset.Close()
		_ = shutdownOtel(context.Background())
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, clientset, serviceset)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)
	// Open SSE streams would otherwise hold Shutdown until the drain expires.
	server.OnShutdown(serviceset.Hub.Close)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clientset,
		Services:     serviceset,
		Server:       server,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Run serves HTTP and, when configured, the cross-instance SSE forwarder
// and the metrics endpoint. It returns once ctx is cancelled and the
// server has drained, or when any part fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	if a.Services.Bus != nil {
		hub := a.Services.Hub
		g.Go(func() error {
			return a.Services.Bus.StartForwarder(ctx, func(m realtime.SSEMessage) {
				hub.Broadcast(m)
			})
		})
	}
	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
	}

	g.Go(func() error {
		a.Log.Info("Server listening", "addr", a.Cfg.Addr)
		return a.Server.Run(ctx, a.Cfg.Addr, a.Cfg.ShutdownDrain)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Services.Close()
	a.Clients.Close()
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
