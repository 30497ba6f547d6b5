package app

import (
	"context"

	"github.com/dudesk/dudesk-chat/internal/http"
	httpH "github.com/dudesk/dudesk-chat/internal/http/handlers"
	httpMW "github.com/dudesk/dudesk-chat/internal/http/middleware"
	"github.com/dudesk/dudesk-chat/internal/observability"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

type Middleware struct {
	Session *httpMW.SessionMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Session  *httpH.SessionHandler
	Realtime *httpH.RealtimeHandler
	Chat     *httpH.ChatHandler
}

func wireHandlers(log *logger.Logger, cfg Config, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(healthChecks(clients, services)...),
		Session: httpH.NewSessionHandler(httpH.SessionHandlerDeps{
			Log:          log,
			Sessions:     services.Sessions,
			Tokens:       services.Tokens,
			SecureCookie: cfg.SecureCookie,
		}),
		Realtime: httpH.NewRealtimeHandler(log, services.Hub, services.Sessions),
		Chat:     httpH.NewChatHandler(log, services.Proxy),
	}
}

func healthChecks(clients Clients, services Services) []httpH.Check {
	var checks []httpH.Check
	if clients.Redis != nil {
		rdb := clients.Redis
		checks = append(checks, httpH.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if services.Archive != nil {
		adb := services.Archive
		checks = append(checks, httpH.Check{Name: "archive", Probe: func(ctx context.Context) error {
			sqlDB, err := adb.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	return checks
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Session: httpMW.NewSessionMiddleware(log, services.Tokens),
	}
}

func wireServer(log *logger.Logger, cfg Config, m *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:               log,
		Metrics:           m,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		SessionMiddleware: middleware.Session,
		SessionHandler:    handlers.Session,
		RealtimeHandler:   handlers.Realtime,
		ChatHandler:       handlers.Chat,
		HealthHandler:     handlers.Health,
	})
}
