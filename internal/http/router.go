package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/dudesk/dudesk-chat/internal/http/handlers"
	httpMW "github.com/dudesk/dudesk-chat/internal/http/middleware"
	"github.com/dudesk/dudesk-chat/internal/observability"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

const streamRoute = "/api/session/stream"

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	SessionMiddleware *httpMW.SessionMiddleware
	SessionHandler    *httpH.SessionHandler
	RealtimeHandler   *httpH.RealtimeHandler
	ChatHandler       *httpH.ChatHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, streamRoute, "/api/chat"))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	{
		// Stateless proxy
		if cfg.ChatHandler != nil {
			api.POST("/chat", cfg.ChatHandler.Stream)
		}
		if cfg.SessionHandler != nil {
			api.POST("/sessions", cfg.SessionHandler.Create)
		}
	}

	session := api.Group("/session")
	{
		if cfg.SessionMiddleware != nil {
			session.Use(cfg.SessionMiddleware.RequireSession())
		}

		if cfg.SessionHandler != nil {
			session.GET("", cfg.SessionHandler.Get)
			session.POST("/options", cfg.SessionHandler.SelectOption)
			session.POST("/boards", cfg.SessionHandler.SelectBoard)
			session.POST("/subjects", cfg.SessionHandler.SelectSubjectCount)
			session.POST("/messages", cfg.SessionHandler.SubmitMessage)
			session.POST("/end", cfg.SessionHandler.End)
			session.POST("/reset", cfg.SessionHandler.Reset)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			session.GET("/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
