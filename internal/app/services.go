package app

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/data/db"
	"github.com/dudesk/dudesk-chat/internal/data/repos/archive"
	"github.com/dudesk/dudesk-chat/internal/data/sessionstore"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/prompt"
	"github.com/dudesk/dudesk-chat/internal/realtime"
	"github.com/dudesk/dudesk-chat/internal/realtime/bus"
	"github.com/dudesk/dudesk-chat/internal/render"
	"github.com/dudesk/dudesk-chat/internal/sanitize"
	"github.com/dudesk/dudesk-chat/internal/services"
)

type Services struct {
	Sessions *services.SessionService
	Proxy    *services.ChatProxy
	Tokens   *services.TokenIssuer
	Renderer *render.Renderer

	Store   sessionstore.Store
	Hub     *realtime.SSEHub
	Bus     bus.Bus
	Archive *db.ArchiveDB
}

func loadPrompt(cfg Config) (*prompt.Document, error) {
	if strings.TrimSpace(cfg.PromptConfigPath) == "" {
		return prompt.Default()
	}
	return prompt.Load(cfg.PromptConfigPath)
}

func wireServices(log *logger.Logger, cfg Config, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	var out Services

	doc, err := loadPrompt(cfg)
	if err != nil {
		return Services{}, fmt.Errorf("load prompt config: %w", err)
	}
	mode, err := services.ParseFileMode(cfg.GeminiFileMode)
	if err != nil {
		return Services{}, err
	}

	out.Tokens, err = services.NewTokenIssuer(cfg.SessionSecret, cfg.TokenTTL)
	if err != nil {
		return Services{}, fmt.Errorf("init tokens: %w", err)
	}

	out.Renderer = render.New(render.Options{
		Sanitizer: sanitize.New(sanitize.WithHiddenNames(doc.HiddenNames()...)),
		Strict:    cfg.RenderStrictMarkup,
	})

	fetcher := prompt.NewFetcher(log, prompt.FetcherOptions{
		Objects:    clients.Bucket,
		TTL:        cfg.ReferenceCacheTTL,
		MaxRetries: cfg.ReferenceMaxRetries,
	})
	modelOverride := cfg.ModelOverride
	if modelOverride == "" && clients.Provider == "openai" {
		modelOverride = cfg.OpenAIModel
	}
	builder, err := services.NewRequestBuilder(log, doc, fetcher, mode, modelOverride)
	if err != nil {
		return Services{}, fmt.Errorf("init request builder: %w", err)
	}

	// Realtime
	out.Hub = realtime.NewSSEHub(log)
	var remote realtime.RemotePublisher
	if clients.Redis != nil {
		b, err := bus.NewRedisBus(log, clients.Redis, cfg.RedisChannel)
		if err != nil {
			return Services{}, fmt.Errorf("init sse bus: %w", err)
		}
		out.Bus = b
		remote = b
	}
	notifier := services.NewSessionNotifier(realtime.NewPublisher(log, out.Hub, remote))

	// Archive
	var archiver services.Archiver
	if cfg.Archive.Driver != "" {
		adb, err := db.Open(log, cfg.Archive)
		if err != nil {
			return Services{}, fmt.Errorf("init archive db: %w", err)
		}
		out.Archive = adb
		archiver = services.NewArchiver(archive.NewChatArchiveRepo(adb.DB(), log), log)
	}

	// Session store. Memory eviction needs the service, which needs the store.
	var sessions atomic.Pointer[services.SessionService]
	switch cfg.SessionStore {
	case "", "memory":
		out.Store = sessionstore.NewMemoryStore(log, sessionstore.MemoryOptions{
			TTL: cfg.SessionTTL,
			OnEvict: func(id uuid.UUID) {
				if svc := sessions.Load(); svc != nil {
					svc.Evict(id)
				}
				out.Hub.CloseChannel(realtime.SessionChannel(id.String()))
			},
		})
	case "redis":
		if clients.Redis == nil {
			out.Close()
			return Services{}, fmt.Errorf("SESSION_STORE=redis needs REDIS_ADDR")
		}
		rs, err := sessionstore.NewRedisStore(log, clients.Redis, sessionstore.RedisOptions{TTL: cfg.SessionTTL})
		if err != nil {
			out.Close()
			return Services{}, fmt.Errorf("init redis session store: %w", err)
		}
		out.Store = rs
	default:
		out.Close()
		return Services{}, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
	}

	svc, err := services.NewSessionService(log, services.SessionServiceOptions{
		Store:        out.Store,
		Notifier:     notifier,
		Renderer:     out.Renderer,
		Streamer:     clients.Streamer,
		Builder:      builder,
		Archiver:     archiver,
		TickInterval: cfg.TickInterval,
		ReplyTimeout: cfg.ReplyTimeout,
	})
	if err != nil {
		out.Close()
		return Services{}, fmt.Errorf("init session service: %w", err)
	}
	sessions.Store(svc)
	out.Sessions = svc

	if clients.Streamer != nil {
		out.Proxy = services.NewChatProxy(log, clients.Streamer, builder)
	}
	return out, nil
}

// Close releases in dependency order: the service first so no reply or
// ticker touches a closed store or hub.
func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.Sessions != nil {
		_ = s.Sessions.Close()
	}
	if s.Store != nil {
		_ = s.Store.Close()
	}
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Bus != nil {
		_ = s.Bus.Close()
	}
	if s.Archive != nil {
		_ = s.Archive.Close()
	}
}
