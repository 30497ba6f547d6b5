package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dudesk/dudesk-chat/internal/clients/gcp"
	"github.com/dudesk/dudesk-chat/internal/clients/gemini"
	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/clients/openai"
	"github.com/dudesk/dudesk-chat/internal/clients/redis"
	"github.com/dudesk/dudesk-chat/internal/observability"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

type Clients struct {
	Redis    *goredis.Client
	Bucket   gcp.BucketReader
	Streamer llm.Streamer
	Provider string
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, m *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		rdb, err := redis.NewClient(ctx, log, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	}

	// Gcs
	out.Bucket = gcp.NewBucketReader(log)

	// Model provider
	streamer, provider, err := wireStreamer(ctx, log, cfg)
	if err != nil {
		out.Close()
		return Clients{}, err
	}
	if streamer != nil {
		out.Streamer = llm.Instrument(streamer, provider, log, m)
		out.Provider = provider
	}
	return out, nil
}

// A missing key leaves the provider unset rather than failing startup: the
// guided flow works without it and free text answers with a 503.
func wireStreamer(ctx context.Context, log *logger.Logger, cfg Config) (llm.Streamer, string, error) {
	switch cfg.ModelProvider {
	case "", "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			log.Warn("GEMINI_API_KEY not set; free-text replies disabled")
			return nil, "", nil
		}
		c, err := gemini.NewClient(ctx, log, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.ModelOverride})
		if err != nil {
			return nil, "", fmt.Errorf("init gemini client: %w", err)
		}
		return c, "gemini", nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			log.Warn("OPENAI_API_KEY not set; free-text replies disabled")
			return nil, "", nil
		}
		c, err := openai.NewClient(log, openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			MaxRetries: cfg.LLMMaxRetries,
		})
		if err != nil {
			return nil, "", fmt.Errorf("init openai client: %w", err)
		}
		return c, "openai", nil
	default:
		return nil, "", fmt.Errorf("unknown MODEL_PROVIDER %q", cfg.ModelProvider)
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
