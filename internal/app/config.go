package app

import (
	"strings"
	"time"

	"github.com/dudesk/dudesk-chat/internal/data/db"
	"github.com/dudesk/dudesk-chat/internal/observability"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/utils"
)

type Config struct {
	Addr          string
	ShutdownDrain time.Duration
	CORSOrigins   []string
	SecureCookie  bool

	SessionStore  string
	SessionSecret string
	SessionTTL    time.Duration
	TokenTTL      time.Duration
	TickInterval  time.Duration
	ReplyTimeout  time.Duration

	ModelProvider  string
	ModelOverride  string
	GeminiAPIKey   string
	GeminiFileMode string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	LLMMaxRetries  int

	PromptConfigPath    string
	ReferenceCacheTTL   time.Duration
	ReferenceMaxRetries int
	RenderStrictMarkup  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	Archive db.Config

	MetricsAddr string
	Otel        observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	archiveDriver := strings.ToLower(strings.TrimSpace(utils.GetEnv("ARCHIVE_DRIVER", "", log)))
	archiveDSN := utils.GetEnv("ARCHIVE_DSN", "", log)
	if archiveDriver == "postgres" && archiveDSN == "" {
		archiveDSN = db.PostgresDSN(
			utils.GetEnv("POSTGRES_HOST", "localhost", log),
			utils.GetEnv("POSTGRES_PORT", "5432", log),
			utils.GetEnv("POSTGRES_USER", "postgres", log),
			utils.GetEnv("POSTGRES_PASSWORD", "", log),
			utils.GetEnv("POSTGRES_NAME", "dudesk", log),
		)
	}

	return Config{
		Addr:          ":" + utils.GetEnv("PORT", "8080", log),
		ShutdownDrain: utils.GetEnvAsSeconds("SHUTDOWN_DRAIN_SECONDS", 10*time.Second, log),
		CORSOrigins:   splitList(utils.GetEnv("CORS_ORIGINS", "", log)),
		SecureCookie:  utils.GetEnvAsBool("SESSION_COOKIE_SECURE", false, log),

		SessionStore:  strings.ToLower(utils.GetEnv("SESSION_STORE", "memory", log)),
		SessionSecret: utils.GetEnv("SESSION_SECRET", "", log),
		SessionTTL:    utils.GetEnvAsSeconds("SESSION_TTL_SECONDS", 30*time.Minute, log),
		TokenTTL:      utils.GetEnvAsSeconds("SESSION_TOKEN_TTL_SECONDS", 24*time.Hour, log),
		TickInterval:  utils.GetEnvAsSeconds("ELAPSED_TICK_SECONDS", time.Second, log),
		ReplyTimeout:  utils.GetEnvAsSeconds("REPLY_TIMEOUT_SECONDS", 2*time.Minute, log),

		ModelProvider:  strings.ToLower(utils.GetEnv("MODEL_PROVIDER", "gemini", log)),
		ModelOverride:  utils.GetEnv("MODEL_NAME", "", log),
		GeminiAPIKey:   utils.GetEnv("GEMINI_API_KEY", "", log),
		GeminiFileMode: utils.GetEnv("GEMINI_FILE_MODE", "inline", log),
		OpenAIAPIKey:   utils.GetEnv("OPENAI_API_KEY", "", log),
		OpenAIBaseURL:  utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log),
		OpenAIModel:    utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log),
		LLMMaxRetries:  utils.GetEnvAsInt("LLM_MAX_RETRIES", 2, log),

		PromptConfigPath:    utils.GetEnv("PROMPT_CONFIG_PATH", "", log),
		ReferenceCacheTTL:   utils.GetEnvAsSeconds("REFERENCE_CACHE_TTL_SECONDS", 15*time.Minute, log),
		ReferenceMaxRetries: utils.GetEnvAsInt("REFERENCE_MAX_RETRIES", 3, log),
		RenderStrictMarkup:  utils.GetEnvAsBool("RENDER_STRICT_MARKUP", true, log),

		RedisAddr:     utils.GetEnv("REDIS_ADDR", "", log),
		RedisPassword: utils.GetEnv("REDIS_PASSWORD", "", log),
		RedisDB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
		RedisChannel:  utils.GetEnv("REDIS_CHANNEL", "dudesk:sse", log),

		Archive: db.Config{Driver: archiveDriver, DSN: archiveDSN},

		MetricsAddr: utils.GetEnv("METRICS_ADDR", ":9090", log),
		Otel: observability.OtelConfig{
			Enabled:     utils.GetEnvAsBool("OTEL_ENABLED", false, log),
			ServiceName: utils.GetEnv("OTEL_SERVICE_NAME", "dudesk-chat", log),
			Environment: utils.GetEnv("APP_ENV", "development", log),
			Version:     utils.GetEnv("APP_VERSION", "dev", log),
			Endpoint:    utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     observability.ParseHeaders(utils.GetEnv("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
			Insecure:    utils.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: utils.GetEnvAsFloat("OTEL_SAMPLE_RATIO", 1, log),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
