package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudesk/dudesk-chat/internal/data/db"
	"github.com/dudesk/dudesk-chat/internal/data/sessionstore"
	pkgerrors "github.com/dudesk/dudesk-chat/internal/pkg/errors"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/realtime"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SESSION_TTL_SECONDS", "120")
	t.Setenv("ARCHIVE_DRIVER", "Postgres")
	t.Setenv("ARCHIVE_DSN", "")
	t.Setenv("POSTGRES_HOST", "db")

	cfg := LoadConfig(logger.Nop())
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, "postgres", cfg.Archive.Driver)
	assert.Contains(t, cfg.Archive.DSN, "@db:5432/")
}

func testConfig() Config {
	return Config{
		SessionStore:       "memory",
		SessionSecret:      "app-test-secret-0123456789",
		SessionTTL:         time.Minute,
		TickInterval:       time.Hour,
		GeminiFileMode:     "uri",
		RenderStrictMarkup: true,
		Archive: db.Config{
			Driver: "sqlite",
			DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		},
	}
}

func TestWiredRouterServesSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	cfg := testConfig()

	services, err := wireServices(log, cfg, Clients{})
	require.NoError(t, err)
	defer services.Close()
	require.NotNil(t, services.Archive)

	server := wireServer(log, cfg, nil, wireHandlers(log, cfg, Clients{}, services), wireMiddleware(log, services))

	rec := httptest.NewRecorder()
	server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"archive":"ok"`)

	rec = httptest.NewRecorder()
	server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	server.Engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWireServicesRejectsBadStore(t *testing.T) {
	cfg := testConfig()
	cfg.Archive = db.Config{}

	cfg.SessionStore = "redis"
	_, err := wireServices(logger.Nop(), cfg, Clients{})
	require.Error(t, err)

	cfg.SessionStore = "etcd"
	_, err = wireServices(logger.Nop(), cfg, Clients{})
	require.Error(t, err)

	cfg.SessionStore = "memory"
	cfg.SessionSecret = "short"
	_, err = wireServices(logger.Nop(), cfg, Clients{})
	require.Error(t, err)
}

func TestMemoryEvictionReachesWiredServices(t *testing.T) {
	cfg := testConfig()
	cfg.Archive = db.Config{}
	cfg.SessionTTL = 30 * time.Millisecond
	cfg.TickInterval = 5 * time.Millisecond

	services, err := wireServices(logger.Nop(), cfg, Clients{})
	require.NoError(t, err)
	defer services.Close()
	store, ok := services.Store.(*sessionstore.MemoryStore)
	require.True(t, ok)

	ctx := context.Background()
	sess, err := services.Sessions.Create(ctx)
	require.NoError(t, err)
	client := services.Hub.NewSSEClient(sess.ID)
	services.Hub.AddChannel(client, realtime.SessionChannel(sess.ID.String()))

	require.Eventually(t, func() bool { return store.Sweep() == 1 }, 2*time.Second, 10*time.Millisecond)
	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatalf("stream of evicted session stayed open")
	}
	_, err = services.Sessions.Get(ctx, sess.ID)
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
}
