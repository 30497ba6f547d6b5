package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/http/response"
	"github.com/dudesk/dudesk-chat/internal/pkg/ctxutil"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

const SessionCookie = "dudesk_session"

// TokenParser resolves a session token to its session id.
type TokenParser interface {
	Parse(token string) (uuid.UUID, error)
}

type SessionMiddleware struct {
	log    *logger.Logger
	tokens TokenParser
}

func NewSessionMiddleware(log *logger.Logger, tokens TokenParser) *SessionMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionMiddleware{log: log.With("Middleware", "SessionMiddleware"), tokens: tokens}
}

// RequireSession attaches ctxutil.SessionData or aborts with 401.
func (sm *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractSessionToken(c)
		if token == "" {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", "missing session token")
			return
		}
		sid, err := sm.tokens.Parse(token)
		if err != nil {
			sm.log.Debug("Rejected session token", "error", err)
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", "invalid or expired session token")
			return
		}
		ctx := ctxutil.WithSessionData(c.Request.Context(), &ctxutil.SessionData{SessionID: sid, Token: token})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Bearer header first, then the cookie, then ?token= for EventSource
// clients that cannot send either.
func extractSessionToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if v, err := c.Cookie(SessionCookie); err == nil && v != "" {
		return v
	}
	return strings.TrimSpace(c.Query("token"))
}
