package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/http/middleware"
	"github.com/dudesk/dudesk-chat/internal/http/response"
	"github.com/dudesk/dudesk-chat/internal/pkg/ctxutil"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/platform/apierr"
	"github.com/dudesk/dudesk-chat/internal/services"
)

// SessionAPI is the part of services.SessionService the handlers use.
type SessionAPI interface {
	Create(ctx context.Context) (chat.Session, error)
	Get(ctx context.Context, id uuid.UUID) (chat.Session, error)
	Apply(ctx context.Context, id uuid.UUID, a chat.Action) (chat.Session, error)
	View(s chat.Session) services.SessionView
}

type TokenIssuer interface {
	Issue(sessionID uuid.UUID) (string, error)
	TTL() time.Duration
}

type SessionHandler struct {
	log          *logger.Logger
	sessions     SessionAPI
	tokens       TokenIssuer
	secureCookie bool
}

type SessionHandlerDeps struct {
	Log          *logger.Logger
	Sessions     SessionAPI
	Tokens       TokenIssuer
	SecureCookie bool
}

func NewSessionHandler(deps SessionHandlerDeps) *SessionHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &SessionHandler{
		log:          log.With("handler", "SessionHandler"),
		sessions:     deps.Sessions,
		tokens:       deps.Tokens,
		secureCookie: deps.SecureCookie,
	}
}

type createSessionResponse struct {
	Token   string               `json:"token"`
	Session services.SessionView `json:"session"`
}

// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	sess, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		h.log.Error("Create session failed", "error", err)
		response.RespondAPIError(c, actionError(err))
		return
	}
	token, err := h.tokens.Issue(sess.ID)
	if err != nil {
		h.log.Error("Issue session token failed", "error", err)
		response.RespondAPIError(c, err)
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	c.JSON(http.StatusCreated, createSessionResponse{Token: token, Session: h.sessions.View(sess)})
}

// GET /api/session
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, actionError(err))
		return
	}
	response.RespondOK(c, h.sessions.View(sess))
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type countRequest struct {
	Count int `json:"count" binding:"required"`
}

type messageRequest struct {
	Content string `json:"content"`
}

// POST /api/session/options
func (h *SessionHandler) SelectOption(c *gin.Context) {
	var req nameRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, chat.SelectOption{Name: req.Name}, http.StatusOK)
}

// POST /api/session/boards
func (h *SessionHandler) SelectBoard(c *gin.Context) {
	var req nameRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, chat.SelectBoard{Name: req.Name}, http.StatusOK)
}

// POST /api/session/subjects
func (h *SessionHandler) SelectSubjectCount(c *gin.Context) {
	var req countRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, chat.SelectSubjectCount{Count: req.Count}, http.StatusOK)
}

// POST /api/session/messages answers 202; the reply arrives on the stream.
func (h *SessionHandler) SubmitMessage(c *gin.Context) {
	var req messageRequest
	if !bind(c, &req) {
		return
	}
	h.apply(c, chat.SubmitFreeText{Text: req.Content}, http.StatusAccepted)
}

// POST /api/session/end
func (h *SessionHandler) End(c *gin.Context) {
	h.apply(c, chat.EndChat{}, http.StatusOK)
}

// POST /api/session/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	h.apply(c, chat.ResetChat{}, http.StatusOK)
}

func (h *SessionHandler) apply(c *gin.Context, a chat.Action, okStatus int) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Apply(c.Request.Context(), id, a)
	switch {
	case err == nil:
		c.JSON(okStatus, h.sessions.View(sess))
	case chat.IsNoop(err):
		response.RespondOK(c, h.sessions.View(sess))
	default:
		ae := actionError(err)
		if ae.Status >= http.StatusInternalServerError {
			h.log.Error("Session action failed", "session_id", id, "action", chat.ActionName(a), "error", err)
		}
		response.RespondAPIError(c, ae)
	}
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	sd := ctxutil.GetSessionData(c.Request.Context())
	if sd == nil || sd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing session"))
		return uuid.Nil, false
	}
	return sd.SessionID, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusBadRequest, "invalid_request", err))
		return false
	}
	return true
}
