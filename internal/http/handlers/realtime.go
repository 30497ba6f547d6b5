package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/dudesk/dudesk-chat/internal/http/response"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/realtime"
)

type RealtimeHandler struct {
	log      *logger.Logger
	hub      *realtime.SSEHub
	sessions SessionAPI
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, sessions SessionAPI) *RealtimeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub, sessions: sessions}
}

// GET /api/session/stream. The first frame is the current session so a
// reconnecting client never misses state.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, actionError(err))
		return
	}

	channel := realtime.SessionChannel(id.String())
	client := h.hub.NewSSEClient(id)
	defer h.hub.CloseClient(client)
	h.hub.AddChannel(client, channel)
	client.Outbound <- realtime.SSEMessage{
		Channel: channel,
		Event:   realtime.SSEEventSessionUpdated,
		Data:    map[string]any{"session": h.sessions.View(sess)},
	}
	h.log.Debug("SSE stream open", "session_id", id, "clientID", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
