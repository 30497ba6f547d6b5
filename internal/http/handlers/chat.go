package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/http/response"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/platform/apierr"
	"github.com/dudesk/dudesk-chat/internal/realtime"
	"github.com/dudesk/dudesk-chat/internal/services"
)

// ChatStreamer answers a client-held history.
type ChatStreamer interface {
	Available() bool
	Stream(ctx context.Context, turns []llm.Turn, onDelta func(string)) (string, error)
}

type ChatHandler struct {
	log   *logger.Logger
	proxy ChatStreamer
}

func NewChatHandler(log *logger.Logger, proxy ChatStreamer) *ChatHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatHandler{log: log.With("handler", "ChatHandler"), proxy: proxy}
}

type chatRequest struct {
	Messages []llm.Turn `json:"messages"`
}

// POST /api/chat streams "delta" events followed by "done" or "error".
// Validation failures are answered as JSON before the stream starts.
func (h *ChatHandler) Stream(c *gin.Context) {
	if !h.proxy.Available() {
		response.RespondAPIError(c, actionError(services.ErrReplyUnavailable))
		return
	}
	var req chatRequest
	if !bind(c, &req) {
		return
	}
	turns, err := services.NormalizeTurns(req.Messages)
	if err != nil {
		code := "invalid_request"
		if errors.Is(err, chat.ErrEmptyMessage) {
			code = "empty_message"
		}
		response.RespondAPIError(c, apierr.New(http.StatusBadRequest, code, err))
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported", errors.New("streaming unsupported"))
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	full, err := h.proxy.Stream(c.Request.Context(), turns, func(delta string) {
		if werr := realtime.WriteEvent(w, realtime.SSEEventDelta, map[string]string{"delta": delta}); werr == nil {
			flusher.Flush()
		}
	})
	if err != nil {
		if c.Request.Context().Err() == nil {
			h.log.Warn("Chat stream failed", "error", err)
		}
		msg := "Something went wrong while contacting the assistant. Please try again."
		if errors.Is(err, services.ErrReplyUnavailable) {
			msg = services.ErrReplyUnavailable.Error()
		}
		_ = realtime.WriteEvent(w, realtime.SSEEventError, map[string]string{"message": msg})
		flusher.Flush()
		return
	}
	_ = realtime.WriteEvent(w, realtime.SSEEventDone, map[string]string{"content": full})
	flusher.Flush()
}
