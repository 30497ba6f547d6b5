package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/realtime"
	"github.com/dudesk/dudesk-chat/internal/render"
)

// SessionNotifier publishes session events on the session's channel.
type SessionNotifier interface {
	Updated(view SessionView)
	Elapsed(sessionID uuid.UUID, epoch int, elapsed string)
	ReplyDelta(sessionID uuid.UUID, requestID, delta string)
	ReplyCompleted(sessionID uuid.UUID, requestID string, msg render.Rendered)
	ReplyFailed(sessionID uuid.UUID, requestID, errMsg string)
}

type sessionNotifier struct {
	pub realtime.Publisher
}

func NewSessionNotifier(pub realtime.Publisher) SessionNotifier {
	return &sessionNotifier{pub: pub}
}

func (n *sessionNotifier) emit(sessionID uuid.UUID, event realtime.SSEEvent, data any) {
	if n == nil || n.pub == nil || sessionID == uuid.Nil {
		return
	}
	n.pub.Publish(context.Background(), realtime.SSEMessage{
		Channel: realtime.SessionChannel(sessionID.String()),
		Event:   event,
		Data:    data,
	})
}

func (n *sessionNotifier) Updated(view SessionView) {
	n.emit(view.ID, realtime.SSEEventSessionUpdated, map[string]any{"session": view})
}

func (n *sessionNotifier) Elapsed(sessionID uuid.UUID, epoch int, elapsed string) {
	n.emit(sessionID, realtime.SSEEventSessionElapsed, map[string]any{"elapsed": elapsed, "epoch": epoch})
}

func (n *sessionNotifier) ReplyDelta(sessionID uuid.UUID, requestID, delta string) {
	if delta == "" {
		return
	}
	n.emit(sessionID, realtime.SSEEventReplyDelta, map[string]any{"request_id": requestID, "delta": delta})
}

func (n *sessionNotifier) ReplyCompleted(sessionID uuid.UUID, requestID string, msg render.Rendered) {
	n.emit(sessionID, realtime.SSEEventReplyCompleted, map[string]any{"request_id": requestID, "message": msg})
}

func (n *sessionNotifier) ReplyFailed(sessionID uuid.UUID, requestID, errMsg string) {
	n.emit(sessionID, realtime.SSEEventReplyFailed, map[string]any{"request_id": requestID, "error": errMsg})
}
