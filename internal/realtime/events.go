package realtime

type SSEEvent string

const (
	SSEEventSessionUpdated SSEEvent = "session.updated"
	SSEEventSessionElapsed SSEEvent = "session.elapsed"
	SSEEventReplyDelta     SSEEvent = "reply.delta"
	SSEEventReplyCompleted SSEEvent = "reply.completed"
	SSEEventReplyFailed    SSEEvent = "reply.failed"

	// Stateless /api/chat stream.
	SSEEventDelta SSEEvent = "delta"
	SSEEventDone  SSEEvent = "done"
	SSEEventError SSEEvent = "error"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// SessionChannel is the hub channel carrying one chat session's events.
func SessionChannel(sessionID string) string {
	return "session:" + sessionID
}
