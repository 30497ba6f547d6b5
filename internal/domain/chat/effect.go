package chat

import (
	"time"

	"github.com/google/uuid"
)

// Effect is a side effect requested by Reduce. The reducer never performs
// I/O; callers interpret effects.
type Effect interface {
	effectName() string
}

// StartTimer starts the elapsed-time display for Epoch.
type StartTimer struct{ Epoch int }

type StopTimer struct{}

// RequestReply asks the model for an answer to History. The reply must be
// fed back as ReceiveReply or ReplyFailed with the same RequestID.
type RequestReply struct {
	RequestID string
	Epoch     int
	History   Transcript
}

type CancelReply struct{ RequestID string }

// ArchiveTranscript records an ended chat.
type ArchiveTranscript struct {
	SessionID  uuid.UUID
	Transcript Transcript
	Duration   time.Duration
	EndedAt    time.Time
}

func (StartTimer) effectName() string        { return "start_timer" }
func (StopTimer) effectName() string         { return "stop_timer" }
func (RequestReply) effectName() string      { return "request_reply" }
func (CancelReply) effectName() string       { return "cancel_reply" }
func (ArchiveTranscript) effectName() string { return "archive_transcript" }

func EffectName(e Effect) string {
	if e == nil {
		return "unknown"
	}
	return e.effectName()
}
