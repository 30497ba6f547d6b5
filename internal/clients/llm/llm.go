// Package llm is the provider-neutral surface for streaming chat replies.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
)

var ErrEmptyReply = errors.New("model returned an empty reply")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// Reference is a file handed to the model as opaque bytes. Data may be nil
// when the provider is given the URI instead.
type Reference struct {
	Name     string
	URI      string
	MimeType string
	Data     []byte
}

type ChatRequest struct {
	Model      string
	System     string
	References []Reference
	Turns      []Turn
}

// Streamer produces one reply. onDelta receives text chunks in order; the
// returned string is their concatenation.
type Streamer interface {
	StreamChat(ctx context.Context, req ChatRequest, onDelta func(delta string)) (string, error)
}

// TurnsFromTranscript maps a transcript to model turns, dropping empty
// messages.
func TurnsFromTranscript(t chat.Transcript) []Turn {
	out := make([]Turn, 0, len(t))
	for _, m := range t {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := RoleUser
		if m.Role == chat.RoleAssistant {
			role = RoleAssistant
		}
		out = append(out, Turn{Role: role, Text: m.Content})
	}
	return out
}

// MergeTurns joins consecutive turns of the same role. Some providers
// reject two user turns in a row.
func MergeTurns(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if n := len(out); n > 0 && out[n-1].Role == t.Role {
			out[n-1].Text += "\n\n" + t.Text
			continue
		}
		out = append(out, t)
	}
	return out
}
