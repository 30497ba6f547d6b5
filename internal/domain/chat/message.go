package chat

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Content is the raw text; assistant
// content is sanitized only when rendered.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is ordered by insertion, which is also display order.
type Transcript []Message

func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

func (t Transcript) HasUserMessage() bool {
	for _, m := range t {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

func (t Transcript) Last() (Message, bool) {
	if len(t) == 0 {
		return Message{}, false
	}
	return t[len(t)-1], true
}
