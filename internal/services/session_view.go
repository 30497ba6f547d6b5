package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/render"
)

// SessionView is the client-facing shape of a session.
type SessionView struct {
	ID          uuid.UUID         `json:"id"`
	Step        chat.Step         `json:"step"`
	Ended       bool              `json:"ended"`
	Elapsed     string            `json:"elapsed"`
	Epoch       int               `json:"epoch"`
	ShowOptions bool              `json:"show_options"`
	Offered     *chat.Offer       `json:"offered"`
	Pending     bool              `json:"pending"`
	Footer      string            `json:"footer,omitempty"`
	Messages    []render.Rendered `json:"messages"`
}

func BuildView(r *render.Renderer, s chat.Session, now time.Time) SessionView {
	v := SessionView{
		ID:          s.ID,
		Step:        s.Step,
		Ended:       s.Ended,
		Elapsed:     s.ElapsedText(now),
		Epoch:       s.Epoch,
		ShowOptions: s.ShowOptions,
		Offered:     s.Offered(),
		Pending:     s.ReplyPending(),
		Messages:    r.Transcript(s.Transcript),
	}
	if s.HasUserMessage() {
		v.Footer = chat.FooterText
	}
	return v
}
