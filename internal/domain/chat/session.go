package chat

import (
	"time"

	"github.com/google/uuid"
)

// Pending is the single outstanding free-text request. A reply is accepted
// only while its request id is still pending.
type Pending struct {
	RequestID string    `json:"request_id"`
	Epoch     int       `json:"epoch"`
	StartedAt time.Time `json:"started_at"`
}

type Session struct {
	ID          uuid.UUID  `json:"id"`
	Transcript  Transcript `json:"transcript"`
	Step        Step       `json:"step"`
	ShowOptions bool       `json:"show_options"`
	Ended       bool       `json:"ended"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at"`
	// Epoch increments on every reset. Timer ticks and replies carry it so
	// anything started before a reset can be recognised as stale.
	Epoch   int      `json:"epoch"`
	Pending *Pending `json:"pending,omitempty"`
}

// NewSession returns a fresh session seeded with the welcome message.
func NewSession(id uuid.UUID, now time.Time) Session {
	return Session{
		ID:          id,
		Transcript:  Transcript{WelcomeMessage()},
		Step:        StepInitial,
		ShowOptions: true,
		StartedAt:   now,
	}
}

func (s Session) Clone() Session {
	out := s
	out.Transcript = s.Transcript.Clone()
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}

// Elapsed is frozen at EndedAt once the chat has ended.
func (s Session) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := now
	if s.Ended && !s.EndedAt.IsZero() {
		end = s.EndedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt).Truncate(time.Second)
}

func (s Session) ElapsedText(now time.Time) string {
	return FormatElapsed(s.Elapsed(now))
}

func (s Session) HasUserMessage() bool { return s.Transcript.HasUserMessage() }

func (s Session) ReplyPending() bool { return s.Pending != nil }

// OfferKind names the option group currently on screen.
type OfferKind string

const (
	OfferInitial      OfferKind = "option"
	OfferBoard        OfferKind = "board"
	OfferSubjectCount OfferKind = "subject_count"
)

type Offer struct {
	Kind    OfferKind `json:"kind"`
	Choices []string  `json:"choices"`
}

// Offered returns the options the user may pick right now, or nil.
func (s Session) Offered() *Offer {
	if s.Ended {
		return nil
	}
	switch s.Step {
	case StepInitial:
		if s.ShowOptions && !s.HasUserMessage() {
			return &Offer{Kind: OfferInitial, Choices: append([]string(nil), InitialOptions...)}
		}
	case StepEligibilityBoard:
		return &Offer{Kind: OfferBoard, Choices: append([]string(nil), Boards...)}
	case StepEligibilitySubjects:
		return &Offer{Kind: OfferSubjectCount, Choices: subjectCountLabels()}
	}
	return nil
}

func (s Session) offers(kind OfferKind) bool {
	o := s.Offered()
	return o != nil && o.Kind == kind
}
