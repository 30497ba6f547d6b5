package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Env carries the inputs Reduce needs from the outside world.
type Env struct {
	Now   time.Time
	NewID func() string
}

func (e Env) now() time.Time {
	if e.Now.IsZero() {
		return time.Now()
	}
	return e.Now
}

func (e Env) newID() string {
	if e.NewID != nil {
		if id := e.NewID(); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// Reduce applies a to s and returns the next session with the effects the
// caller must run. On error the returned session equals s and no effects
// are produced.
func Reduce(s Session, a Action, env Env) (Session, []Effect, error) {
	next := s.Clone()
	var (
		effects []Effect
		err     error
	)
	switch act := a.(type) {
	case SelectOption:
		err = next.pick(OfferInitial, act.Name, optionScript[act.Name], hasKey(optionScript, act.Name), env)
		if err == nil {
			next.ShowOptions = false
		}
	case SelectBoard:
		err = next.pick(OfferBoard, act.Name, boardScript[act.Name], hasKey(boardScript, act.Name), env)
	case SelectSubjectCount:
		sc, ok := subjectCountScript[act.Count]
		err = next.pick(OfferSubjectCount, strconv.Itoa(act.Count), sc, ok, env)
	case SubmitFreeText:
		effects, err = next.submit(act.Text, env)
	case EndChat:
		effects, err = next.end(env)
	case ResetChat:
		effects = next.reset(env)
	case ReceiveReply:
		err = next.receive(act)
	case ReplyFailed:
		if next.Pending == nil || next.Pending.RequestID != act.RequestID {
			err = ErrStaleReply
		} else {
			next.Pending = nil
		}
	default:
		err = fmt.Errorf("unsupported action %T", a)
	}
	if err != nil {
		return s, nil, err
	}
	return next, effects, nil
}

func hasKey[K comparable, V any](m map[K]V, k K) bool {
	_, ok := m[k]
	return ok
}

func (s *Session) pick(kind OfferKind, label string, sc scripted, known bool, env Env) error {
	if s.Ended {
		return ErrChatEnded
	}
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownOption, label)
	}
	if !s.offers(kind) {
		return fmt.Errorf("%w: %s at step %s", ErrInvalidTransition, label, s.Step)
	}
	id := env.newID()
	s.Transcript = append(s.Transcript,
		Message{ID: id, Role: RoleUser, Content: label},
		Message{ID: id + "-response", Role: RoleAssistant, Content: sc.reply},
	)
	s.Step = sc.next
	return nil
}

func (s *Session) submit(text string, env Env) ([]Effect, error) {
	if s.Ended {
		return nil, ErrChatEnded
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.Pending != nil {
		return nil, ErrReplyPending
	}
	reqID := env.newID()
	s.Transcript = append(s.Transcript, Message{ID: reqID, Role: RoleUser, Content: text})
	s.Pending = &Pending{RequestID: reqID, Epoch: s.Epoch, StartedAt: env.now()}
	return []Effect{RequestReply{RequestID: reqID, Epoch: s.Epoch, History: s.Transcript.Clone()}}, nil
}

func (s *Session) receive(act ReceiveReply) error {
	if s.Pending == nil || s.Pending.RequestID != act.RequestID {
		return ErrStaleReply
	}
	s.Pending = nil
	s.Transcript = append(s.Transcript, Message{
		ID:      act.RequestID + "-reply",
		Role:    RoleAssistant,
		Content: act.Content,
	})
	return nil
}

func (s *Session) end(env Env) ([]Effect, error) {
	if s.Ended {
		return nil, ErrChatEnded
	}
	now := env.now()
	s.Ended = true
	s.EndedAt = now
	s.Transcript = append(s.Transcript, Message{
		ID:      EndMessageID,
		Role:    RoleAssistant,
		Content: EndText(s.ElapsedText(now)),
	})

	effects := []Effect{StopTimer{}}
	if s.Pending != nil {
		effects = append(effects, CancelReply{RequestID: s.Pending.RequestID})
		s.Pending = nil
	}
	effects = append(effects, ArchiveTranscript{
		SessionID:  s.ID,
		Transcript: s.Transcript.Clone(),
		Duration:   s.Elapsed(now),
		EndedAt:    now,
	})
	return effects, nil
}

func (s *Session) reset(env Env) []Effect {
	var effects []Effect
	if s.Pending != nil {
		effects = append(effects, CancelReply{RequestID: s.Pending.RequestID})
	}
	*s = Session{
		ID:          s.ID,
		Transcript:  Transcript{WelcomeMessage()},
		Step:        StepInitial,
		ShowOptions: true,
		StartedAt:   env.now(),
		Epoch:       s.Epoch + 1,
	}
	return append(effects, StopTimer{}, StartTimer{Epoch: s.Epoch})
}
