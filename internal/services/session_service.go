package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/clients/llm"
	"github.com/dudesk/dudesk-chat/internal/data/sessionstore"
	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	"github.com/dudesk/dudesk-chat/internal/observability"
	pkgerrors "github.com/dudesk/dudesk-chat/internal/pkg/errors"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
	"github.com/dudesk/dudesk-chat/internal/render"
)

// ErrReplyUnavailable is returned for free text when no model is configured.
var ErrReplyUnavailable = errors.New("model provider not configured")

type SessionServiceOptions struct {
	Store    sessionstore.Store
	Notifier SessionNotifier
	Renderer *render.Renderer
	Streamer llm.Streamer
	Builder  *RequestBuilder
	Archiver Archiver

	TickInterval   time.Duration
	ReplyTimeout   time.Duration
	ArchiveTimeout time.Duration

	Now   func() time.Time
	NewID func() string
}

// SessionService owns live chat sessions. Actions go through chat.Reduce
// under the store's per-session update; the returned effects are run
// afterwards, outside the update.
type SessionService struct {
	log     *logger.Logger
	opts    SessionServiceOptions
	metrics *observability.Metrics

	timers  *tickerRegistry
	replies *replyRunner

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	closeOnce sync.Once
}

func NewSessionService(log *logger.Logger, opts SessionServiceOptions) (*SessionService, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.Renderer == nil {
		opts.Renderer = render.New(render.Options{Strict: true})
	}
	if opts.Notifier == nil {
		opts.Notifier = NewSessionNotifier(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 2 * time.Minute
	}
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionService{
		log:     log.With("service", "SessionService"),
		opts:    opts,
		metrics: observability.Current(),
		replies: newReplyRunner(),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.timers = newTickerRegistry(opts.TickInterval, s.tick)
	return s, nil
}

func (s *SessionService) env() chat.Env {
	return chat.Env{Now: s.opts.Now(), NewID: s.opts.NewID}
}

func (s *SessionService) View(sess chat.Session) SessionView {
	return BuildView(s.opts.Renderer, sess, s.opts.Now())
}

// Create starts a session seeded with the welcome message and starts its
// elapsed-time ticker.
func (s *SessionService) Create(ctx context.Context) (chat.Session, error) {
	sess := chat.NewSession(uuid.New(), s.opts.Now())
	if err := s.opts.Store.Create(ctx, sess); err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.run(sess, []chat.Effect{chat.StartTimer{Epoch: sess.Epoch}})
	s.log.Info("Session created", "session_id", sess.ID)
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (chat.Session, error) {
	sess, err := s.opts.Store.Get(ctx, id)
	if err != nil {
		return chat.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Apply reduces one action. On a rejected action the unchanged session is
// returned together with the reducer's error. Free text the reducer accepts
// fails with ErrReplyUnavailable when no model is configured.
func (s *SessionService) Apply(ctx context.Context, id uuid.UUID, a chat.Action) (chat.Session, error) {
	_, freeText := a.(chat.SubmitFreeText)
	var effects []chat.Effect
	next, err := s.opts.Store.Update(ctx, id, func(cur chat.Session) (chat.Session, error) {
		n, eff, err := chat.Reduce(cur, a, s.env())
		if err == nil && freeText && s.opts.Streamer == nil {
			return cur, ErrReplyUnavailable
		}
		effects = eff
		return n, err
	})
	name := chat.ActionName(a)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		s.metrics.IncSessionAction(name, "not_found")
		return chat.Session{}, fmt.Errorf("apply %s: %w", name, err)
	case chat.IsNoop(err):
		s.metrics.IncSessionAction(name, "noop")
		s.log.Debug("Action ignored", "session_id", id, "action", name, "reason", err)
		return next, err
	case err != nil:
		s.metrics.IncSessionAction(name, "rejected")
		return next, err
	}
	s.metrics.IncSessionAction(name, "ok")
	s.opts.Notifier.Updated(s.View(next))
	s.run(next, effects)
	return next, nil
}

func (s *SessionService) run(sess chat.Session, effects []chat.Effect) {
	for _, e := range effects {
		switch eff := e.(type) {
		case chat.StartTimer:
			s.timers.Start(s.ctx, sess.ID, eff.Epoch)
		case chat.StopTimer:
			s.timers.StopThrough(sess.ID, sess.Epoch)
		case chat.RequestReply:
			s.startReply(sess.ID, eff)
		case chat.CancelReply:
			s.replies.Cancel(eff.RequestID)
		case chat.ArchiveTranscript:
			s.archive(eff)
		default:
			s.log.Warn("Unhandled effect", "effect", chat.EffectName(e))
		}
	}
	s.metrics.SetSessionsActive(s.timers.Len())
}

// tick publishes the elapsed time. Returning false ends the ticker when the
// session is gone, has ended or was reset into a newer epoch.
func (s *SessionService) tick(ctx context.Context, id uuid.UUID, epoch int) bool {
	sess, err := s.opts.Store.Peek(ctx, id)
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) && ctx.Err() == nil {
			s.log.Warn("Ticker could not load session", "session_id", id, "error", err)
			return true
		}
		return false
	}
	if sess.Ended || sess.Epoch != epoch {
		return false
	}
	s.opts.Notifier.Elapsed(id, epoch, sess.ElapsedText(s.opts.Now()))
	return true
}

func (s *SessionService) startReply(sessionID uuid.UUID, req chat.RequestReply) {
	s.replies.Start(s.ctx, sessionID, req.RequestID, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, s.opts.ReplyTimeout)
		defer cancel()
		log := s.log.With("session_id", sessionID, "request_id", req.RequestID)

		content, err := s.streamReply(ctx, sessionID, req)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			// end, reset or shutdown; the reducer has already dropped the request
			log.Debug("Reply cancelled")
			return
		}
		if err != nil {
			log.Warn("Reply failed", "error", err)
			s.finishReply(sessionID, chat.ReplyFailed{RequestID: req.RequestID, Err: err})
			return
		}
		s.finishReply(sessionID, chat.ReceiveReply{RequestID: req.RequestID, Content: content})
	})
}

func (s *SessionService) streamReply(ctx context.Context, sessionID uuid.UUID, req chat.RequestReply) (string, error) {
	if s.opts.Builder == nil {
		return "", ErrReplyUnavailable
	}
	creq, err := s.opts.Builder.FromTranscript(ctx, req.History)
	if err != nil {
		return "", err
	}
	return s.opts.Streamer.StreamChat(ctx, creq, func(delta string) {
		s.opts.Notifier.ReplyDelta(sessionID, req.RequestID, delta)
	})
}

// finishReply feeds the outcome back through the reducer. A reply whose
// request is no longer pending is dropped.
func (s *SessionService) finishReply(sessionID uuid.UUID, a chat.Action) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	next, err := s.Apply(ctx, sessionID, a)
	if err != nil {
		if !chat.IsNoop(err) {
			s.log.Warn("Could not record reply", "session_id", sessionID, "error", err)
		}
		return
	}
	switch act := a.(type) {
	case chat.ReceiveReply:
		if last, ok := next.Transcript.Last(); ok {
			s.opts.Notifier.ReplyCompleted(sessionID, act.RequestID, s.opts.Renderer.Message(last))
		}
	case chat.ReplyFailed:
		s.opts.Notifier.ReplyFailed(sessionID, act.RequestID, replyErrorText(act.Err))
	}
}

func replyErrorText(err error) string {
	switch {
	case errors.Is(err, llm.ErrEmptyReply):
		return "The assistant returned an empty answer. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The assistant took too long to answer. Please try again."
	default:
		return "Something went wrong while contacting the assistant. Please try again."
	}
}

func (s *SessionService) archive(e chat.ArchiveTranscript) {
	if s.opts.Archiver == nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ArchiveTimeout)
		defer cancel()
		if err := s.opts.Archiver.Archive(ctx, e); err != nil {
			s.log.Warn("Archive failed", "session_id", e.SessionID, "error", err)
		}
	}()
}

// Evict releases everything held for a session dropped by the store.
func (s *SessionService) Evict(id uuid.UUID) {
	s.timers.Stop(id)
	s.replies.CancelSession(id)
	s.metrics.SetSessionsActive(s.timers.Len())
}

// Close cancels replies, stops tickers and waits for pending archive writes.
func (s *SessionService) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.replies.Close()
		s.timers.Close()
		s.bg.Wait()
	})
	return nil
}
