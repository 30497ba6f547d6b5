package sessionstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dudesk/dudesk-chat/internal/domain/chat"
	pkgerrors "github.com/dudesk/dudesk-chat/internal/pkg/errors"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

type memoryEntry struct {
	session  chat.Session
	lastSeen time.Time
}

// MemoryOptions configures an in-process store. OnEvict runs outside the
// store lock for every session dropped by the sweeper.
type MemoryOptions struct {
	TTL           time.Duration
	SweepInterval time.Duration
	OnEvict       func(id uuid.UUID)
	Now           func() time.Time
}

type MemoryStore struct {
	log  *logger.Logger
	opts MemoryOptions

	mu       sync.Mutex
	sessions map[uuid.UUID]*memoryEntry

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewMemoryStore(log *logger.Logger, opts MemoryOptions) *MemoryStore {
	if log == nil {
		log = logger.Nop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &MemoryStore{
		log:      log.With("service", "MemorySessionStore"),
		opts:     opts,
		sessions: make(map[uuid.UUID]*memoryEntry),
		stop:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.sweepLoop()
	return m
}

func (m *MemoryStore) Create(_ context.Context, s chat.Session) error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("missing session id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s: %w", s.ID, pkgerrors.ErrConflict)
	}
	m.sessions[s.ID] = &memoryEntry{session: s.Clone(), lastSeen: m.opts.Now()}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (chat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return chat.Session{}, pkgerrors.ErrNotFound
	}
	e.lastSeen = m.opts.Now()
	return e.session.Clone(), nil
}

func (m *MemoryStore) Peek(_ context.Context, id uuid.UUID) (chat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return chat.Session{}, pkgerrors.ErrNotFound
	}
	return e.session.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id uuid.UUID, fn UpdateFunc) (chat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return chat.Session{}, pkgerrors.ErrNotFound
	}
	e.lastSeen = m.opts.Now()
	next, err := fn(e.session.Clone())
	if err != nil {
		return e.session.Clone(), err
	}
	e.session = next.Clone()
	return next, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are live.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
	return nil
}

func (m *MemoryStore) sweepLoop() {
	defer m.wg.Done()
	t := time.NewTicker(m.opts.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

// Sweep drops sessions idle for longer than the TTL.
func (m *MemoryStore) Sweep() int {
	cutoff := m.opts.Now().Add(-m.opts.TTL)
	var evicted []uuid.UUID
	m.mu.Lock()
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	for _, id := range evicted {
		m.log.Debug("Session evicted", "session_id", id)
		if m.opts.OnEvict != nil {
			m.opts.OnEvict(id)
		}
	}
	return len(evicted)
}
