package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type runningReply struct {
	sessionID uuid.UUID
	cancel    context.CancelFunc
}

// replyRunner tracks in-flight model replies by request id.
type replyRunner struct {
	mu      sync.Mutex
	running map[string]runningReply
	wg      sync.WaitGroup
}

func newReplyRunner() *replyRunner {
	return &replyRunner{running: make(map[string]runningReply)}
}

func (r *replyRunner) Start(parent context.Context, sessionID uuid.UUID, requestID string, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	if old, ok := r.running[requestID]; ok {
		old.cancel()
	}
	r.running[requestID] = runningReply{sessionID: sessionID, cancel: cancel}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.running, requestID)
			r.mu.Unlock()
			cancel()
		}()
		fn(ctx)
	}()
}

func (r *replyRunner) Cancel(requestID string) {
	r.mu.Lock()
	rr, ok := r.running[requestID]
	r.mu.Unlock()
	if ok {
		rr.cancel()
	}
}

// CancelSession cancels every reply of a session, used on eviction.
func (r *replyRunner) CancelSession(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rr := range r.running {
		if rr.sessionID == sessionID {
			rr.cancel()
		}
	}
}

func (r *replyRunner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

func (r *replyRunner) Close() {
	r.mu.Lock()
	for _, rr := range r.running {
		rr.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
