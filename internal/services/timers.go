package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionTicker struct {
	epoch  int
	cancel context.CancelFunc
}

// tickerRegistry runs at most one elapsed-time ticker per session.
type tickerRegistry struct {
	interval time.Duration
	onTick   func(ctx context.Context, id uuid.UUID, epoch int) bool

	mu      sync.Mutex
	tickers map[uuid.UUID]*sessionTicker
	wg      sync.WaitGroup
}

func newTickerRegistry(interval time.Duration, onTick func(ctx context.Context, id uuid.UUID, epoch int) bool) *tickerRegistry {
	if interval <= 0 {
		interval = time.Second
	}
	return &tickerRegistry{
		interval: interval,
		onTick:   onTick,
		tickers:  make(map[uuid.UUID]*sessionTicker),
	}
}

// Start replaces a ticker of the same or an older epoch. A ticker for a
// newer epoch is kept and Start reports false, so effects applied out of
// order cannot roll a session back. onTick returning false stops the ticker.
func (r *tickerRegistry) Start(parent context.Context, id uuid.UUID, epoch int) bool {
	r.mu.Lock()
	old, ok := r.tickers[id]
	if ok && old.epoch > epoch {
		r.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	t := &sessionTicker{epoch: epoch, cancel: cancel}
	if ok {
		old.cancel()
	}
	r.tickers[id] = t
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.remove(id, t)
		tk := time.NewTicker(r.interval)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if !r.onTick(ctx, id, epoch) {
					return
				}
			}
		}
	}()
	return true
}

func (r *tickerRegistry) remove(id uuid.UUID, t *sessionTicker) {
	r.mu.Lock()
	if cur, ok := r.tickers[id]; ok && cur == t {
		delete(r.tickers, id)
	}
	r.mu.Unlock()
	t.cancel()
}

// Stop is safe to call from inside onTick.
func (r *tickerRegistry) Stop(id uuid.UUID) {
	r.mu.Lock()
	t, ok := r.tickers[id]
	delete(r.tickers, id)
	r.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// StopThrough stops the ticker for id unless it belongs to an epoch newer
// than epoch.
func (r *tickerRegistry) StopThrough(id uuid.UUID, epoch int) {
	r.mu.Lock()
	t, ok := r.tickers[id]
	if ok && t.epoch > epoch {
		r.mu.Unlock()
		return
	}
	delete(r.tickers, id)
	r.mu.Unlock()
	if ok {
		t.cancel()
	}
}

func (r *tickerRegistry) Running(id uuid.UUID) (epoch int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickers[id]
	if !ok {
		return 0, false
	}
	return t.epoch, true
}

func (r *tickerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickers)
}

// Close stops every ticker and waits for the goroutines to exit.
func (r *tickerRegistry) Close() {
	r.mu.Lock()
	for id, t := range r.tickers {
		t.cancel()
		delete(r.tickers, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
