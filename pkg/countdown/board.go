package countdown

import (
	"context"
	"sync"
)

// Board keeps one Ticker per displayed goal. Tracking an id again replaces
// its ticker, so a deadline change never leaves the old timer running.
type Board struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	opts    []Option
	tickers map[string]*Ticker
	closed  bool
}

func NewBoard(opts ...Option) *Board {
	ctx, cancel := context.WithCancel(context.Background())
	return &Board{
		ctx:     ctx,
		cancel:  cancel,
		opts:    opts,
		tickers: make(map[string]*Ticker),
	}
}

// Track starts (or restarts) the countdown for id. An absent or invalid
// deadline stops any existing ticker for id and returns false.
func (b *Board) Track(id string, deadline any) (<-chan State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, false
	}

	if old, ok := b.tickers[id]; ok {
		old.Stop()
		delete(b.tickers, id)
	}

	t, ok := Start(b.ctx, deadline, b.opts...)
	if !ok {
		return nil, false
	}
	b.tickers[id] = t
	return t.C, true
}

// Untrack stops the ticker for id, if any.
func (b *Board) Untrack(id string) {
	b.mu.Lock()
	t, ok := b.tickers[id]
	delete(b.tickers, id)
	b.mu.Unlock()

	if ok {
		t.Stop()
	}
}

// Len reports how many tickers are registered.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tickers)
}

// Close stops every ticker. Track after Close is a no-op.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	tickers := b.tickers
	b.tickers = make(map[string]*Ticker)
	b.mu.Unlock()

	b.cancel()
	for _, t := range tickers {
		t.Stop()
	}
}
