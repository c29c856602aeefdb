package countdown

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the refresh rate of a running countdown.
const DefaultInterval = time.Second

type config struct {
	interval time.Duration
	now      func() time.Time
}

// Option configures Start and NewBoard.
type Option func(*config)

// WithInterval overrides the refresh interval.
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock overrides the wall clock used on every tick.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

func newConfig(opts []Option) config {
	c := config{interval: DefaultInterval, now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Ticker delivers a fresh State on C once per interval until it is stopped,
// its context ends, or the deadline has passed. C is closed when the
// goroutine exits.
type Ticker struct {
	C <-chan State

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start begins a countdown to deadline, which may be any value Normalize
// accepts. It returns false and starts nothing when the deadline is absent or
// invalid. The first state is emitted immediately; the last one emitted is
// the first expired state.
func Start(ctx context.Context, deadline any, opts ...Option) (*Ticker, bool) {
	target, ok := Normalize(deadline)
	if !ok {
		return nil, false
	}
	cfg := newConfig(opts)

	out := make(chan State, 1)
	t := &Ticker{
		C:    out,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run(ctx, target, cfg, out)
	return t, true
}

func (t *Ticker) run(ctx context.Context, target time.Time, cfg config, out chan<- State) {
	defer close(t.done)
	defer close(out)

	emit := func() bool {
		st := Tick(target, cfg.now())
		select {
		case out <- st:
		case <-t.stop:
			return false
		case <-ctx.Done():
			return false
		}
		return !st.Expired
	}

	if !emit() {
		return
	}

	tk := time.NewTicker(cfg.interval)
	defer tk.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		case <-tk.C:
			if !emit() {
				return
			}
		}
	}
}

// Stop halts the ticker and waits for its goroutine to exit. It is safe to
// call more than once and from several goroutines.
func (t *Ticker) Stop() {
	if t == nil {
		return
	}
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

// Done is closed once the ticker has fully stopped.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}
