package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pbnkron/kron/internal/api/metrics"
	"github.com/pbnkron/kron/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// OwnerLister yields every owner a sweep should visit.
type OwnerLister func(ctx context.Context) ([]string, error)

// Dispatcher routes reconciliation requests to a fixed set of workers using
// consistent hashing on the owner uid, so runs for one owner never overlap.
// An owner already waiting in a queue is not queued twice.
type Dispatcher struct {
	workers []chan string
	service ports.ReconcileService
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup

	// closeMu is held for reading across every shard send.
	closeMu sync.RWMutex
	closed  bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.ReconcileService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan string, numWorkers),
		service: service,
		log:     log,
		pending: make(map[string]struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan string, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue schedules a reconciliation of ownerUID. It reports false when the
// owner is already queued, the dispatcher is closed, or ctx ends before the
// shard accepts it.
func (d *Dispatcher) Enqueue(ctx context.Context, ownerUID string) bool {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return false
	}

	d.mu.Lock()
	if _, queued := d.pending[ownerUID]; queued {
		d.mu.Unlock()
		return false
	}
	d.pending[ownerUID] = struct{}{}
	d.mu.Unlock()

	idx := d.shardIndex(ownerUID)
	select {
	case d.workers[idx] <- ownerUID:
		metrics.ReconcileQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return true
	case <-ctx.Done():
		d.done(ownerUID)
		return false
	}
}

// Close stops accepting work. Workers finish what is already queued and
// return, so Close followed by Wait drains the dispatcher.
func (d *Dispatcher) Close() {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
}

// Sweep enqueues every owner returned by list.
func (d *Dispatcher) Sweep(ctx context.Context, list OwnerLister) (int, error) {
	owners, err := list(ctx)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, uid := range owners {
		if d.Enqueue(ctx, uid) {
			queued++
		}
	}
	return queued, nil
}

// RunPeriodic sweeps every interval until ctx is cancelled.
func (d *Dispatcher) RunPeriodic(ctx context.Context, interval time.Duration, list OwnerLister) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := d.Sweep(ctx, list)
			if err != nil {
				d.log.Error().Err(err).Msg("reconcile sweep failed to list owners")
				continue
			}
			d.log.Debug().Int("queued", n).Msg("reconcile sweep queued owners")
		}
	}
}

// shardIndex maps an owner uid deterministically to a worker index.
func (d *Dispatcher) shardIndex(ownerUID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ownerUID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) done(ownerUID string) {
	d.mu.Lock()
	delete(d.pending, ownerUID)
	d.mu.Unlock()
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan string) {
	defer d.wg.Done()
	depth := metrics.ReconcileQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			return
		case ownerUID, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			d.done(ownerUID)

			plan, err := d.service.Reconcile(ctx, ownerUID)
			if err != nil {
				d.log.Error().Err(err).
					Str("owner_uid", ownerUID).
					Int("worker_id", id).
					Msg("reconcile failed")
				continue
			}
			if !plan.Empty() {
				d.log.Info().
					Str("owner_uid", ownerUID).
					Int("worker_id", id).
					Int("upserted", len(plan.Upsert)).
					Int("deleted", len(plan.Delete)).
					Msg("reconcile applied")
			}
		}
	}
}
