// Package worker delivers queued notifications through a dispatcher.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

const (
	defaultWorkerCount  = 2
	poolShutdownTimeout = 30 * time.Second
)

// Dispatcher sends one notification and reports success.
type Dispatcher interface {
	Send(ctx context.Context, n model.Notification) bool
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Notification
}

// Closer is implemented by queues that can stop accepting work.
type Closer interface {
	Close() error
}

// Worker drains the queue until it is closed or ctx is canceled.
type Worker interface {
	Run(ctx context.Context)
}

// InMemoryWorker delivers notifications one at a time.
type InMemoryWorker struct {
	queue      Queue
	dispatcher Dispatcher
	name       string
	logger     logger.Logger
	stats      *counters
	done       chan struct{}
}

type counters struct {
	delivered atomic.Int64
	failed    atomic.Int64
	active    atomic.Int64
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, d Dispatcher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		dispatcher: d,
		name:       "worker",
		stats:      &counters{},
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-items:
			if !ok {
				return
			}
			w.process(ctx, n)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, n model.Notification) {
	start := time.Now()
	w.stats.active.Add(1)
	defer func() {
		w.stats.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if w.dispatcher.Send(ctx, n) {
		w.stats.delivered.Add(1)
		return
	}
	w.stats.failed.Add(1)
	metrics.RecordWorkerError()
	w.logger.Debug(ctx, "notification not delivered",
		logger.String("key", n.Key),
		logger.String("destination", n.Destination))
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	stats   *counters
	logger  logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
}

// NewPool creates a pool of workerCount workers. Non-positive counts use the
// default.
func NewPool(workerCount int, q Queue, d Dispatcher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		stats:   &counters{},
	}
	base := &InMemoryWorker{}
	for _, opt := range opts {
		opt(base)
	}
	if base.logger == nil {
		base.logger = logger.Get()
	}
	p.logger = base.logger.Named("worker-pool")

	for i := 0; i < workerCount; i++ {
		name := "worker-" + strconv.Itoa(i)
		w := NewInMemoryWorker(q, d, append(opts, WithName(name), WithLogger(base.logger.Named(name)))...)
		w.stats = p.stats
		p.workers[i] = w
	}
	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
}

// Shutdown closes the queue and waits for workers to drain it. Workers still
// busy when ctx expires are canceled.
func (p *Pool) Shutdown(ctx context.Context) error {
	if c, ok := p.queue.(Closer); ok {
		if err := c.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.mu.Lock()
	started, cancel := p.started, p.cancel
	p.mu.Unlock()
	if !started {
		return nil
	}
	defer cancel()

	waitCtx, stop := context.WithTimeout(ctx, poolShutdownTimeout)
	defer stop()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-waitCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", waitCtx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}

// GetStats returns delivery counters.
func (p *Pool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"workers":   len(p.workers),
		"busy":      p.stats.active.Load(),
		"delivered": p.stats.delivered.Load(),
		"failed":    p.stats.failed.Load(),
	}
}
