package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alnah/paperdigest/internal/metrics"
	"github.com/alnah/paperdigest/internal/processor"
)

// Queue defaults.
const (
	DefaultWorkers    = 1
	DefaultQueueSize  = 64
	DefaultJobTimeout = 5 * time.Minute
)

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithWorkers sets the number of concurrent jobs. Values below 1 mean 1.
func WithWorkers(n int) QueueOption {
	return func(q *Queue) { q.workers = n }
}

// WithQueueSize sets how many jobs may wait for a worker.
func WithQueueSize(n int) QueueOption {
	return func(q *Queue) { q.size = n }
}

// WithJobTimeout bounds each job.
func WithJobTimeout(d time.Duration) QueueOption {
	return func(q *Queue) { q.timeout = d }
}

// WithQueueLogger sets the logger.
func WithQueueLogger(l *slog.Logger) QueueOption {
	return func(q *Queue) {
		if l != nil {
			q.log = l
		}
	}
}

// WithQueueMetrics reports the queue depth.
func WithQueueMetrics(m *metrics.Metrics) QueueOption {
	return func(q *Queue) { q.metrics = m }
}

// Queue runs jobs on a fixed set of workers. Job failures are logged and
// never reported to the caller of Dispatch.
type Queue struct {
	proc    Processor
	workers int
	size    int
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics

	jobs   chan processor.Job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	// base outlives the dispatching request and is canceled only when a
	// shutdown deadline expires.
	base   context.Context
	cancel context.CancelFunc
}

// NewQueue starts the workers.
func NewQueue(proc Processor, opts ...QueueOption) *Queue {
	q := &Queue{
		proc:    proc,
		workers: DefaultWorkers,
		size:    DefaultQueueSize,
		timeout: DefaultJobTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.workers < 1 {
		q.workers = 1
	}
	if q.size < 0 {
		q.size = 0
	}
	if q.timeout <= 0 {
		q.timeout = DefaultJobTimeout
	}

	q.jobs = make(chan processor.Job, q.size)
	q.base, q.cancel = context.WithCancel(context.Background())

	for w := 0; w < q.workers; w++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Dispatch enqueues job without blocking. It fails when the queue is full
// or shut down.
func (q *Queue) Dispatch(ctx context.Context, job processor.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		q.setDepth()
		q.log.Debug("dispatch.queued", "request_id", job.RequestID, "depth", len(q.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) work() {
	defer q.wg.Done()

	for job := range q.jobs {
		q.setDepth()
		q.run(job)
	}
}

func (q *Queue) run(job processor.Job) {
	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	defer cancel()

	if _, err := q.proc.Process(ctx, job); err != nil {
		q.log.Error("processor.failed", "request_id", job.RequestID, "error", err)
	}
}

func (q *Queue) setDepth() {
	if q.metrics != nil {
		q.metrics.QueueDepth.Set(float64(len(q.jobs)))
	}
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. When ctx expires first, running jobs are canceled and ctx's
// error is returned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}
