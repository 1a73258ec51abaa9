package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
)

var (
	ErrQueueClosed = errors.New("retry queue closed")
	ErrQueueFull   = errors.New("retry queue full")
)

const defaultDrainTimeout = 10 * time.Second

// Lane picks the buffer and workers a job runs on.
type Lane int

const (
	// LaneBulk carries deferred decision, violation and audit writes.
	LaneBulk Lane = iota
	// LaneCritical carries crisis alert persistence and responder
	// notifications. It never waits behind bulk writes.
	LaneCritical
)

func (l Lane) String() string {
	if l == LaneCritical {
		return "critical"
	}
	return "bulk"
}

// Job is a deferred write. Run must be idempotent: it may execute more than
// once when storage acknowledges late.
type Job struct {
	Kind string
	Key  string
	Lane Lane
	Run  func(ctx context.Context) error
	// Abandoned is called once when the job is dropped or gives up.
	Abandoned func(err error)
}

type RetryPolicy struct {
	QueueSize         int
	CriticalQueueSize int
	CriticalWorkers   int
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	MaxElapsedTime    time.Duration
	// DrainTimeout bounds how long Close keeps retrying what is queued.
	DrainTimeout time.Duration
}

type RetryQueue interface {
	Enqueue(job Job) error
	// Start runs the workers. Cancelling ctx does not stop them; Close does.
	Start(ctx context.Context, workers int)
	Close()
	Len() int
}

type retryQueue struct {
	logger   *logrus.Logger
	policy   RetryPolicy
	bulk     chan Job
	critical chan Job
	closed   atomic.Bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	cancels  []context.CancelFunc
}

func NewRetryQueue(logger *logrus.Logger, policy RetryPolicy) RetryQueue {
	if policy.QueueSize <= 0 {
		policy.QueueSize = 1024
	}
	if policy.CriticalQueueSize <= 0 {
		policy.CriticalQueueSize = 256
	}
	if policy.CriticalWorkers <= 0 {
		policy.CriticalWorkers = 1
	}
	if policy.DrainTimeout <= 0 {
		policy.DrainTimeout = defaultDrainTimeout
	}
	return &retryQueue{
		logger:   logger,
		policy:   policy,
		bulk:     make(chan Job, policy.QueueSize),
		critical: make(chan Job, policy.CriticalQueueSize),
	}
}

// Enqueue never blocks. A full lane drops the job and reports it.
func (q *retryQueue) Enqueue(job Job) error {
	err := q.offer(job)
	if err != nil {
		q.abandon(job, err)
	}
	return err
}

func (q *retryQueue) offer(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed.Load() {
		return ErrQueueClosed
	}
	jobs := q.bulk
	if job.Lane == LaneCritical {
		jobs = q.critical
	}
	select {
	case jobs <- job:
		q.depth()
		return nil
	default:
		prometheus.RetryJobsTotal.WithLabelValues(job.Kind, "dropped").Inc()
		q.logger.WithFields(logrus.Fields{
			"kind": job.Kind,
			"key":  job.Key,
			"lane": job.Lane.String(),
		}).Error("retry queue full, dropping deferred write")
		return ErrQueueFull
	}
}

func (q *retryQueue) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.mu.Lock()
	q.cancels = append(q.cancels, cancel)
	q.mu.Unlock()

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work(runCtx, q.bulk)
	}
	for i := 0; i < q.policy.CriticalWorkers; i++ {
		q.wg.Add(1)
		go q.work(runCtx, q.critical)
	}
}

func (q *retryQueue) work(ctx context.Context, jobs <-chan Job) {
	defer q.wg.Done()
	for job := range jobs {
		q.depth()
		q.run(ctx, job)
	}
}

func (q *retryQueue) run(ctx context.Context, job Job) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = q.policy.InitialInterval
	bo.MaxInterval = q.policy.MaxInterval
	bo.MaxElapsedTime = q.policy.MaxElapsedTime

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := job.Run(ctx)
		if err != nil && IsOutcome(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))

	entry := q.logger.WithFields(logrus.Fields{
		"kind":     job.Kind,
		"key":      job.Key,
		"lane":     job.Lane.String(),
		"attempts": attempts,
	})
	if err != nil {
		prometheus.RetryJobsTotal.WithLabelValues(job.Kind, "abandoned").Inc()
		entry.WithError(err).Error("deferred write abandoned")
		q.abandon(job, err)
		return
	}
	prometheus.RetryJobsTotal.WithLabelValues(job.Kind, "succeeded").Inc()
	entry.Debug("deferred write completed")
}

func (q *retryQueue) abandon(job Job, err error) {
	if job.Abandoned != nil {
		job.Abandoned(err)
	}
}

func (q *retryQueue) depth() {
	prometheus.RetryQueueDepth.Set(float64(q.Len()))
}

// Close stops accepting jobs and keeps retrying the queued ones for up to
// DrainTimeout. Whatever is left after that gets a last attempt and is
// handed to its Abandoned hook.
func (q *retryQueue) Close() {
	q.mu.Lock()
	if q.closed.Swap(true) {
		q.mu.Unlock()
		return
	}
	close(q.bulk)
	close(q.critical)
	cancels := q.cancels
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	timer := time.NewTimer(q.policy.DrainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		q.logger.WithField("pending", q.Len()).Warn("retry queue drain timed out")
	}
	for _, cancel := range cancels {
		cancel()
	}
	<-drained

	// never started: nothing ran what is still buffered
	for _, jobs := range []chan Job{q.critical, q.bulk} {
		for job := range jobs {
			q.abandon(job, ErrQueueClosed)
		}
	}
	q.depth()
}

func (q *retryQueue) Len() int {
	return len(q.bulk) + len(q.critical)
}
