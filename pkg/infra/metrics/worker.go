package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
)

// DecisionEvent is what the pipeline reports after each inspection.
type DecisionEvent struct {
	Role       string
	Action     string
	Category   string
	Violations []string
	Elapsed    time.Duration
	FailClosed bool
}

type Worker interface {
	Shutdown()
	StartWorkers(n int)
	Process(evt DecisionEvent)
}

type worker struct {
	logger   *logrus.Logger
	taskChan chan func()
	ctx      context.Context
	cancel   context.CancelFunc
	closed   atomic.Bool
}

func NewWorker(logger *logrus.Logger) Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &worker{
		logger:   logger,
		taskChan: make(chan func(), 1000),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *worker) Shutdown() {
	if m.closed.Swap(true) {
		return
	}
	m.logger.Info("shutting down metrics workers")
	m.cancel()
	m.logger.Info("metrics workers stopped")
}

func (m *worker) Process(evt DecisionEvent) {
	m.enqueueTask(func() {
		m.registryMetricsToPrometheus(evt)
	}, evt.Role)
}

func (m *worker) registryMetricsToPrometheus(evt DecisionEvent) {
	category := evt.Category
	if category == "" {
		category = "none"
	}
	prometheus.DecisionsTotal.WithLabelValues(evt.Role, evt.Action, category).Inc()
	if prometheus.Config.EnableLatency {
		prometheus.InspectLatency.WithLabelValues(evt.Role).
			Observe(float64(evt.Elapsed.Microseconds()) / 1000)
	}
	for _, v := range evt.Violations {
		prometheus.BoundaryViolationsTotal.WithLabelValues(v).Inc()
	}
	if evt.FailClosed {
		prometheus.FailClosedTotal.Inc()
	}
}

func (m *worker) StartWorkers(n int) {
	m.logger.WithField("workers", n).Info("starting metrics workers")
	for i := 0; i < n; i++ {
		go func() {
			for {
				select {
				case task := <-m.taskChan:
					task()
				case <-m.ctx.Done():
					return
				}
			}
		}()
	}
}

func (m *worker) enqueueTask(task func(), role string) {
	if m.closed.Load() {
		return
	}
	select {
	case m.taskChan <- task:
	default:
		m.logger.WithField("role", role).Warn("taskChan is full, dropping metrics task")
	}
}
