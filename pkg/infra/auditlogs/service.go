package auditlogs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	"github.com/NeuralTrust/CareGuard/pkg/domain/telemetry"
	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/CareGuard/pkg/infra/resilience"
)

var errWALClosed = errors.New("audit wal closed")

const (
	jobKindPersist = "audit_persist"
	jobKindExport  = "audit_export"
)

type Service interface {
	// Record makes the event durable in the local WAL and schedules the
	// database insert. It only fails when the WAL write fails.
	Record(ctx context.Context, event Event) (audit.Record, error)
	Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error)
	Compact(ctx context.Context) error
	Close() error
}

type Options struct {
	WALDir  string
	Workers int
	Retry   resilience.RetryPolicy
	// Exporter is optional; nil disables compliance export.
	Exporter telemetry.Exporter
	Now      func() time.Time
}

type service struct {
	logger   *logrus.Logger
	repo     audit.Repository
	exporter telemetry.Exporter
	wal      *wal
	queue    resilience.RetryQueue
	now      func() time.Time

	mu      sync.Mutex
	backlog []audit.Record
}

// NewService opens the WAL, starts the persistence workers and re-drives
// every record the previous run left unacknowledged.
func NewService(ctx context.Context, logger *logrus.Logger, repo audit.Repository, opts Options) (Service, error) {
	w, replay, err := openWAL(logger, opts.WALDir)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &service{
		logger:   logger,
		repo:     repo,
		exporter: opts.Exporter,
		wal:      w,
		queue:    resilience.NewRetryQueue(logger, opts.Retry),
		now:      now,
	}
	s.queue.Start(ctx, opts.Workers)

	if len(replay) > 0 {
		logger.WithField("records", len(replay)).Info("replaying audit wal")
	}
	for _, e := range replay {
		s.schedule(e.record)
	}
	return s, nil
}

func (s *service) Record(_ context.Context, event Event) (audit.Record, error) {
	rec := event.toRecord(s.now())
	if _, err := s.wal.Append(rec); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"component":  rec.Component,
			"event_type": rec.EventType,
		}).Error("failed to append audit record to wal")
		return rec, err
	}
	s.schedule(rec)
	return rec, nil
}

func (s *service) schedule(rec audit.Record) {
	err := s.queue.Enqueue(resilience.Job{
		Kind: jobKindPersist,
		Key:  rec.ID.String(),
		Run: func(ctx context.Context) error {
			return s.persist(ctx, rec)
		},
	})
	if err != nil {
		s.mu.Lock()
		s.backlog = append(s.backlog, rec)
		s.mu.Unlock()
	}
	prometheus.AuditPending.Set(float64(len(s.wal.Unacked())))
}

func (s *service) persist(ctx context.Context, rec audit.Record) error {
	if err := s.repo.Append(ctx, []audit.Record{rec}); err != nil {
		return err
	}
	s.wal.Ack(rec.ID)
	prometheus.AuditPending.Set(float64(len(s.wal.Unacked())))

	if s.exporter == nil {
		return nil
	}
	// export runs as its own job
	_ = s.queue.Enqueue(resilience.Job{
		Kind: jobKindExport,
		Key:  rec.ID.String(),
		Run: func(ctx context.Context) error {
			return s.exporter.Export(ctx, telemetry.Envelope{
				Key:        rec.SessionID,
				Kind:       telemetry.KindAuditRecord,
				OccurredAt: rec.CreatedAt,
				Payload:    rec,
			})
		},
	})
	return nil
}

func (s *service) Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	return s.repo.Query(ctx, filter)
}

// Compact re-drives records that could not be queued and removes WAL
// segments that are fully persisted.
func (s *service) Compact(_ context.Context) error {
	s.mu.Lock()
	backlog := s.backlog
	s.backlog = nil
	s.mu.Unlock()
	for _, rec := range backlog {
		s.schedule(rec)
	}

	removed, err := s.wal.Compact()
	if err != nil {
		s.logger.WithError(err).Error("failed to compact audit wal")
		return err
	}
	if removed > 0 {
		s.logger.WithField("segments", removed).Debug("audit wal compacted")
	}
	return nil
}

func (s *service) Close() error {
	s.queue.Close()
	if s.exporter != nil {
		s.exporter.Close()
	}
	return s.wal.Close()
}
