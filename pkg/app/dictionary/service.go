package dictionary

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/channel"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
)

type Service interface {
	Current() *Snapshot
	Lookup(category pattern.Category) []pattern.Entry
	Versions(ctx context.Context, key string) ([]pattern.Entry, error)
	// Refresh reloads the active entries and swaps the snapshot. On failure
	// the previous snapshot stays in place and a DictionaryLoadError is
	// returned.
	Refresh(ctx context.Context) (*Snapshot, error)
	AddVersion(ctx context.Context, entry pattern.Entry) (*pattern.Entry, error)
}

type Deps struct {
	Logger     *logrus.Logger
	Repo       pattern.Repository
	Publisher  cache.EventPublisher
	Audit      auditlogs.Service
	InstanceID string
	Now        func() time.Time
}

type service struct {
	logger     *logrus.Logger
	repo       pattern.Repository
	publisher  cache.EventPublisher
	audit      auditlogs.Service
	instanceID string
	now        func() time.Time

	current   atomic.Pointer[Snapshot]
	refreshMu sync.Mutex
}

// NewService starts out serving the built-in defaults so there is never an
// empty dictionary, even before the first Refresh.
func NewService(deps Deps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	s := &service{
		logger:     deps.Logger,
		repo:       deps.Repo,
		publisher:  deps.Publisher,
		audit:      deps.Audit,
		instanceID: deps.InstanceID,
		now:        now,
	}

	defaults := pattern.Defaults()
	matchers := make([]Matcher, 0, len(defaults))
	for _, e := range defaults {
		m, err := compile(e)
		if err != nil {
			s.logger.WithError(err).Error("built-in pattern does not compile")
			continue
		}
		matchers = append(matchers, m)
	}
	s.swap(newSnapshot(1, time.Time{}, SourceDefaults, matchers))
	return s
}

func (s *service) Current() *Snapshot {
	return s.current.Load()
}

func (s *service) Lookup(category pattern.Category) []pattern.Entry {
	return s.Current().Lookup(category)
}

func (s *service) Versions(ctx context.Context, key string) ([]pattern.Entry, error) {
	return s.repo.ListVersions(ctx, key)
}

func (s *service) swap(snap *Snapshot) {
	s.current.Store(snap)
	prometheus.DictionaryGeneration.Set(float64(snap.Generation))
	prometheus.DictionaryEntries.Set(float64(snap.Len()))
}

func (s *service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	issuedAt := s.now()
	entries, err := s.repo.ListActive(ctx)
	if err != nil {
		return s.keepLastGood(ctx, domainErrors.NewDictionaryLoadError(fmt.Sprintf("load active patterns: %v", err)))
	}

	var reasons []string
	matchers := make([]Matcher, 0, len(entries))
	for _, e := range entries {
		// ActivatedAt is stamped by the database clock; a committed entry is
		// already active, so the snapshot is issued no earlier than it.
		if e.ActivatedAt.After(issuedAt) {
			issuedAt = e.ActivatedAt
		}
		m, err := compile(e)
		if err != nil {
			s.logger.WithError(err).WithField("pattern_key", e.Key).Error("skipping pattern that does not compile")
			reasons = append(reasons, err.Error())
			continue
		}
		matchers = append(matchers, m)
	}
	if len(matchers) == 0 {
		if len(reasons) == 0 {
			reasons = append(reasons, "no active patterns")
		}
		return s.keepLastGood(ctx, domainErrors.NewDictionaryLoadError(reasons...))
	}

	prev := s.Current()
	snap := newSnapshot(prev.Generation+1, issuedAt, SourceStore, matchers)
	s.swap(snap)

	s.logger.WithFields(logrus.Fields{
		"generation": snap.Generation,
		"entries":    snap.Len(),
		"skipped":    len(reasons),
	}).Debug("dictionary refreshed")

	if prev.Source != snap.Source || prev.Len() != snap.Len() || len(reasons) > 0 {
		s.record(ctx, auditlogs.Event{
			Component: audit.ComponentDictionary,
			Type:      auditlogs.EventTypeDictionaryRefreshed,
			Payload: map[string]interface{}{
				"generation": snap.Generation,
				"entries":    snap.Len(),
				"skipped":    reasons,
			},
		})
	}
	return snap, nil
}

func (s *service) keepLastGood(ctx context.Context, err error) (*Snapshot, error) {
	prometheus.DictionaryLoadFailures.Inc()
	cur := s.Current()
	s.logger.WithError(err).WithFields(logrus.Fields{
		"generation": cur.Generation,
		"source":     cur.Source,
	}).Error("dictionary refresh failed, keeping last known good snapshot")
	s.record(ctx, auditlogs.Event{
		Component: audit.ComponentDictionary,
		Type:      auditlogs.EventTypeDictionaryLoadFailed,
		Priority:  audit.PriorityHigh,
		Payload: map[string]interface{}{
			"error":      err.Error(),
			"generation": cur.Generation,
		},
	})
	return cur, err
}

func (s *service) AddVersion(ctx context.Context, entry pattern.Entry) (*pattern.Entry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if _, err := compile(entry); err != nil {
		return nil, domainErrors.NewValidationError("pattern", err.Error())
	}

	stored, err := s.repo.AddVersion(ctx, entry)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"pattern_key": stored.Key,
		"pattern_id":  stored.ID,
		"version":     stored.Version,
		"weight":      stored.Weight,
	}).Info("pattern version added")

	s.record(ctx, auditlogs.Event{
		Component: audit.ComponentDictionary,
		Type:      auditlogs.EventTypeDictionaryVersionAdded,
		Category:  string(stored.Category),
		SubjectID: stored.ID.String(),
		Payload: map[string]interface{}{
			"key":        stored.Key,
			"version":    stored.Version,
			"weight":     stored.Weight,
			"created_by": stored.CreatedBy,
		},
	})

	if _, err := s.Refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("refresh after add version failed")
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, channel.DictionaryChannel, event.DictionaryUpdatedEvent{
			PatternID:  stored.ID.String(),
			PatternKey: stored.Key,
			Version:    stored.Version,
			Origin:     s.instanceID,
		})
		if err != nil {
			s.logger.WithError(err).Warn("failed to publish dictionary update")
		}
	}
	return stored, nil
}

func (s *service) record(ctx context.Context, ev auditlogs.Event) {
	if s.audit == nil {
		return
	}
	_, _ = s.audit.Record(ctx, ev)
}
