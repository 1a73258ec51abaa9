package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
)

const (
	autoReviewer      = "feedback-auto"
	defaultPopTimeout = 5 * time.Second
)

type Config struct {
	Rules      Rules
	Window     time.Duration
	AutoApply  bool
	PopTimeout time.Duration
}

type Service interface {
	// Ingest stores the verdict and queues it for aggregation. It never
	// aggregates on the caller's goroutine.
	Ingest(ctx context.Context, v *verdict.Verdict) error
	// Run rehydrates the window from stored verdicts and then consumes the
	// queue until ctx is done.
	Run(ctx context.Context) error
	Rehydrate(ctx context.Context) error
	Process(ctx context.Context, verdictID uuid.UUID) error
	Tally(patternID uuid.UUID) Tally
	Proposals(ctx context.Context, status verdict.ProposalStatus) ([]verdict.Proposal, error)
	Approve(ctx context.Context, id uuid.UUID, reviewer string) (*verdict.Proposal, error)
	Reject(ctx context.Context, id uuid.UUID, reviewer string) (*verdict.Proposal, error)
}

type Deps struct {
	Logger     *logrus.Logger
	Verdicts   verdict.Repository
	Proposals  verdict.ProposalRepository
	Decisions  decision.Repository
	Dictionary dictionary.Service
	Queue      cache.VerdictQueue
	Audit      auditlogs.Service
	Config     Config
	Now        func() time.Time
}

type service struct {
	logger     *logrus.Logger
	verdicts   verdict.Repository
	proposals  verdict.ProposalRepository
	decisions  decision.Repository
	dictionary dictionary.Service
	queue      cache.VerdictQueue
	audit      auditlogs.Service
	cfg        Config
	now        func() time.Time

	mu        sync.Mutex
	windows   map[uuid.UUID]*window
	processed map[uuid.UUID]time.Time
	// pattern key -> when a reviewer last rejected a reduction for it
	rejected map[string]time.Time
}

func NewService(deps Deps) Service {
	cfg := deps.Config
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = defaultPopTimeout
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		logger:     deps.Logger,
		verdicts:   deps.Verdicts,
		proposals:  deps.Proposals,
		decisions:  deps.Decisions,
		dictionary: deps.Dictionary,
		queue:      deps.Queue,
		audit:      deps.Audit,
		cfg:        cfg,
		now:        now,
		windows:    make(map[uuid.UUID]*window),
		processed:  make(map[uuid.UUID]time.Time),
		rejected:   make(map[string]time.Time),
	}
}

func (s *service) Ingest(ctx context.Context, v *verdict.Verdict) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if _, err := s.decisions.Get(ctx, v.DecisionID); err != nil {
		return err
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	if err := s.verdicts.Save(ctx, v); err != nil {
		return err
	}
	prometheus.VerdictsTotal.WithLabelValues(string(v.Verdict)).Inc()
	s.record(ctx, auditlogs.Event{
		Type:      auditlogs.EventTypeVerdictReceived,
		SubjectID: v.ID.String(),
		Payload: map[string]interface{}{
			"decision_id": v.DecisionID.String(),
			"verdict":     string(v.Verdict),
			"reviewer_id": v.ReviewerID,
		},
	})

	if s.queue == nil {
		return nil
	}
	if err := s.queue.Push(ctx, v.ID.String()); err != nil {
		// the verdict is stored; the next rehydrate picks it up
		s.logger.WithError(err).WithField("verdict_id", v.ID).Warn("failed to queue verdict for aggregation")
	}
	return nil
}

func (s *service) Run(ctx context.Context) error {
	if err := s.Rehydrate(ctx); err != nil {
		s.logger.WithError(err).Error("feedback rehydrate failed")
	}
	if s.queue == nil {
		<-ctx.Done()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		id, err := s.queue.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := bo.NextBackOff()
			s.logger.WithError(err).WithField("retry_in", wait.String()).Warn("verdict queue unavailable")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
		if id == "" {
			continue
		}
		verdictID, err := uuid.Parse(id)
		if err != nil {
			s.logger.WithField("verdict_id", id).Warn("dropping malformed verdict id")
			continue
		}
		if err := s.Process(ctx, verdictID); err != nil {
			s.logger.WithError(err).WithField("verdict_id", id).Error("failed to aggregate verdict")
		}
	}
}

func (s *service) Rehydrate(ctx context.Context) error {
	since := s.now().Add(-s.cfg.Window)
	if err := s.loadRejections(ctx, since); err != nil {
		return err
	}
	verdicts, err := s.verdicts.ListSince(ctx, since)
	if err != nil {
		return err
	}
	for i := range verdicts {
		if err := s.aggregate(ctx, &verdicts[i]); err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
			return err
		}
	}
	s.logger.WithField("verdicts", len(verdicts)).Info("feedback window rehydrated")
	return nil
}

func (s *service) loadRejections(ctx context.Context, since time.Time) error {
	rejected, err := s.proposals.List(ctx, verdict.ProposalRejected)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range rejected {
		if p.ReviewedAt == nil || p.ReviewedAt.Before(since) {
			continue
		}
		if at, ok := s.rejected[p.PatternKey]; !ok || p.ReviewedAt.After(at) {
			s.rejected[p.PatternKey] = *p.ReviewedAt
		}
	}
	return nil
}

func (s *service) Process(ctx context.Context, verdictID uuid.UUID) error {
	v, err := s.verdicts.Get(ctx, verdictID)
	if err != nil {
		return err
	}
	return s.aggregate(ctx, v)
}

func (s *service) aggregate(ctx context.Context, v *verdict.Verdict) error {
	now := s.now()
	cutoff := now.Add(-s.cfg.Window)
	if v.CreatedAt.Before(cutoff) {
		return nil
	}

	s.mu.Lock()
	_, seen := s.processed[v.ID]
	s.mu.Unlock()
	if seen {
		return nil
	}

	d, err := s.decisions.Get(ctx, v.DecisionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, seen := s.processed[v.ID]; seen {
		s.mu.Unlock()
		return nil
	}
	s.processed[v.ID] = v.CreatedAt
	tallies := make([]Tally, 0, len(d.MatchedPatternIDs))
	for _, id := range d.MatchedPatternIDs {
		w, ok := s.windows[id]
		if !ok {
			w = &window{}
			s.windows[id] = w
		}
		w.add(sample{verdictID: v.ID, at: v.CreatedAt, falsePositive: v.Verdict == verdict.FalsePositive})
		w.prune(cutoff)
		tallies = append(tallies, w.tally(id))
	}
	s.pruneLocked(cutoff)
	s.mu.Unlock()

	for _, t := range tallies {
		if err := s.evaluate(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) pruneLocked(cutoff time.Time) {
	for id, at := range s.processed {
		if at.Before(cutoff) {
			delete(s.processed, id)
		}
	}
	for id, w := range s.windows {
		w.prune(cutoff)
		if len(w.samples) == 0 {
			delete(s.windows, id)
		}
	}
	for key, at := range s.rejected {
		if at.Before(cutoff) {
			delete(s.rejected, key)
		}
	}
}

// heldBack reports whether a reviewer rejected a reduction for the pattern
// and fewer than MinSamples verdicts arrived since.
func (s *service) heldBack(entry pattern.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	since, ok := s.rejected[entry.Key]
	if !ok {
		return false
	}
	fresh := 0
	if w, ok := s.windows[entry.ID]; ok {
		fresh = w.countSince(since)
	}
	if fresh < s.cfg.Rules.MinSamples {
		return true
	}
	delete(s.rejected, entry.Key)
	return false
}

func (s *service) evaluate(ctx context.Context, t Tally) error {
	entry, ok := s.dictionary.Current().Get(t.PatternID)
	if !ok {
		return nil
	}
	proposed, ok := s.cfg.Rules.Propose(entry, t)
	if !ok || s.heldBack(entry) {
		return nil
	}
	pending, err := s.proposals.FindPending(ctx, entry.ID)
	if err != nil {
		return err
	}
	if pending != nil {
		return nil
	}

	p := &verdict.Proposal{
		ID:                uuid.New(),
		PatternID:         entry.ID,
		PatternKey:        entry.Key,
		Category:          entry.Category,
		CurrentWeight:     entry.Weight,
		ProposedWeight:    proposed,
		FalsePositiveRate: t.FalsePositiveRate(),
		SampleSize:        t.Samples,
		Status:            verdict.ProposalPending,
		CreatedAt:         s.now(),
	}
	if err := s.proposals.Save(ctx, p); err != nil {
		if errors.Is(err, domainErrors.ErrPolicyConflict) {
			return nil
		}
		return err
	}

	prometheus.ProposalsTotal.WithLabelValues(string(verdict.ProposalPending)).Inc()
	s.logger.WithFields(logrus.Fields{
		"proposal_id":     p.ID,
		"pattern_key":     p.PatternKey,
		"current_weight":  p.CurrentWeight,
		"proposed_weight": p.ProposedWeight,
		"fp_rate":         p.FalsePositiveRate,
		"samples":         p.SampleSize,
	}).Info("weight proposal created")
	s.record(ctx, s.proposalEvent(p, auditlogs.EventTypeProposalCreated, ""))

	if s.cfg.AutoApply {
		if _, err := s.Approve(ctx, p.ID, autoReviewer); err != nil {
			s.logger.WithError(err).WithField("proposal_id", p.ID).Error("failed to auto-apply weight proposal")
		}
	}
	return nil
}

func (s *service) Tally(patternID uuid.UUID) Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[patternID]
	if !ok {
		return Tally{PatternID: patternID}
	}
	w.prune(s.now().Add(-s.cfg.Window))
	return w.tally(patternID)
}

func (s *service) Proposals(ctx context.Context, status verdict.ProposalStatus) ([]verdict.Proposal, error) {
	switch status {
	case "", verdict.ProposalPending, verdict.ProposalApproved, verdict.ProposalRejected:
	default:
		return nil, domainErrors.NewValidationError("status", "unknown proposal status")
	}
	return s.proposals.List(ctx, status)
}

// Approve writes the proposed weight as a new dictionary version. The
// proposal must still target the active version of its pattern.
func (s *service) Approve(ctx context.Context, id uuid.UUID, reviewer string) (*verdict.Proposal, error) {
	p, err := s.pending(ctx, id, reviewer)
	if err != nil {
		return nil, err
	}
	base, err := s.activeVersion(ctx, p)
	if err != nil {
		return nil, err
	}

	next := base
	next.ID = uuid.Nil
	next.Weight = s.cfg.Rules.Clamp(base.Category, p.ProposedWeight)
	next.CreatedBy = "feedback:" + reviewer
	next.Description = base.Description
	applied, err := s.dictionary.AddVersion(ctx, next)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p.Status = verdict.ProposalApproved
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &now
	p.AppliedPatternID = &applied.ID
	if err := s.proposals.UpdateStatus(ctx, p); err != nil {
		return nil, err
	}
	s.mu.Lock()
	delete(s.rejected, p.PatternKey)
	s.mu.Unlock()

	prometheus.ProposalsTotal.WithLabelValues(string(verdict.ProposalApproved)).Inc()
	s.logger.WithFields(logrus.Fields{
		"proposal_id": p.ID,
		"pattern_key": p.PatternKey,
		"version":     applied.Version,
		"weight":      applied.Weight,
		"reviewer":    reviewer,
	}).Info("weight proposal applied")
	s.record(ctx, s.proposalEvent(p, auditlogs.EventTypeProposalApproved, reviewer))
	return p, nil
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, reviewer string) (*verdict.Proposal, error) {
	p, err := s.pending(ctx, id, reviewer)
	if err != nil {
		return nil, err
	}
	now := s.now()
	p.Status = verdict.ProposalRejected
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &now
	if err := s.proposals.UpdateStatus(ctx, p); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.rejected[p.PatternKey] = now
	s.mu.Unlock()
	prometheus.ProposalsTotal.WithLabelValues(string(verdict.ProposalRejected)).Inc()
	s.record(ctx, s.proposalEvent(p, auditlogs.EventTypeProposalRejected, reviewer))
	return p, nil
}

func (s *service) pending(ctx context.Context, id uuid.UUID, reviewer string) (*verdict.Proposal, error) {
	if reviewer == "" {
		return nil, domainErrors.NewValidationError("reviewer", "is required")
	}
	p, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != verdict.ProposalPending {
		return nil, domainErrors.NewPolicyConflictError("proposal", string(p.Status), "review")
	}
	return p, nil
}

func (s *service) activeVersion(ctx context.Context, p *verdict.Proposal) (pattern.Entry, error) {
	versions, err := s.dictionary.Versions(ctx, p.PatternKey)
	if err != nil {
		return pattern.Entry{}, err
	}
	for _, v := range versions {
		if v.ID == p.PatternID {
			if !v.Active {
				return pattern.Entry{}, domainErrors.NewPolicyConflictError("proposal", "superseded", "approve")
			}
			return v, nil
		}
	}
	return pattern.Entry{}, domainErrors.NewNotFoundError("pattern entry", p.PatternID)
}

func (s *service) proposalEvent(p *verdict.Proposal, eventType, reviewer string) auditlogs.Event {
	return auditlogs.Event{
		Component: audit.ComponentFeedback,
		Type:      eventType,
		Category:  string(p.Category),
		SubjectID: p.ID.String(),
		Payload: map[string]interface{}{
			"pattern_id":          p.PatternID.String(),
			"pattern_key":         p.PatternKey,
			"current_weight":      p.CurrentWeight,
			"proposed_weight":     p.ProposedWeight,
			"false_positive_rate": p.FalsePositiveRate,
			"sample_size":         p.SampleSize,
			"reviewer":            reviewer,
		},
	}
}

func (s *service) record(ctx context.Context, ev auditlogs.Event) {
	if s.audit == nil {
		return
	}
	if ev.Component == "" {
		ev.Component = audit.ComponentFeedback
	}
	_, _ = s.audit.Record(ctx, ev)
}
