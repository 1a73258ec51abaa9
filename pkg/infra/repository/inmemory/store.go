// Package inmemory is the store.driver "memory" backend. It keeps every
// entity in process and is meant for local runs and tests.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
	"github.com/NeuralTrust/CareGuard/pkg/domain/violation"
)

type Store struct {
	mu         sync.RWMutex
	patterns   map[uuid.UUID]pattern.Entry
	decisions  map[uuid.UUID]decision.Decision
	alerts     map[uuid.UUID]alert.Alert
	violations []violation.Violation
	verdicts   map[uuid.UUID]verdict.Verdict
	proposals  map[uuid.UUID]verdict.Proposal
	audit      map[uuid.UUID]audit.Record
}

func NewStore() *Store {
	return &Store{
		patterns:  make(map[uuid.UUID]pattern.Entry),
		decisions: make(map[uuid.UUID]decision.Decision),
		alerts:    make(map[uuid.UUID]alert.Alert),
		verdicts:  make(map[uuid.UUID]verdict.Verdict),
		proposals: make(map[uuid.UUID]verdict.Proposal),
		audit:     make(map[uuid.UUID]audit.Record),
	}
}

// Seed stores entries as they are, without versioning.
func (s *Store) Seed(entries ...pattern.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.patterns[e.ID] = e
	}
}

func (s *Store) Patterns() pattern.Repository          { return patternRepo{s} }
func (s *Store) Decisions() decision.Repository        { return decisionRepo{s} }
func (s *Store) Alerts() alert.Repository              { return alertRepo{s} }
func (s *Store) Violations() violation.Repository      { return violationRepo{s} }
func (s *Store) Verdicts() verdict.Repository          { return verdictRepo{s} }
func (s *Store) Proposals() verdict.ProposalRepository { return proposalRepo{s} }
func (s *Store) Audit() audit.Repository               { return auditRepo{s} }

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func window[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 100
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type patternRepo struct{ s *Store }

func (r patternRepo) ListActive(_ context.Context) ([]pattern.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []pattern.Entry
	for _, e := range r.s.patterns {
		if e.Active {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r patternRepo) ListVersions(_ context.Context, key string) ([]pattern.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []pattern.Entry
	for _, e := range r.s.patterns {
		if e.Key == key {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (r patternRepo) Get(_ context.Context, id uuid.UUID) (*pattern.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.patterns[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("pattern entry", id)
	}
	return &e, nil
}

func (r patternRepo) AddVersion(_ context.Context, entry pattern.Entry) (*pattern.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()

	var prior *pattern.Entry
	latest := 0
	for id, e := range r.s.patterns {
		if e.Key != entry.Key {
			continue
		}
		if e.Version > latest {
			latest = e.Version
		}
		if e.Active {
			p := r.s.patterns[id]
			prior = &p
		}
	}

	var created pattern.Entry
	if prior == nil {
		created = entry
		created.ID = uuid.New()
		created.Version = latest + 1
		created.Active = true
		created.ActivatedAt = now
		created.CreatedAt = now
	} else {
		created = pattern.NextVersion(prior, entry, now)
	}
	if err := created.Validate(); err != nil {
		return nil, err
	}
	if prior != nil {
		prior.Active = false
		prior.DeactivatedAt = &now
		r.s.patterns[prior.ID] = *prior
	}
	r.s.patterns[created.ID] = created
	return &created, nil
}

type decisionRepo struct{ s *Store }

func (r decisionRepo) Save(_ context.Context, d *decision.Decision) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	if err := d.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.decisions[d.ID]; exists {
		return domainErrors.NewPolicyConflictError("decision", "recorded", "overwrite")
	}
	cp := *d
	cp.MatchedPatternIDs = d.MatchedPatternIDs.Clone()
	r.s.decisions[d.ID] = cp
	return nil
}

func (r decisionRepo) Get(_ context.Context, id uuid.UUID) (*decision.Decision, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.decisions[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("moderation decision", id)
	}
	return &d, nil
}

func (r decisionRepo) List(_ context.Context, f decision.Filter) ([]decision.Decision, error) {
	r.s.mu.RLock()
	var out []decision.Decision
	for _, d := range r.s.decisions {
		if f.SessionID != "" && d.SessionID != f.SessionID {
			continue
		}
		if f.Category != "" && d.RiskCategory != f.Category {
			continue
		}
		if f.Action != "" && d.Action != f.Action {
			continue
		}
		if f.Flagged != nil && d.FlaggedForReview != *f.Flagged {
			continue
		}
		if !inRange(d.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, d)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, f.Limit, f.Offset), nil
}

type alertRepo struct{ s *Store }

func (r alertRepo) Create(_ context.Context, a *alert.Alert) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.IsOpen() {
		for _, existing := range r.s.alerts {
			if existing.SessionID == a.SessionID && existing.IsOpen() {
				return domainErrors.NewPolicyConflictError("alert", string(existing.Status), "open second alert")
			}
		}
	}
	cp := *a
	cp.RelatedDecisionIDs = a.RelatedDecisionIDs.Clone()
	r.s.alerts[a.ID] = cp
	return nil
}

func (r alertRepo) Update(_ context.Context, a *alert.Alert, expectedRevision int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.alerts[a.ID]
	if !ok {
		return domainErrors.NewNotFoundError("crisis alert", a.ID)
	}
	if stored.Revision != expectedRevision {
		return alert.ErrStaleRevision
	}
	cp := *a
	cp.RelatedDecisionIDs = a.RelatedDecisionIDs.Clone()
	cp.Revision = expectedRevision + 1
	r.s.alerts[a.ID] = cp
	a.Revision = cp.Revision
	return nil
}

func (r alertRepo) Get(_ context.Context, id uuid.UUID) (*alert.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("crisis alert", id)
	}
	a.RelatedDecisionIDs = a.RelatedDecisionIDs.Clone()
	return &a, nil
}

func (r alertRepo) FindLatestBySession(_ context.Context, sessionID string) (*alert.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *alert.Alert
	for _, a := range r.s.alerts {
		if a.SessionID != sessionID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			cp := a
			latest = &cp
		}
	}
	if latest != nil {
		latest.RelatedDecisionIDs = latest.RelatedDecisionIDs.Clone()
	}
	return latest, nil
}

func (r alertRepo) List(_ context.Context, f alert.Filter) ([]alert.Alert, error) {
	r.s.mu.RLock()
	var out []alert.Alert
	for _, a := range r.s.alerts {
		if f.SessionID != "" && a.SessionID != f.SessionID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Category != "" && a.RiskCategory != f.Category {
			continue
		}
		if !inRange(a.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, a)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, f.Limit, f.Offset), nil
}

func (r alertRepo) ListSLABreached(_ context.Context, now time.Time) ([]alert.Alert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []alert.Alert
	for _, a := range r.s.alerts {
		if a.SLABreached(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SLADeadline.Before(out[j].SLADeadline) })
	return out, nil
}

type violationRepo struct{ s *Store }

func (r violationRepo) SaveAll(_ context.Context, violations []violation.Violation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range violations {
		if violations[i].ID == uuid.Nil {
			violations[i].ID = uuid.New()
		}
		if violations[i].CreatedAt.IsZero() {
			violations[i].CreatedAt = time.Now()
		}
		r.s.violations = append(r.s.violations, violations[i])
	}
	return nil
}

func (r violationRepo) List(_ context.Context, f violation.Filter) ([]violation.Violation, error) {
	r.s.mu.RLock()
	var out []violation.Violation
	for _, v := range r.s.violations {
		if f.SessionID != "" && v.SessionID != f.SessionID {
			continue
		}
		if f.DecisionID != uuid.Nil && v.DecisionID != f.DecisionID {
			continue
		}
		if f.Type != "" && v.ViolationType != f.Type {
			continue
		}
		if !inRange(v.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, v)
	}
	r.s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, f.Limit, f.Offset), nil
}

type verdictRepo struct{ s *Store }

func (r verdictRepo) Save(_ context.Context, v *verdict.Verdict) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	if err := v.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.verdicts[v.ID] = *v
	return nil
}

func (r verdictRepo) Get(_ context.Context, id uuid.UUID) (*verdict.Verdict, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.verdicts[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("reviewer verdict", id)
	}
	return &v, nil
}

func (r verdictRepo) ListSince(_ context.Context, since time.Time) ([]verdict.Verdict, error) {
	r.s.mu.RLock()
	var out []verdict.Verdict
	for _, v := range r.s.verdicts {
		if !v.CreatedAt.Before(since) {
			out = append(out, v)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type proposalRepo struct{ s *Store }

func (r proposalRepo) Save(_ context.Context, p *verdict.Proposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = verdict.ProposalPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Status == verdict.ProposalPending {
		for _, existing := range r.s.proposals {
			if existing.PatternID == p.PatternID && existing.Status == verdict.ProposalPending {
				return domainErrors.NewPolicyConflictError("proposal", "pending", "propose twice")
			}
		}
	}
	r.s.proposals[p.ID] = *p
	return nil
}

func (r proposalRepo) Get(_ context.Context, id uuid.UUID) (*verdict.Proposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.proposals[id]
	if !ok {
		return nil, domainErrors.NewNotFoundError("weight proposal", id)
	}
	return &p, nil
}

func (r proposalRepo) List(_ context.Context, status verdict.ProposalStatus) ([]verdict.Proposal, error) {
	r.s.mu.RLock()
	var out []verdict.Proposal
	for _, p := range r.s.proposals {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r proposalRepo) FindPending(_ context.Context, patternID uuid.UUID) (*verdict.Proposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.proposals {
		if p.PatternID == patternID && p.Status == verdict.ProposalPending {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r proposalRepo) UpdateStatus(_ context.Context, p *verdict.Proposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.proposals[p.ID]
	if !ok || stored.Status != verdict.ProposalPending {
		return domainErrors.NewPolicyConflictError("proposal", "reviewed", string(p.Status))
	}
	stored.Status = p.Status
	stored.ReviewedBy = p.ReviewedBy
	stored.ReviewedAt = p.ReviewedAt
	stored.AppliedPatternID = p.AppliedPatternID
	r.s.proposals[p.ID] = stored
	return nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) Append(_ context.Context, records []audit.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range records {
		if _, exists := r.s.audit[rec.ID]; exists {
			continue
		}
		r.s.audit[rec.ID] = rec
	}
	return nil
}

func (r auditRepo) Query(_ context.Context, f audit.Filter) ([]audit.Record, error) {
	r.s.mu.RLock()
	var out []audit.Record
	for _, rec := range r.s.audit {
		if f.SessionID != "" && rec.SessionID != f.SessionID {
			continue
		}
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if f.Component != "" && rec.Component != f.Component {
			continue
		}
		if f.Priority != "" && rec.Priority != f.Priority {
			continue
		}
		if !inRange(rec.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, rec)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return window(out, f.Limit, f.Offset), nil
}
