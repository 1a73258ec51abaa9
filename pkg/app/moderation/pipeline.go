package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/boundary"
	"github.com/NeuralTrust/CareGuard/pkg/app/classifier"
	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/app/prefilter"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/domain/violation"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/CareGuard/pkg/infra/metrics"
	"github.com/NeuralTrust/CareGuard/pkg/infra/resilience"
)

const (
	DefaultCrisisReply = "It sounds like you are going through something really painful. " +
		"You don't have to face this alone. A member of our care team is being notified now. " +
		"If you are in immediate danger, please call your local emergency number or a crisis line such as 988."
	DefaultBlockedReply = "I'm not able to continue with that. Let's get back to how you're doing today."

	DefaultMaxTextBytes = 16 * 1024
	maxSessionIDLength  = 128

	reasonFailClosed = "fail_closed"

	decisionJobKind   = "decision_persist"
	violationsJobKind = "violations_persist"
)

type Config struct {
	MaxTextBytes int
	CrisisReply  string
	BlockedReply string
}

type InspectRequest struct {
	SessionID string
	Role      decision.Role
	Text      string
}

type InspectResult struct {
	Allowed      bool             `json:"allowed"`
	FinalText    string           `json:"final_text"`
	RiskCategory pattern.Category `json:"risk_category,omitempty"`
	AlertID      *uuid.UUID       `json:"alert_id,omitempty"`
	DecisionID   uuid.UUID        `json:"decision_id"`
	Action       decision.Action  `json:"action"`
	RiskScore    int              `json:"risk_score"`
	Flagged      bool             `json:"flagged_for_review"`
}

type Pipeline interface {
	// Inspect runs one message through every check and records the
	// decision. Only a ValidationError is returned; storage trouble is
	// absorbed and never changes the content action.
	Inspect(ctx context.Context, req InspectRequest) (*InspectResult, error)
	// Correct records a new decision superseding id with action.
	Correct(ctx context.Context, id uuid.UUID, action decision.Action, reason, reviewer string) (*decision.Decision, error)
}

type Deps struct {
	Logger     *logrus.Logger
	Dictionary dictionary.Service
	Classifier *classifier.Classifier
	History    *classifier.SessionHistory
	Enforcer   *boundary.Enforcer
	Crisis     crisis.Workflow
	Locks      *crisis.SessionLocks
	Decisions  decision.Repository
	Violations violation.Repository
	Audit      auditlogs.Service
	Queue      resilience.RetryQueue
	Metrics    metrics.Worker
	Config     Config
	Now        func() time.Time
}

type pipeline struct {
	logger     *logrus.Logger
	dictionary dictionary.Service
	classifier *classifier.Classifier
	history    *classifier.SessionHistory
	enforcer   *boundary.Enforcer
	crisis     crisis.Workflow
	locks      *crisis.SessionLocks
	decisions  decision.Repository
	violations violation.Repository
	audit      auditlogs.Service
	queue      resilience.RetryQueue
	metrics    metrics.Worker
	cfg        Config
	now        func() time.Time

	// scan is swapped in tests to exercise the fail closed path.
	scan func(snap *dictionary.Snapshot, text string) []prefilter.Match
}

func NewPipeline(deps Deps) Pipeline {
	cfg := deps.Config
	if cfg.MaxTextBytes <= 0 {
		cfg.MaxTextBytes = DefaultMaxTextBytes
	}
	if cfg.CrisisReply == "" {
		cfg.CrisisReply = DefaultCrisisReply
	}
	if cfg.BlockedReply == "" {
		cfg.BlockedReply = DefaultBlockedReply
	}
	locks := deps.Locks
	if locks == nil {
		locks = crisis.NewSessionLocks()
	}
	enforcer := deps.Enforcer
	if enforcer == nil {
		enforcer = boundary.NewEnforcer(boundary.DefaultFallbacks())
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &pipeline{
		logger:     deps.Logger,
		dictionary: deps.Dictionary,
		classifier: deps.Classifier,
		history:    deps.History,
		enforcer:   enforcer,
		crisis:     deps.Crisis,
		locks:      locks,
		decisions:  deps.Decisions,
		violations: deps.Violations,
		audit:      deps.Audit,
		queue:      deps.Queue,
		metrics:    deps.Metrics,
		cfg:        cfg,
		now:        now,
		scan:       prefilter.Scan,
	}
}

func (p *pipeline) validate(req InspectRequest) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return domainErrors.NewValidationError("session_id", "is required")
	}
	if len(req.SessionID) > maxSessionIDLength {
		return domainErrors.NewValidationError("session_id", fmt.Sprintf("must be at most %d bytes", maxSessionIDLength))
	}
	if !req.Role.Valid() {
		return domainErrors.NewValidationError("role", "must be user or assistant")
	}
	if strings.TrimSpace(req.Text) == "" {
		return domainErrors.NewValidationError("text", "is required")
	}
	if len(req.Text) > p.cfg.MaxTextBytes {
		return domainErrors.NewValidationError("text", fmt.Sprintf("must be at most %d bytes", p.cfg.MaxTextBytes))
	}
	if !utf8.ValidString(req.Text) {
		return domainErrors.NewValidationError("text", "must be valid UTF-8")
	}
	return nil
}

func (p *pipeline) Inspect(ctx context.Context, req InspectRequest) (*InspectResult, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}
	// a torn down session still gets its decision recorded
	ctx = context.WithoutCancel(ctx)
	start := p.now()

	unlock := p.locks.Lock(req.SessionID)
	ev, err := p.evaluate(req, start)
	if err != nil {
		ev = p.failClosed(req, err)
	} else if p.history != nil && req.Role == decision.RoleUser {
		// only what the user says feeds the session trend
		p.history.Record(req.SessionID, classifier.Observation{Score: ev.assessment.Score, At: start})
	}
	unlock()

	d := &decision.Decision{
		ID:                   uuid.New(),
		SessionID:            req.SessionID,
		MessageRole:          req.Role,
		RawTextHash:          decision.HashText(req.Text),
		MatchedPatternIDs:    ev.patternIDs(),
		RiskScore:            ev.assessment.Score,
		RiskCategory:         ev.assessment.Category,
		Action:               ev.action,
		FlaggedForReview:     ev.flagged,
		DictionaryGeneration: ev.generation,
		Reason:               ev.reason,
		CreatedAt:            start,
	}
	p.persistDecision(ctx, d)

	result := &InspectResult{
		Allowed:      !ev.action.Blocks(),
		FinalText:    ev.finalText,
		RiskCategory: d.RiskCategory,
		DecisionID:   d.ID,
		Action:       d.Action,
		RiskScore:    d.RiskScore,
		Flagged:      d.FlaggedForReview,
	}

	if len(ev.violations) > 0 {
		p.persistViolations(ctx, d, ev.violations)
	}
	if ev.action == decision.ActionEscalate && p.crisis != nil {
		a, err := p.crisis.Trigger(ctx, crisis.TriggerRequest{
			SessionID:  d.SessionID,
			DecisionID: d.ID,
			Category:   d.RiskCategory,
			Score:      d.RiskScore,
		})
		if err != nil {
			p.logger.WithError(err).WithField("decision_id", d.ID).Error("crisis alert not yet recorded")
		} else if a != nil {
			result.AlertID = &a.ID
		}
	}

	p.recordDecision(ctx, d, ev)
	if p.metrics != nil {
		types := make([]string, 0, len(ev.violations))
		for _, v := range ev.violations {
			types = append(types, string(v.ViolationType))
		}
		p.metrics.Process(metrics.DecisionEvent{
			Role:       string(d.MessageRole),
			Action:     string(d.Action),
			Category:   string(d.RiskCategory),
			Violations: types,
			Elapsed:    p.now().Sub(start),
			FailClosed: ev.failed,
		})
	}
	return result, nil
}

type evaluation struct {
	generation uint64
	matches    []prefilter.Match
	entries    []pattern.Entry
	assessment classifier.Assessment
	action     decision.Action
	flagged    bool
	finalText  string
	violations []violation.Violation
	reason     string
	failed     bool
}

func (e evaluation) patternIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.entries))
	for _, entry := range e.entries {
		ids = append(ids, entry.ID)
	}
	return ids
}

func (e evaluation) patternKeys() []string {
	keys := make([]string, 0, len(e.entries))
	for _, entry := range e.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// evaluate is the CPU only part of an inspection and runs under the session
// lock. A panic anywhere in it is returned as an error.
func (p *pipeline) evaluate(req InspectRequest, now time.Time) (ev evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inspection panicked: %v", r)
		}
	}()

	snap := p.dictionary.Current()
	ev.generation = snap.Generation
	ev.matches = p.scan(snap, req.Text)
	ev.entries = prefilter.Distinct(ev.matches)

	session := classifier.SessionContext{SessionID: req.SessionID}
	if p.history != nil {
		session = p.history.Context(req.SessionID)
	}
	ev.assessment = p.classifier.Classify(session, ev.entries, now)
	ev.flagged = ev.assessment.Level != classifier.LevelAllowed
	ev.action = decision.ActionAllow
	ev.finalText = req.Text

	if req.Role == decision.RoleAssistant {
		enforced := p.enforcer.Enforce(req.Text, ev.matches)
		if len(enforced.Violations) > 0 {
			ev.violations = enforced.Violations
			ev.action = decision.ActionRedact
			ev.finalText = enforced.Text
		}
	}

	if ev.assessment.Level == classifier.LevelCrisis {
		if req.Role == decision.RoleUser {
			ev.action = decision.ActionEscalate
			ev.finalText = p.cfg.CrisisReply
		} else {
			ev.action = decision.ActionBlock
			ev.finalText = p.cfg.BlockedReply
		}
	}
	return ev, nil
}

func (p *pipeline) failClosed(req InspectRequest, cause error) evaluation {
	p.logger.WithError(cause).WithFields(logrus.Fields{
		"session_id": req.SessionID,
		"role":       req.Role,
	}).Error("inspection failed, blocking message")
	var generation uint64
	if snap := p.dictionary.Current(); snap != nil {
		generation = snap.Generation
	}
	return evaluation{
		generation: generation,
		assessment: classifier.Assessment{Score: 100, Multiplier: 1, Level: classifier.LevelCrisis},
		action:     decision.ActionBlock,
		flagged:    true,
		finalText:  p.cfg.BlockedReply,
		reason:     reasonFailClosed,
		failed:     true,
	}
}

func (p *pipeline) persistDecision(ctx context.Context, d *decision.Decision) {
	err := p.decisions.Save(ctx, d)
	if err == nil || resilience.IsOutcome(err) {
		if err != nil {
			p.logger.WithError(err).WithField("decision_id", d.ID).Error("decision rejected by storage")
		}
		return
	}

	p.logger.WithError(err).WithField("decision_id", d.ID).Warn("decision persistence failed, queued for retry")
	p.record(ctx, auditlogs.Event{
		SessionID: d.SessionID,
		Component: audit.ComponentPipeline,
		Type:      auditlogs.EventTypeDecisionDeferred,
		Category:  string(d.RiskCategory),
		Priority:  audit.PriorityHigh,
		SubjectID: d.ID.String(),
		Payload:   map[string]interface{}{"error": err.Error()},
	})
	p.deferWrite(decisionJobKind, d, func(ctx context.Context) error {
		err := p.decisions.Save(ctx, d)
		if err != nil && resilience.IsOutcome(err) {
			// already stored by an earlier attempt that timed out late
			return nil
		}
		return err
	})
}

func (p *pipeline) persistViolations(ctx context.Context, d *decision.Decision, violations []violation.Violation) {
	for i := range violations {
		violations[i].ID = uuid.New()
		violations[i].SessionID = d.SessionID
		violations[i].DecisionID = d.ID
		violations[i].CreatedAt = d.CreatedAt
	}
	p.record(ctx, auditlogs.Event{
		SessionID: d.SessionID,
		Component: audit.ComponentBoundary,
		Type:      auditlogs.EventTypeBoundaryRedacted,
		Category:  string(pattern.CategoryScopeViolation),
		Priority:  audit.PriorityHigh,
		SubjectID: d.ID.String(),
		Payload:   map[string]interface{}{"violations": len(violations), "action": string(d.Action)},
	})
	if err := p.violations.SaveAll(ctx, violations); err != nil {
		p.logger.WithError(err).WithField("decision_id", d.ID).Warn("boundary violations not stored, queued for retry")
		p.deferWrite(violationsJobKind, d, func(ctx context.Context) error {
			return p.violations.SaveAll(ctx, violations)
		})
	}
}

func (p *pipeline) deferWrite(kind string, d *decision.Decision, run func(ctx context.Context) error) {
	if p.queue == nil {
		return
	}
	_ = p.queue.Enqueue(resilience.Job{
		Kind: kind,
		Key:  d.ID.String(),
		Run:  run,
		// the audit wal keeps the decision when the store never took it
		Abandoned: func(err error) {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"kind":        kind,
				"decision_id": d.ID,
			}).Error("deferred write abandoned")
			p.record(context.Background(), auditlogs.Event{
				SessionID: d.SessionID,
				Component: audit.ComponentPipeline,
				Type:      auditlogs.EventTypeDecisionAbandoned,
				Category:  string(d.RiskCategory),
				Priority:  audit.PriorityCritical,
				SubjectID: d.ID.String(),
				Payload: map[string]interface{}{
					"kind":     kind,
					"error":    err.Error(),
					"decision": d,
				},
			})
		},
	})
}

func (p *pipeline) recordDecision(ctx context.Context, d *decision.Decision, ev evaluation) {
	priority := audit.PriorityNormal
	eventType := auditlogs.EventTypeDecisionRecorded
	switch {
	case ev.failed:
		priority = audit.PriorityCritical
		eventType = auditlogs.EventTypeFailClosed
	case d.Action == decision.ActionEscalate:
		priority = audit.PriorityCritical
	case d.Action != decision.ActionAllow || d.FlaggedForReview:
		priority = audit.PriorityHigh
	}

	entry := p.logger.WithFields(logrus.Fields{
		"decision_id": d.ID,
		"session_id":  d.SessionID,
		"role":        d.MessageRole,
		"action":      d.Action,
		"risk_score":  d.RiskScore,
		"category":    d.RiskCategory,
		"generation":  d.DictionaryGeneration,
	})
	switch d.Action {
	case decision.ActionEscalate, decision.ActionBlock:
		entry.Warn("message blocked")
	case decision.ActionRedact:
		entry.Info("reply redacted")
	default:
		entry.Debug("message inspected")
	}

	p.record(ctx, auditlogs.Event{
		SessionID: d.SessionID,
		Component: audit.ComponentPipeline,
		Type:      eventType,
		Category:  string(d.RiskCategory),
		Priority:  priority,
		SubjectID: d.ID.String(),
		Payload: map[string]interface{}{
			"role":               string(d.MessageRole),
			"action":             string(d.Action),
			"risk_score":         d.RiskScore,
			"base":               ev.assessment.Base,
			"multiplier":         ev.assessment.Multiplier,
			"flagged_for_review": d.FlaggedForReview,
			"matched_patterns":   ev.patternKeys(),
			"generation":         d.DictionaryGeneration,
			"raw_text_hash":      d.RawTextHash,
		},
	})
}

func (p *pipeline) Correct(ctx context.Context, id uuid.UUID, action decision.Action, reason, reviewer string) (*decision.Decision, error) {
	if !action.Valid() {
		return nil, domainErrors.NewValidationError("action", "unknown action")
	}
	if reviewer == "" {
		return nil, domainErrors.NewValidationError("reviewer", "is required")
	}
	prior, err := p.decisions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	corrected := prior.Correct(action, reason, p.now())
	if err := p.decisions.Save(ctx, &corrected); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"decision_id": corrected.ID,
		"supersedes":  prior.ID,
		"action":      action,
		"reviewer":    reviewer,
	}).Info("decision corrected")
	p.record(ctx, auditlogs.Event{
		SessionID: corrected.SessionID,
		Component: audit.ComponentPipeline,
		Type:      auditlogs.EventTypeDecisionCorrected,
		Category:  string(corrected.RiskCategory),
		Priority:  audit.PriorityHigh,
		SubjectID: corrected.ID.String(),
		Payload: map[string]interface{}{
			"supersedes_id": prior.ID.String(),
			"from_action":   string(prior.Action),
			"to_action":     string(action),
			"reason":        reason,
			"reviewer":      reviewer,
		},
	})
	return &corrected, nil
}

func (p *pipeline) record(ctx context.Context, ev auditlogs.Event) {
	if p.audit == nil {
		return
	}
	if _, err := p.audit.Record(ctx, ev); err != nil {
		p.logger.WithError(err).WithField("event_type", ev.Type).Error("audit record failed")
	}
}
