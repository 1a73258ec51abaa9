package crisis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/channel"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/CareGuard/pkg/infra/resilience"
)

const (
	outcomeCreated   = "created"
	outcomeAbsorbed  = "absorbed"
	outcomeNoop      = "noop"
	outcomeDeferred  = "deferred"
	outcomeAbandoned = "abandoned"
)

type TriggerRequest struct {
	SessionID  string
	DecisionID uuid.UUID
	Category   pattern.Category
	Score      int
}

type Config struct {
	SLA         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
}

//go:generate mockery --name=Workflow --dir=. --output=./mocks --filename=workflow_mock.go --case=underscore
type Workflow interface {
	// Trigger opens an alert for the session or folds the decision into the
	// one already open. On a storage failure the trigger is queued for
	// retry and the error is returned.
	Trigger(ctx context.Context, req TriggerRequest) (*alert.Alert, error)
	Claim(ctx context.Context, id uuid.UUID, responder string) (*alert.Alert, error)
	Resolve(ctx context.Context, id uuid.UUID, responder, note string) (*alert.Alert, error)
	Escalate(ctx context.Context, id uuid.UUID, responder, reason string) (*alert.Alert, error)
	Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error)
	List(ctx context.Context, filter alert.Filter) ([]alert.Alert, error)
	// CheckSLA stamps and reports every unclaimed alert past its deadline.
	CheckSLA(ctx context.Context) (int, error)
}

type Deps struct {
	Logger     *logrus.Logger
	Alerts     alert.Repository
	Locks      *SessionLocks
	Notifier   Notifier
	Feed       *Feed
	Publisher  cache.EventPublisher
	Audit      auditlogs.Service
	Queue      resilience.RetryQueue
	Config     Config
	InstanceID string
	Now        func() time.Time
}

type workflow struct {
	logger     *logrus.Logger
	alerts     alert.Repository
	locks      *SessionLocks
	notifier   Notifier
	feed       *Feed
	publisher  cache.EventPublisher
	audit      auditlogs.Service
	queue      resilience.RetryQueue
	cfg        Config
	instanceID string
	now        func() time.Time
}

func NewWorkflow(deps Deps) Workflow {
	cfg := deps.Config
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultAttempts
	}
	locks := deps.Locks
	if locks == nil {
		locks = NewSessionLocks()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &workflow{
		logger:     deps.Logger,
		alerts:     deps.Alerts,
		locks:      locks,
		notifier:   deps.Notifier,
		feed:       deps.Feed,
		publisher:  deps.Publisher,
		audit:      deps.Audit,
		queue:      deps.Queue,
		cfg:        cfg,
		instanceID: deps.InstanceID,
		now:        now,
	}
}

func (w *workflow) Trigger(ctx context.Context, req TriggerRequest) (*alert.Alert, error) {
	if req.SessionID == "" {
		return nil, domainErrors.NewValidationError("session_id", "is required")
	}
	a, _, err := w.lockedTrigger(ctx, req)
	if err == nil {
		return a, nil
	}
	if resilience.IsOutcome(err) || w.queue == nil {
		return nil, err
	}

	prometheus.AlertsTotal.WithLabelValues(outcomeDeferred).Inc()
	w.logger.WithError(err).WithFields(logrus.Fields{
		"session_id":  req.SessionID,
		"decision_id": req.DecisionID,
	}).Error("alert persistence failed, queued for retry")
	w.record(ctx, auditlogs.Event{
		SessionID: req.SessionID,
		Component: audit.ComponentCrisis,
		Type:      auditlogs.EventTypeAlertDeferred,
		Category:  string(req.Category),
		Priority:  audit.PriorityCritical,
		SubjectID: req.DecisionID.String(),
		Payload: map[string]interface{}{
			"risk_score": req.Score,
			"error":      err.Error(),
		},
	})

	_ = w.queue.Enqueue(resilience.Job{
		Kind: persistJobKind,
		Key:  req.DecisionID.String(),
		Lane: resilience.LaneCritical,
		Run: func(ctx context.Context) error {
			_, _, err := w.lockedTrigger(ctx, req)
			return err
		},
		Abandoned: func(err error) { w.triggerAbandoned(req, err) },
	})
	return nil, err
}

// triggerAbandoned leaves a critical audit record for a crisis the store
// never accepted, so it survives in the audit wal.
func (w *workflow) triggerAbandoned(req TriggerRequest, err error) {
	prometheus.AlertsTotal.WithLabelValues(outcomeAbandoned).Inc()
	w.logger.WithError(err).WithFields(logrus.Fields{
		"session_id":  req.SessionID,
		"decision_id": req.DecisionID,
	}).Error("crisis alert could not be persisted")
	w.record(context.Background(), auditlogs.Event{
		SessionID: req.SessionID,
		Component: audit.ComponentCrisis,
		Type:      auditlogs.EventTypeAlertAbandoned,
		Category:  string(req.Category),
		Priority:  audit.PriorityCritical,
		SubjectID: req.DecisionID.String(),
		Payload: map[string]interface{}{
			"risk_score": req.Score,
			"error":      err.Error(),
		},
	})
}

func (w *workflow) lockedTrigger(ctx context.Context, req TriggerRequest) (*alert.Alert, string, error) {
	unlock := w.locks.Lock(req.SessionID)
	a, outcome, err := w.trigger(ctx, req)
	unlock()
	if err != nil {
		return nil, outcome, err
	}

	prometheus.AlertsTotal.WithLabelValues(outcome).Inc()
	switch outcome {
	case outcomeCreated:
		w.logger.WithFields(logrus.Fields{
			"alert_id":   a.ID,
			"session_id": a.SessionID,
			"category":   a.RiskCategory,
			"risk_score": a.RiskScore,
		}).Warn("crisis alert created")
		w.record(ctx, w.alertEvent(a, auditlogs.EventTypeAlertCreated, audit.PriorityHigh, nil))
		w.publish(ctx, a, outcomeCreated)
		w.notify(a, ReasonCreated)
	case outcomeAbsorbed:
		w.record(ctx, w.alertEvent(a, auditlogs.EventTypeAlertAbsorbed, audit.PriorityHigh, map[string]interface{}{
			"decision_id": req.DecisionID.String(),
		}))
		w.publish(ctx, a, outcomeAbsorbed)
	}
	return a, outcome, nil
}

// trigger runs under the session lock. Another instance may still race on
// the same session; those races surface as stale revisions or as a
// conflict on the one-open-alert constraint and are retried.
func (w *workflow) trigger(ctx context.Context, req TriggerRequest) (*alert.Alert, string, error) {
	var lastErr error
	for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
		now := w.now()
		latest, err := w.alerts.FindLatestBySession(ctx, req.SessionID)
		if err != nil {
			return nil, "", err
		}

		if latest != nil && latest.AbsorbsWithin(w.cfg.Cooldown, now) {
			rev := latest.Revision
			if !latest.Absorb(req.DecisionID, req.Category, req.Score, now) {
				return latest, outcomeNoop, nil
			}
			err := w.alerts.Update(ctx, latest, rev)
			if errors.Is(err, alert.ErrStaleRevision) {
				lastErr = err
				continue
			}
			if err != nil {
				return nil, "", err
			}
			return latest, outcomeAbsorbed, nil
		}

		if latest != nil && (latest.TriggeringDecisionID == req.DecisionID || latest.RelatedDecisionIDs.Contains(req.DecisionID)) {
			return latest, outcomeNoop, nil
		}

		a := alert.New(req.SessionID, req.DecisionID, req.Category, req.Score, w.cfg.SLA, now)
		err = w.alerts.Create(ctx, a)
		if errors.Is(err, domainErrors.ErrPolicyConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return a, outcomeCreated, nil
	}
	return nil, "", lastErr
}

func (w *workflow) Claim(ctx context.Context, id uuid.UUID, responder string) (*alert.Alert, error) {
	return w.transition(ctx, id, alert.TransitionClaim, alert.Command{Actor: responder})
}

func (w *workflow) Resolve(ctx context.Context, id uuid.UUID, responder, note string) (*alert.Alert, error) {
	return w.transition(ctx, id, alert.TransitionResolve, alert.Command{Actor: responder, Note: note})
}

func (w *workflow) Escalate(ctx context.Context, id uuid.UUID, responder, reason string) (*alert.Alert, error) {
	return w.transition(ctx, id, alert.TransitionEscalate, alert.Command{Actor: responder, Reason: reason})
}

func (w *workflow) transition(ctx context.Context, id uuid.UUID, via alert.Transition, cmd alert.Command) (*alert.Alert, error) {
	a, err := w.alerts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := w.locks.Lock(a.SessionID)
	defer unlock()

	for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if a, err = w.alerts.Get(ctx, id); err != nil {
				return nil, err
			}
		}
		rev := a.Revision
		from := a.Status
		changed, err := a.Apply(via, cmd, w.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return a, nil
		}
		err = w.alerts.Update(ctx, a, rev)
		if errors.Is(err, alert.ErrStaleRevision) {
			continue
		}
		if err != nil {
			return nil, err
		}
		w.afterTransition(ctx, a, via, from, cmd)
		return a, nil
	}
	return nil, domainErrors.NewPolicyConflictError("alert", string(a.Status), string(via)+" (concurrent update)")
}

func (w *workflow) afterTransition(ctx context.Context, a *alert.Alert, via alert.Transition, from alert.Status, cmd alert.Command) {
	eventType := auditlogs.EventTypeAlertClaimed
	priority := audit.PriorityHigh
	switch via {
	case alert.TransitionResolve:
		eventType = auditlogs.EventTypeAlertResolved
	case alert.TransitionEscalate:
		eventType = auditlogs.EventTypeAlertEscalated
		priority = audit.PriorityCritical
	}
	prometheus.AlertsTotal.WithLabelValues(string(via)).Inc()

	w.logger.WithFields(logrus.Fields{
		"alert_id":   a.ID,
		"session_id": a.SessionID,
		"from":       from,
		"to":         a.Status,
		"responder":  cmd.Actor,
	}).Info("crisis alert transitioned")

	w.record(ctx, w.alertEvent(a, eventType, priority, map[string]interface{}{
		"from":      string(from),
		"responder": cmd.Actor,
		"note":      cmd.Note,
		"reason":    cmd.Reason,
	}))
	w.publish(ctx, a, string(via))
	if via == alert.TransitionEscalate {
		w.notify(a, ReasonEscalated)
	}
}

func (w *workflow) Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	return w.alerts.Get(ctx, id)
}

func (w *workflow) List(ctx context.Context, filter alert.Filter) ([]alert.Alert, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domainErrors.NewValidationError("status", "unknown alert status")
	}
	return w.alerts.List(ctx, filter)
}

func (w *workflow) CheckSLA(ctx context.Context) (int, error) {
	now := w.now()
	overdue, err := w.alerts.ListSLABreached(ctx, now)
	if err != nil {
		return 0, err
	}

	stamped := 0
	for i := range overdue {
		a := &overdue[i]
		if w.stampBreach(ctx, a, now) {
			stamped++
		}
	}
	return stamped, nil
}

func (w *workflow) stampBreach(ctx context.Context, a *alert.Alert, now time.Time) bool {
	unlock := w.locks.Lock(a.SessionID)
	defer unlock()

	if !a.SLABreached(now) {
		return false
	}
	rev := a.Revision
	stamp := now
	a.SLABreachedAt = &stamp
	a.UpdatedAt = now
	if err := w.alerts.Update(ctx, a, rev); err != nil {
		// stale: claimed or escalated meanwhile, the next tick rechecks
		if !errors.Is(err, alert.ErrStaleRevision) {
			w.logger.WithError(err).WithField("alert_id", a.ID).Error("failed to stamp sla breach")
		}
		return false
	}

	prometheus.AlertSLABreaches.Inc()
	w.logger.WithFields(logrus.Fields{
		"alert_id":     a.ID,
		"session_id":   a.SessionID,
		"sla_deadline": a.SLADeadline,
		"overdue":      now.Sub(a.SLADeadline).String(),
	}).Warn("crisis alert breached its sla")
	w.record(ctx, w.alertEvent(a, auditlogs.EventTypeAlertSLABreached, audit.PriorityHigh, map[string]interface{}{
		"sla_deadline": a.SLADeadline,
	}))
	w.publish(ctx, a, ReasonSLABreach)
	w.notify(a, ReasonSLABreach)
	return true
}

func (w *workflow) alertEvent(a *alert.Alert, eventType string, priority audit.Priority, extra map[string]interface{}) auditlogs.Event {
	payload := map[string]interface{}{
		"alert_id":   a.ID.String(),
		"status":     string(a.Status),
		"risk_score": a.RiskScore,
		"revision":   a.Revision,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return auditlogs.Event{
		SessionID: a.SessionID,
		Component: audit.ComponentCrisis,
		Type:      eventType,
		Category:  string(a.RiskCategory),
		Priority:  priority,
		SubjectID: a.ID.String(),
		Payload:   payload,
	}
}

func (w *workflow) publish(ctx context.Context, a *alert.Alert, change string) {
	ev := event.AlertChangedEvent{
		AlertID:   a.ID.String(),
		SessionID: a.SessionID,
		Status:    string(a.Status),
		Change:    change,
		RiskScore: a.RiskScore,
		Category:  string(a.RiskCategory),
		Origin:    w.instanceID,
	}
	if w.feed != nil {
		w.feed.Publish(ev)
	}
	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, channel.AlertsChannel, ev); err != nil {
			w.logger.WithError(err).WithField("alert_id", a.ID).Warn("failed to publish alert change")
		}
	}
}

// notify is fire and forget: delivery runs on the retry queue.
func (w *workflow) notify(a *alert.Alert, reason string) {
	if w.notifier == nil {
		return
	}
	snapshot := *a
	snapshot.RelatedDecisionIDs = a.RelatedDecisionIDs.Clone()
	job := resilience.Job{
		Kind: notifyJobKind,
		Key:  a.ID.String(),
		Lane: resilience.LaneCritical,
		Run: func(ctx context.Context) error {
			return w.notifier.Deliver(ctx, &snapshot, reason)
		},
		Abandoned: func(err error) {
			w.logger.WithError(err).WithField("alert_id", snapshot.ID).Error("alert notification failed")
			w.record(context.Background(), w.alertEvent(&snapshot, auditlogs.EventTypeAlertNotifyFailed, audit.PriorityCritical,
				map[string]interface{}{"reason": reason, "error": err.Error()}))
		},
	}
	if w.queue == nil {
		if err := job.Run(context.Background()); err != nil {
			job.Abandoned(err)
		}
		return
	}
	_ = w.queue.Enqueue(job)
}

func (w *workflow) record(ctx context.Context, ev auditlogs.Event) {
	if w.audit == nil {
		return
	}
	_, _ = w.audit.Record(ctx, ev)
}
