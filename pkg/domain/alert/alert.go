package alert

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

// ErrStaleRevision is returned by Repository.Update when the stored row moved
// past the revision the caller read.
var ErrStaleRevision = errors.New("alert revision is stale")

type Alert struct {
	ID                   uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID            string           `json:"session_id" gorm:"index;not null"`
	TriggeringDecisionID uuid.UUID        `json:"triggering_decision_id" gorm:"type:uuid;not null"`
	RelatedDecisionIDs   domain.UUIDArray `json:"related_decision_ids" gorm:"type:uuid[]"`
	RiskCategory         pattern.Category `json:"risk_category" gorm:"type:varchar(32)"`
	RiskScore            int              `json:"risk_score"`
	Status               Status           `json:"status" gorm:"type:varchar(32);index;not null"`
	AssignedTo           *string          `json:"assigned_to,omitempty"`
	ResolutionNote       string           `json:"resolution_note,omitempty"`
	EscalationReason     string           `json:"escalation_reason,omitempty"`
	EscalatedBy          *string          `json:"escalated_by,omitempty"`
	SLADeadline          time.Time        `json:"sla_deadline" gorm:"column:sla_deadline"`
	SLABreachedAt        *time.Time       `json:"sla_breached_at,omitempty" gorm:"column:sla_breached_at"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	ResolvedAt           *time.Time       `json:"resolved_at,omitempty"`
	EscalatedAt          *time.Time       `json:"escalated_at,omitempty"`
	Revision             int              `json:"revision" gorm:"not null;default:0"`
}

func (Alert) TableName() string {
	return "crisis_alerts"
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Command carries the responder input of a transition.
type Command struct {
	Actor  string
	Note   string
	Reason string
}

func New(sessionID string, decisionID uuid.UUID, category pattern.Category, score int, sla time.Duration, now time.Time) *Alert {
	return &Alert{
		ID:                   uuid.New(),
		SessionID:            sessionID,
		TriggeringDecisionID: decisionID,
		RelatedDecisionIDs:   domain.UUIDArray{decisionID},
		RiskCategory:         category,
		RiskScore:            score,
		Status:               StatusNew,
		SLADeadline:          now.Add(sla),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (a *Alert) IsOpen() bool {
	return a.Status.IsOpen()
}

// Absorb folds a further crisis decision of the same session into the alert.
// It returns false when the decision was already recorded.
func (a *Alert) Absorb(decisionID uuid.UUID, category pattern.Category, score int, now time.Time) bool {
	if a.TriggeringDecisionID == decisionID || a.RelatedDecisionIDs.Contains(decisionID) {
		return false
	}
	a.RelatedDecisionIDs = append(a.RelatedDecisionIDs.Clone(), decisionID)
	if score > a.RiskScore {
		a.RiskScore = score
		if category != "" {
			a.RiskCategory = category
		}
	}
	a.UpdatedAt = now
	return true
}

// Apply runs a transition against the alert. changed is false for the
// idempotent no-op transitions.
func (a *Alert) Apply(via Transition, cmd Command, now time.Time) (changed bool, err error) {
	if via == TransitionClaim && a.ClaimedBy(cmd.Actor) {
		return false, nil
	}
	to, noop, err := Next(a.Status, via)
	if err != nil {
		return false, err
	}
	if noop {
		return false, nil
	}

	switch via {
	case TransitionClaim:
		if cmd.Actor == "" {
			return false, domainErrors.NewValidationError("responder", "is required")
		}
		actor := cmd.Actor
		a.AssignedTo = &actor
	case TransitionResolve:
		a.ResolutionNote = cmd.Note
		a.ResolvedAt = &now
	case TransitionEscalate:
		a.EscalationReason = cmd.Reason
		if cmd.Actor != "" {
			actor := cmd.Actor
			a.EscalatedBy = &actor
		}
		a.EscalatedAt = &now
	}
	a.Status = to
	a.UpdatedAt = now
	return true, nil
}

// ClaimedBy reports whether a repeated claim by actor is a no-op rather
// than a conflict.
func (a *Alert) ClaimedBy(actor string) bool {
	return a.Status == StatusReviewing && a.AssignedTo != nil && *a.AssignedTo == actor
}

// SLABreached reports whether the alert is still unclaimed past its deadline
// and has not been stamped yet.
func (a *Alert) SLABreached(now time.Time) bool {
	return a.Status == StatusNew && a.SLABreachedAt == nil && now.After(a.SLADeadline)
}

// AbsorbsWithin reports whether a fresh crisis decision should be folded into
// this alert instead of opening a new one. Escalated alerts keep absorbing
// for cooldown after escalation.
func (a *Alert) AbsorbsWithin(cooldown time.Duration, now time.Time) bool {
	if a.IsOpen() {
		return true
	}
	if a.Status != StatusEscalatedEmergency {
		return false
	}
	since := a.UpdatedAt
	if a.EscalatedAt != nil {
		since = *a.EscalatedAt
	}
	return now.Sub(since) < cooldown
}
