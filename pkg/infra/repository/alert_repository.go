package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
)

type alertRepository struct {
	store *Store
}

func NewAlertRepository(store *Store) alert.Repository {
	return &alertRepository{store: store}
}

func (r *alertRepository) Create(ctx context.Context, a *alert.Alert) error {
	return r.store.run(ctx, "create alert", func(db *gorm.DB) error {
		return duplicate(db.Create(a).Error, "alert", string(alert.StatusNew), "open second alert")
	})
}

func (r *alertRepository) Update(ctx context.Context, a *alert.Alert, expectedRevision int) error {
	return r.store.run(ctx, "update alert", func(db *gorm.DB) error {
		res := db.Model(&alert.Alert{}).
			Where("id = ? AND revision = ?", a.ID, expectedRevision).
			Updates(map[string]interface{}{
				"related_decision_ids": a.RelatedDecisionIDs,
				"risk_category":        a.RiskCategory,
				"risk_score":           a.RiskScore,
				"status":               a.Status,
				"assigned_to":          a.AssignedTo,
				"resolution_note":      a.ResolutionNote,
				"escalation_reason":    a.EscalationReason,
				"escalated_by":         a.EscalatedBy,
				"sla_breached_at":      a.SLABreachedAt,
				"updated_at":           a.UpdatedAt,
				"resolved_at":          a.ResolvedAt,
				"escalated_at":         a.EscalatedAt,
				"revision":             expectedRevision + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := db.Model(&alert.Alert{}).Where("id = ?", a.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return notFound(gorm.ErrRecordNotFound, "crisis alert", a.ID)
			}
			return alert.ErrStaleRevision
		}
		a.Revision = expectedRevision + 1
		return nil
	})
}

func (r *alertRepository) Get(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	var a alert.Alert
	err := r.store.run(ctx, "get alert", func(db *gorm.DB) error {
		return notFound(db.Where("id = ?", id).First(&a).Error, "crisis alert", id)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindLatestBySession returns nil when the session never raised an alert.
func (r *alertRepository) FindLatestBySession(ctx context.Context, sessionID string) (*alert.Alert, error) {
	var a alert.Alert
	var found bool
	err := r.store.run(ctx, "find session alert", func(db *gorm.DB) error {
		err := db.Where("session_id = ?", sessionID).Order("created_at DESC").First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

func (r *alertRepository) List(ctx context.Context, f alert.Filter) ([]alert.Alert, error) {
	var out []alert.Alert
	err := r.store.run(ctx, "list alerts", func(db *gorm.DB) error {
		q := db.Model(&alert.Alert{})
		if f.SessionID != "" {
			q = q.Where("session_id = ?", f.SessionID)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Category != "" {
			q = q.Where("risk_category = ?", f.Category)
		}
		q = between(q, "created_at", f.From, f.To)
		return page(q.Order("created_at DESC"), f.Limit, f.Offset).Find(&out).Error
	})
	return out, err
}

func (r *alertRepository) ListSLABreached(ctx context.Context, now time.Time) ([]alert.Alert, error) {
	var out []alert.Alert
	err := r.store.run(ctx, "list sla breaches", func(db *gorm.DB) error {
		return db.Where("status = ? AND sla_breached_at IS NULL AND sla_deadline < ?", alert.StatusNew, now).
			Order("sla_deadline").
			Find(&out).Error
	})
	return out, err
}
