package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
)

type decisionRepository struct {
	store *Store
}

func NewDecisionRepository(store *Store) decision.Repository {
	return &decisionRepository{store: store}
}

func (r *decisionRepository) Save(ctx context.Context, d *decision.Decision) error {
	return r.store.run(ctx, "save decision", func(db *gorm.DB) error {
		return duplicate(db.Create(d).Error, "moderation decision", "recorded", "overwrite")
	})
}

func (r *decisionRepository) Get(ctx context.Context, id uuid.UUID) (*decision.Decision, error) {
	var d decision.Decision
	err := r.store.run(ctx, "get decision", func(db *gorm.DB) error {
		return notFound(db.Where("id = ?", id).First(&d).Error, "moderation decision", id)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *decisionRepository) List(ctx context.Context, f decision.Filter) ([]decision.Decision, error) {
	var out []decision.Decision
	err := r.store.run(ctx, "list decisions", func(db *gorm.DB) error {
		q := db.Model(&decision.Decision{})
		if f.SessionID != "" {
			q = q.Where("session_id = ?", f.SessionID)
		}
		if f.Category != "" {
			q = q.Where("risk_category = ?", f.Category)
		}
		if f.Action != "" {
			q = q.Where("action = ?", f.Action)
		}
		if f.Flagged != nil {
			q = q.Where("flagged_for_review = ?", *f.Flagged)
		}
		q = between(q, "created_at", f.From, f.To)
		return page(q.Order("created_at DESC"), f.Limit, f.Offset).Find(&out).Error
	})
	return out, err
}
