package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain/violation"
)

type violationRepository struct {
	store *Store
}

func NewViolationRepository(store *Store) violation.Repository {
	return &violationRepository{store: store}
}

func (r *violationRepository) SaveAll(ctx context.Context, violations []violation.Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return r.store.run(ctx, "save boundary violations", func(db *gorm.DB) error {
		return db.Create(&violations).Error
	})
}

func (r *violationRepository) List(ctx context.Context, f violation.Filter) ([]violation.Violation, error) {
	var out []violation.Violation
	err := r.store.run(ctx, "list boundary violations", func(db *gorm.DB) error {
		q := db.Model(&violation.Violation{})
		if f.SessionID != "" {
			q = q.Where("session_id = ?", f.SessionID)
		}
		if f.DecisionID != uuid.Nil {
			q = q.Where("decision_id = ?", f.DecisionID)
		}
		if f.Type != "" {
			q = q.Where("violation_type = ?", f.Type)
		}
		q = between(q, "created_at", f.From, f.To)
		return page(q.Order("created_at DESC"), f.Limit, f.Offset).Find(&out).Error
	})
	return out, err
}
