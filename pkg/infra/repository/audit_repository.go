package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
)

type auditRepository struct {
	store *Store
}

func NewAuditRepository(store *Store) audit.Repository {
	return &auditRepository{store: store}
}

func (r *auditRepository) Append(ctx context.Context, records []audit.Record) error {
	if len(records) == 0 {
		return nil
	}
	return r.store.run(ctx, "append audit records", func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&records, 200).Error
	})
}

func (r *auditRepository) Query(ctx context.Context, f audit.Filter) ([]audit.Record, error) {
	var out []audit.Record
	err := r.store.run(ctx, "query audit records", func(db *gorm.DB) error {
		q := db.Model(&audit.Record{})
		if f.SessionID != "" {
			q = q.Where("session_id = ?", f.SessionID)
		}
		if f.Category != "" {
			q = q.Where("category = ?", f.Category)
		}
		if f.Component != "" {
			q = q.Where("component = ?", f.Component)
		}
		if f.Priority != "" {
			q = q.Where("priority = ?", f.Priority)
		}
		q = between(q, "created_at", f.From, f.To)
		return page(q.Order("created_at"), f.Limit, f.Offset).Find(&out).Error
	})
	return out, err
}
