package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
)

type verdictRepository struct {
	store *Store
}

func NewVerdictRepository(store *Store) verdict.Repository {
	return &verdictRepository{store: store}
}

func (r *verdictRepository) Save(ctx context.Context, v *verdict.Verdict) error {
	return r.store.run(ctx, "save verdict", func(db *gorm.DB) error {
		return db.Create(v).Error
	})
}

func (r *verdictRepository) Get(ctx context.Context, id uuid.UUID) (*verdict.Verdict, error) {
	var v verdict.Verdict
	err := r.store.run(ctx, "get verdict", func(db *gorm.DB) error {
		return notFound(db.Where("id = ?", id).First(&v).Error, "reviewer verdict", id)
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verdictRepository) ListSince(ctx context.Context, since time.Time) ([]verdict.Verdict, error) {
	var out []verdict.Verdict
	err := r.store.run(ctx, "list verdicts", func(db *gorm.DB) error {
		return db.Where("created_at >= ?", since).Order("created_at").Find(&out).Error
	})
	return out, err
}
