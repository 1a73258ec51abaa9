package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
)

type proposalRepository struct {
	store *Store
}

func NewProposalRepository(store *Store) verdict.ProposalRepository {
	return &proposalRepository{store: store}
}

func (r *proposalRepository) Save(ctx context.Context, p *verdict.Proposal) error {
	return r.store.run(ctx, "save proposal", func(db *gorm.DB) error {
		return db.Create(p).Error
	})
}

func (r *proposalRepository) Get(ctx context.Context, id uuid.UUID) (*verdict.Proposal, error) {
	var p verdict.Proposal
	err := r.store.run(ctx, "get proposal", func(db *gorm.DB) error {
		return notFound(db.Where("id = ?", id).First(&p).Error, "weight proposal", id)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *proposalRepository) List(ctx context.Context, status verdict.ProposalStatus) ([]verdict.Proposal, error) {
	var out []verdict.Proposal
	err := r.store.run(ctx, "list proposals", func(db *gorm.DB) error {
		q := db.Model(&verdict.Proposal{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q.Order("created_at DESC").Limit(maxPageSize).Find(&out).Error
	})
	return out, err
}

// FindPending returns nil when the pattern version has no open proposal.
func (r *proposalRepository) FindPending(ctx context.Context, patternID uuid.UUID) (*verdict.Proposal, error) {
	var p verdict.Proposal
	var found bool
	err := r.store.run(ctx, "find pending proposal", func(db *gorm.DB) error {
		err := db.Where("pattern_id = ? AND status = ?", patternID, verdict.ProposalPending).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (r *proposalRepository) UpdateStatus(ctx context.Context, p *verdict.Proposal) error {
	return r.store.run(ctx, "update proposal", func(db *gorm.DB) error {
		res := db.Model(&verdict.Proposal{}).
			Where("id = ? AND status = ?", p.ID, verdict.ProposalPending).
			Updates(map[string]interface{}{
				"status":             p.Status,
				"reviewed_by":        p.ReviewedBy,
				"reviewed_at":        p.ReviewedAt,
				"applied_pattern_id": p.AppliedPatternID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domainErrors.NewPolicyConflictError("proposal", "reviewed", string(p.Status))
		}
		return nil
	})
}
