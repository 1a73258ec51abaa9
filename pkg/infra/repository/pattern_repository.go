package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type patternRepository struct {
	store *Store
}

func NewPatternRepository(store *Store) pattern.Repository {
	return &patternRepository{store: store}
}

func (r *patternRepository) ListActive(ctx context.Context) ([]pattern.Entry, error) {
	var entries []pattern.Entry
	err := r.store.run(ctx, "list active patterns", func(db *gorm.DB) error {
		return db.Where("active = ?", true).Order("key").Find(&entries).Error
	})
	return entries, err
}

func (r *patternRepository) ListVersions(ctx context.Context, key string) ([]pattern.Entry, error) {
	var entries []pattern.Entry
	err := r.store.run(ctx, "list pattern versions", func(db *gorm.DB) error {
		return db.Where("key = ?", key).Order("version DESC").Find(&entries).Error
	})
	return entries, err
}

func (r *patternRepository) Get(ctx context.Context, id uuid.UUID) (*pattern.Entry, error) {
	var entry pattern.Entry
	err := r.store.run(ctx, "get pattern", func(db *gorm.DB) error {
		return notFound(db.Where("id = ?", id).First(&entry).Error, "pattern entry", id)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *patternRepository) AddVersion(ctx context.Context, entry pattern.Entry) (*pattern.Entry, error) {
	var created pattern.Entry
	err := r.store.run(ctx, "add pattern version", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			// activation stamps come from the database clock so every
			// instance orders them the same way
			var now time.Time
			if err := tx.Raw("SELECT now()").Scan(&now).Error; err != nil {
				return err
			}
			now = now.UTC()

			var prior pattern.Entry
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("key = ? AND active = ?", entry.Key, true).
				First(&prior).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				var latest int
				if err := tx.Model(&pattern.Entry{}).
					Where("key = ?", entry.Key).
					Select("COALESCE(MAX(version), 0)").
					Scan(&latest).Error; err != nil {
					return err
				}
				created = entry
				created.ID = uuid.New()
				created.Version = latest + 1
				created.Active = true
				created.ActivatedAt = now
				created.CreatedAt = now
			case err != nil:
				return err
			default:
				if err := tx.Model(&pattern.Entry{}).
					Where("id = ?", prior.ID).
					Updates(map[string]interface{}{"active": false, "deactivated_at": now}).Error; err != nil {
					return err
				}
				created = pattern.NextVersion(&prior, entry, now)
			}

			if err := created.Validate(); err != nil {
				return err
			}
			return duplicate(tx.Create(&created).Error, "pattern "+created.Key, "superseded", "add version to")
		})
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
