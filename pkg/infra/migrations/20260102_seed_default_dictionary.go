package migrations

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/infra/database"
)

func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20260102_seed_default_dictionary",
		Name: "Seed the built-in pattern dictionary",

		Up: func(db *gorm.DB) error {
			entries := pattern.Defaults()
			return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
		},

		Down: func(db *gorm.DB) error {
			return db.Exec(`DELETE FROM pattern_entries WHERE created_by = 'system' AND version = 1`).Error
		},
	})
}
