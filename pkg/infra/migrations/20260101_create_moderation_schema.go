package migrations

import (
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/infra/database"
)

func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20260101_create_moderation_schema",
		Name: "Create pattern dictionary, decision, alert, violation, verdict and audit tables",

		Up: func(db *gorm.DB) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS pattern_entries (
					id              UUID PRIMARY KEY,
					key             TEXT NOT NULL,
					category        VARCHAR(32) NOT NULL,
					subtype         VARCHAR(32) NOT NULL DEFAULT '',
					pattern         TEXT NOT NULL,
					kind            VARCHAR(16) NOT NULL DEFAULT 'literal',
					severity_weight INTEGER NOT NULL CHECK (severity_weight BETWEEN 0 AND 100),
					active          BOOLEAN NOT NULL DEFAULT TRUE,
					version         INTEGER NOT NULL,
					description     TEXT NOT NULL DEFAULT '',
					created_by      TEXT NOT NULL DEFAULT '',
					activated_at    TIMESTAMPTZ NOT NULL,
					deactivated_at  TIMESTAMPTZ,
					created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (key, version)
				);`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_pattern_entries_active_key
					ON pattern_entries (key) WHERE active;`,

				`CREATE TABLE IF NOT EXISTS moderation_decisions (
					id                    UUID PRIMARY KEY,
					session_id            TEXT NOT NULL,
					message_role          VARCHAR(16) NOT NULL,
					raw_text_hash         CHAR(64) NOT NULL,
					matched_pattern_ids   UUID[] NOT NULL DEFAULT '{}',
					risk_score            INTEGER NOT NULL,
					risk_category         VARCHAR(32) NOT NULL DEFAULT '',
					action                VARCHAR(16) NOT NULL,
					flagged_for_review    BOOLEAN NOT NULL DEFAULT FALSE,
					supersedes_id         UUID REFERENCES moderation_decisions(id),
					dictionary_generation BIGINT NOT NULL DEFAULT 0,
					reason                TEXT NOT NULL DEFAULT '',
					created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
				`CREATE INDEX IF NOT EXISTS idx_moderation_decisions_session
					ON moderation_decisions (session_id, created_at DESC);`,
				`CREATE INDEX IF NOT EXISTS idx_moderation_decisions_created
					ON moderation_decisions (created_at);`,

				`CREATE TABLE IF NOT EXISTS crisis_alerts (
					id                     UUID PRIMARY KEY,
					session_id             TEXT NOT NULL,
					triggering_decision_id UUID NOT NULL,
					related_decision_ids   UUID[] NOT NULL DEFAULT '{}',
					risk_category          VARCHAR(32) NOT NULL DEFAULT '',
					risk_score             INTEGER NOT NULL,
					status                 VARCHAR(32) NOT NULL,
					assigned_to            TEXT,
					resolution_note        TEXT NOT NULL DEFAULT '',
					escalation_reason      TEXT NOT NULL DEFAULT '',
					escalated_by           TEXT,
					sla_deadline           TIMESTAMPTZ NOT NULL,
					sla_breached_at        TIMESTAMPTZ,
					created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					resolved_at            TIMESTAMPTZ,
					escalated_at           TIMESTAMPTZ,
					revision               INTEGER NOT NULL DEFAULT 0
				);`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_crisis_alerts_one_open_per_session
					ON crisis_alerts (session_id) WHERE status IN ('new', 'reviewing');`,
				`CREATE INDEX IF NOT EXISTS idx_crisis_alerts_session_created
					ON crisis_alerts (session_id, created_at DESC);`,
				`CREATE INDEX IF NOT EXISTS idx_crisis_alerts_sla
					ON crisis_alerts (sla_deadline) WHERE status = 'new' AND sla_breached_at IS NULL;`,

				`CREATE TABLE IF NOT EXISTS boundary_violations (
					id             UUID PRIMARY KEY,
					session_id     TEXT NOT NULL,
					decision_id    UUID NOT NULL REFERENCES moderation_decisions(id),
					pattern_id     UUID,
					violation_type VARCHAR(32) NOT NULL DEFAULT '',
					original_text  TEXT NOT NULL,
					redacted_text  TEXT NOT NULL,
					created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
				`CREATE INDEX IF NOT EXISTS idx_boundary_violations_session
					ON boundary_violations (session_id, created_at);`,

				`CREATE TABLE IF NOT EXISTS reviewer_verdicts (
					id          UUID PRIMARY KEY,
					decision_id UUID NOT NULL REFERENCES moderation_decisions(id),
					verdict     VARCHAR(32) NOT NULL,
					reviewer_id TEXT NOT NULL,
					note        TEXT NOT NULL DEFAULT '',
					created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
				`CREATE INDEX IF NOT EXISTS idx_reviewer_verdicts_created
					ON reviewer_verdicts (created_at);`,

				`CREATE TABLE IF NOT EXISTS weight_proposals (
					id                  UUID PRIMARY KEY,
					pattern_id          UUID NOT NULL REFERENCES pattern_entries(id),
					pattern_key         TEXT NOT NULL,
					category            VARCHAR(32) NOT NULL,
					current_weight      INTEGER NOT NULL,
					proposed_weight     INTEGER NOT NULL,
					false_positive_rate DOUBLE PRECISION NOT NULL,
					sample_size         INTEGER NOT NULL,
					status              VARCHAR(16) NOT NULL,
					reviewed_by         TEXT,
					applied_pattern_id  UUID,
					created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					reviewed_at         TIMESTAMPTZ
				);`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_weight_proposals_one_pending
					ON weight_proposals (pattern_id) WHERE status = 'pending';`,

				`CREATE TABLE IF NOT EXISTS audit_records (
					id         UUID PRIMARY KEY,
					session_id TEXT NOT NULL DEFAULT '',
					component  VARCHAR(32) NOT NULL,
					event_type VARCHAR(64) NOT NULL,
					category   VARCHAR(32) NOT NULL DEFAULT '',
					priority   VARCHAR(16) NOT NULL,
					subject_id TEXT NOT NULL DEFAULT '',
					payload    JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL
				);`,
				`CREATE INDEX IF NOT EXISTS idx_audit_records_session ON audit_records (session_id, created_at);`,
				`CREATE INDEX IF NOT EXISTS idx_audit_records_created ON audit_records (created_at);`,
				`CREATE INDEX IF NOT EXISTS idx_audit_records_category ON audit_records (category, created_at);`,
			}
			for _, stmt := range statements {
				if err := db.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return nil
		},

		Down: func(db *gorm.DB) error {
			return db.Exec(`
				DROP TABLE IF EXISTS audit_records;
				DROP TABLE IF EXISTS weight_proposals;
				DROP TABLE IF EXISTS reviewer_verdicts;
				DROP TABLE IF EXISTS boundary_violations;
				DROP TABLE IF EXISTS crisis_alerts;
				DROP TABLE IF EXISTS moderation_decisions;
				DROP TABLE IF EXISTS pattern_entries;
			`).Error
		},
	})
}
