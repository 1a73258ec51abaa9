package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedact   Action = "redact"
	ActionBlock    Action = "block"
	ActionEscalate Action = "escalate"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAllow, ActionRedact, ActionBlock, ActionEscalate:
		return true
	}
	return false
}

// Blocks reports whether the original text must be withheld from the recipient.
func (a Action) Blocks() bool {
	return a == ActionBlock || a == ActionEscalate
}

// Decision is written once per inspected message and never updated.
type Decision struct {
	ID                   uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID            string           `json:"session_id" gorm:"index;not null"`
	MessageRole          Role             `json:"message_role" gorm:"type:varchar(16);not null"`
	RawTextHash          string           `json:"raw_text_hash" gorm:"type:char(64);not null"`
	MatchedPatternIDs    domain.UUIDArray `json:"matched_pattern_ids" gorm:"type:uuid[]"`
	RiskScore            int              `json:"risk_score" gorm:"not null"`
	RiskCategory         pattern.Category `json:"risk_category,omitempty" gorm:"type:varchar(32)"`
	Action               Action           `json:"action" gorm:"type:varchar(16);not null"`
	FlaggedForReview     bool             `json:"flagged_for_review" gorm:"not null"`
	SupersedesID         *uuid.UUID       `json:"supersedes_id,omitempty" gorm:"type:uuid"`
	DictionaryGeneration uint64           `json:"dictionary_generation" gorm:"column:dictionary_generation"`
	Reason               string           `json:"reason,omitempty"`
	CreatedAt            time.Time        `json:"created_at" gorm:"index"`
}

func (Decision) TableName() string {
	return "moderation_decisions"
}

func (d *Decision) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return d.Validate()
}

func (d *Decision) Validate() error {
	if d.SessionID == "" {
		return domainErrors.NewValidationError("session_id", "is required")
	}
	if !d.MessageRole.Valid() {
		return domainErrors.NewValidationError("message_role", "must be user or assistant")
	}
	if !d.Action.Valid() {
		return domainErrors.NewValidationError("action", "unknown action")
	}
	if d.RiskScore < 0 || d.RiskScore > 100 {
		return domainErrors.NewValidationError("risk_score", "must be between 0 and 100")
	}
	return nil
}

func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Correct builds a decision that supersedes d with a new action. The
// original row is not modified.
func (d *Decision) Correct(action Action, reason string, now time.Time) Decision {
	prior := d.ID
	return Decision{
		ID:                   uuid.New(),
		SessionID:            d.SessionID,
		MessageRole:          d.MessageRole,
		RawTextHash:          d.RawTextHash,
		MatchedPatternIDs:    d.MatchedPatternIDs.Clone(),
		RiskScore:            d.RiskScore,
		RiskCategory:         d.RiskCategory,
		Action:               action,
		SupersedesID:         &prior,
		DictionaryGeneration: d.DictionaryGeneration,
		Reason:               reason,
		CreatedAt:            now,
	}
}
