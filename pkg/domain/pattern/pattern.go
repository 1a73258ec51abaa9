package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

type Category string

const (
	CategorySuicide        Category = "suicide"
	CategorySelfHarm       Category = "self_harm"
	CategoryAbuse          Category = "abuse"
	CategoryViolence       Category = "violence"
	CategoryScopeViolation Category = "scope_violation"
	CategoryBrandUnsafe    Category = "brand_unsafe"
)

// Categories in tie-break priority order, highest first.
var Categories = []Category{
	CategorySuicide,
	CategorySelfHarm,
	CategoryAbuse,
	CategoryViolence,
	CategoryScopeViolation,
	CategoryBrandUnsafe,
}

// Priority is lower for categories that win ties. Unknown categories sort last.
func (c Category) Priority() int {
	for i, v := range Categories {
		if v == c {
			return i
		}
	}
	return len(Categories)
}

func (c Category) Valid() bool {
	return c.Priority() < len(Categories)
}

// IsCrisis reports whether the category is protected by the weight floor.
func (c Category) IsCrisis() bool {
	return c == CategorySuicide || c == CategorySelfHarm
}

type Kind string

const (
	KindLiteral Kind = "literal"
	KindRegex   Kind = "regex"
)

type Subtype string

const (
	SubtypeNone      Subtype = ""
	SubtypeDiagnosis Subtype = "diagnosis"
	SubtypeDosing    Subtype = "dosing"
	SubtypeLegal     Subtype = "legal"
)

const MaxWeight = 100

type Entry struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Key           string     `json:"key" gorm:"index;not null"`
	Category      Category   `json:"category" gorm:"type:varchar(32);not null"`
	Subtype       Subtype    `json:"subtype,omitempty" gorm:"type:varchar(32)"`
	Pattern       string     `json:"pattern" gorm:"not null"`
	Kind          Kind       `json:"kind" gorm:"type:varchar(16);not null"`
	Weight        int        `json:"severity_weight" gorm:"column:severity_weight;not null"`
	Active        bool       `json:"active" gorm:"not null"`
	Version       int        `json:"version" gorm:"not null"`
	Description   string     `json:"description,omitempty"`
	CreatedBy     string     `json:"created_by,omitempty"`
	ActivatedAt   time.Time  `json:"activated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (Entry) TableName() string {
	return "pattern_entries"
}

func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return e.Validate()
}

// Validate normalizes the entry in place and checks it can be compiled.
func (e *Entry) Validate() error {
	e.Key = strings.TrimSpace(e.Key)
	e.Pattern = strings.TrimSpace(e.Pattern)
	if e.Key == "" {
		return domainErrors.NewValidationError("key", "is required")
	}
	if e.Pattern == "" {
		return domainErrors.NewValidationError("pattern", "is required")
	}
	if !e.Category.Valid() {
		return domainErrors.NewValidationError("category", fmt.Sprintf("unknown category %q", e.Category))
	}
	if e.Kind == "" {
		e.Kind = KindLiteral
	}
	switch e.Kind {
	case KindLiteral:
	case KindRegex:
		if _, err := regexp.Compile(e.Pattern); err != nil {
			return domainErrors.NewValidationError("pattern", fmt.Sprintf("invalid regex: %v", err))
		}
	default:
		return domainErrors.NewValidationError("kind", fmt.Sprintf("unknown kind %q", e.Kind))
	}
	switch e.Subtype {
	case SubtypeNone, SubtypeDiagnosis, SubtypeDosing, SubtypeLegal:
	default:
		return domainErrors.NewValidationError("subtype", fmt.Sprintf("unknown subtype %q", e.Subtype))
	}
	if e.Weight < 0 || e.Weight > MaxWeight {
		return domainErrors.NewValidationError("severity_weight", "must be between 0 and 100")
	}
	return nil
}

// NextVersion returns a fresh, active copy of the entry carrying the given
// changes on top of prior. Prior is left untouched.
func NextVersion(prior *Entry, next Entry, now time.Time) Entry {
	out := next
	out.ID = uuid.New()
	out.Key = prior.Key
	out.Version = prior.Version + 1
	out.Active = true
	out.ActivatedAt = now
	out.DeactivatedAt = nil
	out.CreatedAt = now
	if out.Category == "" {
		out.Category = prior.Category
	}
	if out.Subtype == SubtypeNone && out.Category == prior.Category {
		out.Subtype = prior.Subtype
	}
	if out.Pattern == "" {
		out.Pattern = prior.Pattern
		if out.Kind == "" {
			out.Kind = prior.Kind
		}
	}
	if out.Description == "" {
		out.Description = prior.Description
	}
	return out
}
