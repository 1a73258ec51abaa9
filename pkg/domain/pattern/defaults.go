package pattern

import (
	"time"

	"github.com/google/uuid"
)

// Defaults is the built-in dictionary. It seeds an empty database and is
// served at boot when no snapshot could be loaded from storage.
func Defaults() []Entry {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Entry, 0, len(defaultEntries))
	for _, d := range defaultEntries {
		e := d
		e.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("careguard/pattern/"+e.Key+"/v1"))
		e.Version = 1
		e.Active = true
		e.CreatedBy = "system"
		e.ActivatedAt = epoch
		e.CreatedAt = epoch
		if e.Kind == "" {
			e.Kind = KindLiteral
		}
		out = append(out, e)
	}
	return out
}

var defaultEntries = []Entry{
	{Key: "suicide.not_here_anymore", Category: CategorySuicide, Pattern: "don't want to be here anymore", Weight: 60},
	{Key: "suicide.kill_myself", Category: CategorySuicide, Pattern: "kill myself", Weight: 70},
	{Key: "suicide.want_to_die", Category: CategorySuicide, Pattern: "want to die", Weight: 65},
	{Key: "suicide.end_my_life", Category: CategorySuicide, Pattern: "end my life", Weight: 70},
	{Key: "suicide.end_it_all", Category: CategorySuicide, Pattern: "end it all", Weight: 55},
	{Key: "suicide.suicide", Category: CategorySuicide, Pattern: "suicide", Weight: 60},
	{Key: "suicide.suicidal", Category: CategorySuicide, Pattern: "suicidal", Weight: 60},
	{Key: "suicide.no_reason_to_live", Category: CategorySuicide, Pattern: "no reason to live", Weight: 60},
	{Key: "suicide.better_off_dead", Category: CategorySuicide, Pattern: "better off dead", Weight: 60},

	{
		Key:         "self_harm.means_at_hand",
		Category:    CategorySelfHarm,
		Kind:        KindRegex,
		Pattern:     `\b(have|got|saved|stockpiled?|collected|bought)\s+(the\s+|my\s+|some\s+|enough\s+)?(pills|razors?|blades?|rope)\b`,
		Weight:      40,
		Description: "access to means",
	},
	{Key: "self_harm.cut_myself", Category: CategorySelfHarm, Pattern: "cut myself", Weight: 60},
	{Key: "self_harm.hurt_myself", Category: CategorySelfHarm, Pattern: "hurt myself", Weight: 55},
	{Key: "self_harm.self_harm", Category: CategorySelfHarm, Pattern: "self harm", Weight: 55},
	{Key: "self_harm.burn_myself", Category: CategorySelfHarm, Pattern: "burn myself", Weight: 55},

	{Key: "abuse.hits_me", Category: CategoryAbuse, Pattern: "hits me", Weight: 50},
	{Key: "abuse.being_abused", Category: CategoryAbuse, Pattern: "being abused", Weight: 55},
	{Key: "abuse.afraid_to_go_home", Category: CategoryAbuse, Pattern: "afraid to go home", Weight: 45},
	{Key: "abuse.forced_me", Category: CategoryAbuse, Pattern: "forced me to", Weight: 40},

	{Key: "violence.kill_him", Category: CategoryViolence, Pattern: "kill him", Weight: 60},
	{Key: "violence.kill_her", Category: CategoryViolence, Pattern: "kill her", Weight: 60},
	{Key: "violence.kill_them", Category: CategoryViolence, Pattern: "kill them", Weight: 60},
	{Key: "violence.bring_a_gun", Category: CategoryViolence, Pattern: "bring a gun", Weight: 60},
	{Key: "violence.make_them_pay", Category: CategoryViolence, Pattern: "make them pay", Weight: 35},

	{
		Key:         "scope.dosing.amount",
		Category:    CategoryScopeViolation,
		Subtype:     SubtypeDosing,
		Kind:        KindRegex,
		Pattern:     `\b\d+(\.\d+)?\s?(mg|mcg|milligrams?|micrograms?|ml|milliliters?|iu)\b`,
		Weight:      10,
		Description: "medication amount",
	},
	{
		Key:      "scope.dosing.change_dose",
		Category: CategoryScopeViolation,
		Subtype:  SubtypeDosing,
		Kind:     KindRegex,
		Pattern:  `\b(increase|double|lower|reduce|stop)\s+(your\s+)?(dose|dosage|medication|meds)\b`,
		Weight:   10,
	},
	{
		Key:      "scope.diagnosis.you_have",
		Category: CategoryScopeViolation,
		Subtype:  SubtypeDiagnosis,
		Kind:     KindRegex,
		Pattern:  `\byou\s+(have|are suffering from|probably have|clearly have|might have)\s+(depression|bipolar( disorder)?|adhd|ptsd|ocd|schizophrenia|an?\s+\w+\s+disorder)\b`,
		Weight:   10,
	},
	{Key: "scope.diagnosis.diagnose", Category: CategoryScopeViolation, Subtype: SubtypeDiagnosis, Pattern: "my diagnosis is", Weight: 10},
	{
		Key:      "scope.legal.guarantee",
		Category: CategoryScopeViolation,
		Subtype:  SubtypeLegal,
		Kind:     KindRegex,
		Pattern:  `\b(you('ll| will)\s+(definitely\s+)?win|guaranteed\s+to\s+win|legally\s+guaranteed)\b`,
		Weight:   10,
	},
	{Key: "scope.legal.sue", Category: CategoryScopeViolation, Subtype: SubtypeLegal, Pattern: "you should sue", Weight: 10},

	{Key: "brand.pathetic", Category: CategoryBrandUnsafe, Pattern: "you're pathetic", Weight: 25},
	{Key: "brand.nobody_cares", Category: CategoryBrandUnsafe, Pattern: "nobody cares about you", Weight: 30},
	{Key: "brand.shut_up", Category: CategoryBrandUnsafe, Pattern: "shut up", Weight: 15},
}
