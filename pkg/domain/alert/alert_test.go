package alert

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

func newAlert(now time.Time) *Alert {
	return New("session-1", uuid.New(), pattern.CategorySuicide, 80, 5*time.Minute, now)
}

func TestAlert_Lifecycle(t *testing.T) {
	now := time.Now()
	a := newAlert(now)
	assert.Equal(t, StatusNew, a.Status)
	assert.Equal(t, now.Add(5*time.Minute), a.SLADeadline)

	changed, err := a.Apply(TransitionClaim, Command{Actor: "responder-1"}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusReviewing, a.Status)
	assert.Equal(t, "responder-1", *a.AssignedTo)

	changed, err = a.Apply(TransitionClaim, Command{Actor: "responder-1"}, now)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = a.Apply(TransitionClaim, Command{Actor: "responder-2"}, now)
	assert.True(t, errors.Is(err, domainErrors.ErrPolicyConflict))

	changed, err = a.Apply(TransitionResolve, Command{Note: "called back, safe"}, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusResolved, a.Status)
	require.NotNil(t, a.ResolvedAt)

	changed, err = a.Apply(TransitionResolve, Command{Note: "again"}, now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "called back, safe", a.ResolutionNote)

	_, err = a.Apply(TransitionEscalate, Command{Actor: "responder-1"}, now)
	assert.True(t, errors.Is(err, domainErrors.ErrPolicyConflict))
}

func TestAlert_ResolveRequiresClaim(t *testing.T) {
	a := newAlert(time.Now())
	_, err := a.Apply(TransitionResolve, Command{}, time.Now())
	assert.True(t, errors.Is(err, domainErrors.ErrPolicyConflict))
}

func TestAlert_ClaimRequiresActor(t *testing.T) {
	a := newAlert(time.Now())
	_, err := a.Apply(TransitionClaim, Command{}, time.Now())
	assert.True(t, errors.Is(err, domainErrors.ErrValidation))
	assert.Equal(t, StatusNew, a.Status)
}

func TestAlert_EscalateFromAnyOpenState(t *testing.T) {
	for _, claimFirst := range []bool{false, true} {
		a := newAlert(time.Now())
		if claimFirst {
			_, err := a.Apply(TransitionClaim, Command{Actor: "r"}, time.Now())
			require.NoError(t, err)
		}
		changed, err := a.Apply(TransitionEscalate, Command{Actor: "r", Reason: "means at hand"}, time.Now())
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusEscalatedEmergency, a.Status)

		changed, err = a.Apply(TransitionEscalate, Command{Actor: "r"}, time.Now())
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "means at hand", a.EscalationReason)
	}
}

func TestAlert_Absorb(t *testing.T) {
	now := time.Now()
	a := newAlert(now)
	second := uuid.New()

	assert.True(t, a.Absorb(second, pattern.CategorySelfHarm, 70, now))
	assert.Equal(t, 80, a.RiskScore)
	assert.Equal(t, pattern.CategorySuicide, a.RiskCategory)

	assert.False(t, a.Absorb(second, pattern.CategorySelfHarm, 95, now))
	assert.Equal(t, 80, a.RiskScore)

	third := uuid.New()
	assert.True(t, a.Absorb(third, pattern.CategorySelfHarm, 95, now))
	assert.Equal(t, 95, a.RiskScore)
	assert.Len(t, a.RelatedDecisionIDs, 3)
	assert.False(t, a.Absorb(a.TriggeringDecisionID, pattern.CategorySuicide, 100, now))
}

func TestAlert_SLABreached(t *testing.T) {
	now := time.Now()
	a := newAlert(now)
	assert.False(t, a.SLABreached(now.Add(time.Minute)))
	assert.True(t, a.SLABreached(now.Add(6*time.Minute)))

	stamped := now.Add(6 * time.Minute)
	a.SLABreachedAt = &stamped
	assert.False(t, a.SLABreached(now.Add(7*time.Minute)))
}

func TestAlert_AbsorbsWithin(t *testing.T) {
	now := time.Now()
	a := newAlert(now)
	assert.True(t, a.AbsorbsWithin(30*time.Minute, now.Add(time.Hour)))

	_, err := a.Apply(TransitionEscalate, Command{Actor: "r"}, now)
	require.NoError(t, err)
	assert.True(t, a.AbsorbsWithin(30*time.Minute, now.Add(10*time.Minute)))
	assert.False(t, a.AbsorbsWithin(30*time.Minute, now.Add(31*time.Minute)))

	r := newAlert(now)
	_, _ = r.Apply(TransitionClaim, Command{Actor: "r"}, now)
	_, _ = r.Apply(TransitionResolve, Command{}, now)
	assert.False(t, r.AbsorbsWithin(30*time.Minute, now))
}

func TestAlert_EscalationIsMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	all := []Transition{TransitionClaim, TransitionResolve, TransitionEscalate}
	actors := []string{"", "r1", "r2"}

	properties.Property("nothing leaves escalated_emergency or resolved", prop.ForAll(
		func(ops []int, who []int) bool {
			a := newAlert(time.Now())
			terminal := Status("")
			for i, op := range ops {
				actor := ""
				if i < len(who) {
					actor = actors[who[i]]
				}
				_, _ = a.Apply(all[op], Command{Actor: actor}, time.Now())
				if terminal != "" && a.Status != terminal {
					return false
				}
				if a.Status == StatusEscalatedEmergency || a.Status == StatusResolved {
					terminal = a.Status
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}
