package http

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/CareGuard/pkg/app/moderation"
	"github.com/NeuralTrust/CareGuard/pkg/domain"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
	"github.com/NeuralTrust/CareGuard/pkg/domain/violation"
	"github.com/NeuralTrust/CareGuard/pkg/handlers/http/response"
)

func newAdminApp(env *testEnv) *fiber.App {
	app := fiber.New()
	app.Use(asResponder("reviewer-1", "admin"))
	app.Get("/api/v1/decisions", NewListDecisionsHandler(env.logger, env.store.Decisions()).Handle)
	app.Get("/api/v1/decisions/:decision_id", NewGetDecisionHandler(env.logger, env.store.Decisions()).Handle)
	app.Post("/api/v1/decisions/:decision_id/corrections", NewCorrectDecisionHandler(env.logger, env.pipeline).Handle)
	app.Get("/api/v1/violations", NewListViolationsHandler(env.logger, env.store.Violations()).Handle)
	app.Post("/api/v1/verdicts", NewCreateVerdictHandler(env.logger, env.feedback).Handle)
	app.Get("/api/v1/proposals", NewListProposalsHandler(env.logger, env.feedback).Handle)
	app.Post("/api/v1/proposals/:proposal_id/approve", NewApproveProposalHandler(env.logger, env.feedback).Handle)
	app.Post("/api/v1/proposals/:proposal_id/reject", NewRejectProposalHandler(env.logger, env.feedback).Handle)
	app.Get("/api/v1/patterns", NewListPatternsHandler(env.logger, env.dictionary).Handle)
	app.Post("/api/v1/patterns", NewAddPatternVersionHandler(env.logger, env.dictionary).Handle)
	app.Post("/api/v1/dictionary/refresh", NewRefreshDictionaryHandler(env.logger, env.dictionary).Handle)
	app.Get("/api/v1/audit", NewQueryAuditHandler(env.logger, env.audit).Handle)
	return app
}

func (env *testEnv) inspect(t *testing.T, sessionID string, role decision.Role, text string) *moderation.InspectResult {
	t.Helper()
	res, err := env.pipeline.Inspect(context.Background(), moderation.InspectRequest{SessionID: sessionID, Role: role, Text: text})
	require.NoError(t, err)
	return res
}

func (env *testEnv) entry(t *testing.T, key string) pattern.Entry {
	t.Helper()
	for _, c := range pattern.Categories {
		for _, e := range env.dictionary.Current().Lookup(c) {
			if e.Key == key {
				return e
			}
		}
	}
	t.Fatalf("pattern %s not in dictionary", key)
	return pattern.Entry{}
}

func TestDecisions_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	app := newAdminApp(env)

	crisis := env.inspect(t, "s1", decision.RoleUser, "I don't want to be here anymore and I have the pills")
	env.inspect(t, "s2", decision.RoleUser, "Had a good day at work.")

	status, raw := doJSON(t, app, "GET", "/api/v1/decisions?action=escalate", nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	listed := decode[[]decision.Decision](t, raw)
	require.Len(t, listed, 1)
	assert.Equal(t, crisis.DecisionID, listed[0].ID)

	status, raw = doJSON(t, app, "GET", "/api/v1/decisions?session_id=s2", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]decision.Decision](t, raw), 1)

	status, _ = doJSON(t, app, "GET", "/api/v1/decisions?action=shout", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = doJSON(t, app, "GET", "/api/v1/decisions?flagged=maybe", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, raw = doJSON(t, app, "GET", "/api/v1/decisions/"+crisis.DecisionID.String(), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, decision.ActionEscalate, decode[decision.Decision](t, raw).Action)

	status, _ = doJSON(t, app, "GET", "/api/v1/decisions/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestDecisions_CorrectionSupersedes(t *testing.T) {
	env := newTestEnv(t)
	app := newAdminApp(env)
	res := env.inspect(t, "s1", decision.RoleUser, "I don't want to be here anymore and I have the pills")

	path := "/api/v1/decisions/" + res.DecisionID.String() + "/corrections"
	status, _ := doJSON(t, app, "POST", path, map[string]string{"action": "allow"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, raw := doJSON(t, app, "POST", path, map[string]string{"action": "allow", "reason": "quoting a film"})
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	corrected := decode[decision.Decision](t, raw)
	require.NotNil(t, corrected.SupersedesID)
	assert.Equal(t, res.DecisionID, *corrected.SupersedesID)
	assert.Equal(t, decision.ActionAllow, corrected.Action)

	original, err := env.store.Decisions().Get(context.Background(), res.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, decision.ActionEscalate, original.Action)

	status, _ = doJSON(t, app, "POST", "/api/v1/decisions/"+uuid.NewString()+"/corrections",
		map[string]string{"action": "allow", "reason": "x"})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestViolations_ListByDecision(t *testing.T) {
	env := newTestEnv(t)
	app := newAdminApp(env)
	res := env.inspect(t, "s1", decision.RoleAssistant,
		"Sleep matters a lot. You should take 400mg of ibuprofen before bed. Try a wind down routine.")

	status, raw := doJSON(t, app, "GET", "/api/v1/violations?decision_id="+res.DecisionID.String(), nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	violations := decode[[]violation.Violation](t, raw)
	require.Len(t, violations, 1)
	assert.Equal(t, pattern.SubtypeDosing, violations[0].ViolationType)

	status, _ = doJSON(t, app, "GET", "/api/v1/violations?decision_id=nope", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestVerdicts_UnknownDecision(t *testing.T) {
	env := newTestEnv(t)
	app := newAdminApp(env)

	status, _ := doJSON(t, app, "POST", "/api/v1/verdicts", map[string]string{
		"decision_id": uuid.NewString(),
		"verdict":     "false_positive",
	})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "POST", "/api/v1/verdicts", map[string]string{
		"decision_id": uuid.NewString(),
		"verdict":     "meh",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestFeedbackLoop_ProposalApproval(t *testing.T) {
	env := newTestEnv(t)
	app := newAdminApp(env)
	ctx := context.Background()
	brand := env.entry(t, "brand.pathetic")

	for i := 0; i < 3; i++ {
		d := &decision.Decision{
			SessionID:         "s-" + uuid.NewString(),
			MessageRole:       decision.RoleAssistant,
			RawTextHash:       decision.HashText("you're pathetic at giving up"),
			MatchedPatternIDs: domain.UUIDArray{brand.ID},
			RiskScore:         brand.Weight,
			RiskCategory:      pattern.CategoryBrandUnsafe,
			Action:            decision.ActionAllow,
		}
		require.NoError(t, env.store.Decisions().Save(ctx, d))

		status, raw := doJSON(t, app, "POST", "/api/v1/verdicts", map[string]string{
			"decision_id": d.ID.String(),
			"verdict":     "false_positive",
		})
		require.Equal(t, fiber.StatusAccepted, status, string(raw))
	}

	// aggregation runs off the request path
	status, raw := doJSON(t, app, "GET", "/api/v1/proposals?status=pending", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, decode[[]verdict.Proposal](t, raw))

	for {
		id, err := env.queue.Pop(ctx, 0)
		require.NoError(t, err)
		if id == "" {
			break
		}
		require.NoError(t, env.feedback.Process(ctx, uuid.MustParse(id)))
	}

	status, raw = doJSON(t, app, "GET", "/api/v1/proposals?status=pending", nil)
	require.Equal(t, fiber.StatusOK, status)
	proposals := decode[[]verdict.Proposal](t, raw)
	require.Len(t, proposals, 1)
	assert.Equal(t, "brand.pathetic", proposals[0].PatternKey)
	assert.Equal(t, 25, proposals[0].CurrentWeight)
	assert.Less(t, proposals[0].ProposedWeight, 25)

	status, raw = doJSON(t, app, "POST", "/api/v1/proposals/"+proposals[0].ID.String()+"/approve", nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, verdict.ProposalApproved, decode[verdict.Proposal](t, raw).Status)

	status, raw = doJSON(t, app, "GET", "/api/v1/patterns?key=brand.pathetic", nil)
	require.Equal(t, fiber.StatusOK, status)
	versions := decode[[]pattern.Entry](t, raw)
	require.Len(t, versions, 2)

	status, _ = doJSON(t, app, "POST", "/api/v1/proposals/"+proposals[0].ID.String()+"/reject", nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = doJSON(t, app, "GET", "/api/v1/proposals?status=someday", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPatterns_ListAndAddVersion(t *testing.T) {
	env := newTestEnv(t)
	app := newAdminApp(env)
	before := env.dictionary.Current().Generation

	status, raw := doJSON(t, app, "GET", "/api/v1/patterns?category=brand_unsafe", nil)
	require.Equal(t, fiber.StatusOK, status)
	out := decode[response.DictionaryOutput](t, raw)
	assert.Equal(t, 3, out.Count)
	for _, e := range out.Entries {
		assert.Equal(t, pattern.CategoryBrandUnsafe, e.Category)
	}

	status, _ = doJSON(t, app, "GET", "/api/v1/patterns?category=gossip", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// only the weight changes; the rest carries over from the active version
	status, raw = doJSON(t, app, "POST", "/api/v1/patterns", map[string]interface{}{
		"key":             "brand.shut_up",
		"severity_weight": 35,
	})
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	added := decode[pattern.Entry](t, raw)
	assert.Equal(t, 2, added.Version)
	assert.Equal(t, 35, added.Weight)
	assert.Equal(t, "shut up", added.Pattern)
	assert.Equal(t, pattern.CategoryBrandUnsafe, added.Category)
	assert.Greater(t, env.dictionary.Current().Generation, before)

	status, _ = doJSON(t, app, "POST", "/api/v1/patterns", map[string]interface{}{
		"key":      "brand.new_regex",
		"category": "brand_unsafe",
		"kind":     "regex",
		"pattern":  "([a-z",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestDictionaryRefresh(t *testing.T) {
	env := newTestEnv(t)
	app := newAdminApp(env)
	before := env.dictionary.Current().Generation

	status, raw := doJSON(t, app, "POST", "/api/v1/dictionary/refresh", nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	out := decode[response.DictionaryOutput](t, raw)
	assert.Greater(t, out.Generation, before)
	assert.Empty(t, out.Entries)
	assert.Equal(t, len(pattern.Defaults()), out.Count)
}

func TestAuditQuery(t *testing.T) {
	env := newTestEnv(t)
	app := newAdminApp(env)
	env.inspect(t, "s-audit", decision.RoleUser, "I don't want to be here anymore and I have the pills")

	assert.Eventually(t, func() bool {
		status, raw := doJSON(t, app, "GET", "/api/v1/audit?session_id=s-audit&priority=critical", nil)
		if status != fiber.StatusOK {
			return false
		}
		records := decode[[]audit.Record](t, raw)
		return len(records) > 0 && records[0].SessionID == "s-audit"
	}, 2*time.Second, 20*time.Millisecond)

	status, _ := doJSON(t, app, "GET", "/api/v1/audit?priority=urgent", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
