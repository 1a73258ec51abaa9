package http

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/CareGuard/pkg/app/boundary"
	"github.com/NeuralTrust/CareGuard/pkg/app/moderation"
	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

func newInspectApp(env *testEnv) *fiber.App {
	app := fiber.New()
	app.Post("/v1/inspect", NewInspectHandler(env.logger, env.pipeline).Handle)
	return app
}

func TestInspect_CrisisMessageOpensAlert(t *testing.T) {
	env := newTestEnv(t)
	app := newInspectApp(env)

	status, raw := doJSON(t, app, "POST", "/v1/inspect", map[string]string{
		"session_id": "s-crisis",
		"role":       "user",
		"text":       "I don't want to be here anymore and I have the pills",
	})
	require.Equal(t, fiber.StatusOK, status, string(raw))

	res := decode[moderation.InspectResult](t, raw)
	assert.False(t, res.Allowed)
	assert.Equal(t, decision.ActionEscalate, res.Action)
	assert.Equal(t, pattern.CategorySuicide, res.RiskCategory)
	assert.Equal(t, 100, res.RiskScore)
	require.NotNil(t, res.AlertID)

	a, err := env.workflow.Get(context.Background(), *res.AlertID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusNew, a.Status)
	assert.Equal(t, "s-crisis", a.SessionID)
}

func TestInspect_CleanMessagePassesThrough(t *testing.T) {
	env := newTestEnv(t)
	app := newInspectApp(env)

	text := "I slept seven hours and went for a walk this morning."
	status, raw := doJSON(t, app, "POST", "/v1/inspect", map[string]string{
		"session_id": "s-clean",
		"role":       "user",
		"text":       text,
	})
	require.Equal(t, fiber.StatusOK, status, string(raw))

	res := decode[moderation.InspectResult](t, raw)
	assert.True(t, res.Allowed)
	assert.Equal(t, decision.ActionAllow, res.Action)
	assert.Equal(t, text, res.FinalText)
	assert.Empty(t, res.RiskCategory)
	assert.Nil(t, res.AlertID)

	stored, err := env.store.Decisions().Get(context.Background(), res.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, "s-clean", stored.SessionID)
}

func TestInspect_AssistantDosingIsRedacted(t *testing.T) {
	env := newTestEnv(t)
	app := newInspectApp(env)

	status, raw := doJSON(t, app, "POST", "/v1/inspect", map[string]string{
		"session_id": "s-dose",
		"role":       "assistant",
		"text":       "Sleep matters a lot. You should take 400mg of ibuprofen before bed. Try a wind down routine.",
	})
	require.Equal(t, fiber.StatusOK, status, string(raw))

	res := decode[moderation.InspectResult](t, raw)
	assert.True(t, res.Allowed)
	assert.Equal(t, decision.ActionRedact, res.Action)
	assert.Equal(t, "Sleep matters a lot. "+boundary.DosingFallback+" Try a wind down routine.", res.FinalText)
}

func TestInspect_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	app := newInspectApp(env)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed", body: `{"session_id":`, want: "body"},
		{name: "not an object", body: `["text"]`, want: "body"},
		{name: "missing text", body: `{"session_id":"s1","role":"user"}`, want: "text"},
		{name: "unknown role", body: `{"session_id":"s1","role":"coach","text":"hi"}`, want: "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw := doJSON(t, app, "POST", "/v1/inspect", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Contains(t, string(raw), tt.want)
		})
	}
}
