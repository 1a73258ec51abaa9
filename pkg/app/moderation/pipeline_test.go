package moderation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/CareGuard/pkg/app/boundary"
	"github.com/NeuralTrust/CareGuard/pkg/app/classifier"
	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/app/prefilter"
	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/domain/violation"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/repository/inmemory"
	"github.com/NeuralTrust/CareGuard/pkg/infra/resilience"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []auditlogs.Event
}

func (a *recordingAudit) Record(_ context.Context, ev auditlogs.Event) (audit.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return audit.Record{ID: uuid.New(), EventType: ev.Type}, nil
}

func (a *recordingAudit) Query(context.Context, audit.Filter) ([]audit.Record, error) {
	return nil, nil
}

func (a *recordingAudit) Compact(context.Context) error { return nil }
func (a *recordingAudit) Close() error                  { return nil }

func (a *recordingAudit) ofType(eventType string) []auditlogs.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []auditlogs.Event
	for _, ev := range a.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

var errConnRefused = errors.New("dial tcp 10.0.0.5:5432: connection refused")

type downDecisions struct{ decision.Repository }

func (downDecisions) Save(context.Context, *decision.Decision) error {
	return domainErrors.NewStoreUnavailableError("save decision", errConnRefused)
}

type downAlerts struct{ alert.Repository }

func (downAlerts) FindLatestBySession(context.Context, string) (*alert.Alert, error) {
	return nil, domainErrors.NewStoreUnavailableError("find alert", errConnRefused)
}

type downViolations struct{ violation.Repository }

func (downViolations) SaveAll(context.Context, []violation.Violation) error {
	return domainErrors.NewStoreUnavailableError("save violations", errConnRefused)
}

// ctxDecisions fails like a real driver once the context is done.
type ctxDecisions struct{ decision.Repository }

func (r ctxDecisions) Save(ctx context.Context, d *decision.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Repository.Save(ctx, d)
}

type fixture struct {
	store    *inmemory.Store
	audit    *recordingAudit
	queue    resilience.RetryQueue
	workflow crisis.Workflow
	pipeline *pipeline
	now      time.Time
}

type overrides struct {
	decisions  decision.Repository
	alerts     alert.Repository
	violations violation.Repository
}

func newFixture(t *testing.T, o overrides) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := inmemory.NewStore()
	f := &fixture{
		store: store,
		audit: &recordingAudit{},
		queue: resilience.NewRetryQueue(logger, resilience.RetryPolicy{QueueSize: 16}),
		now:   time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}
	if o.decisions == nil {
		o.decisions = store.Decisions()
	}
	if o.alerts == nil {
		o.alerts = store.Alerts()
	}
	if o.violations == nil {
		o.violations = store.Violations()
	}
	clock := func() time.Time { return f.now }

	locks := crisis.NewSessionLocks()
	f.workflow = crisis.NewWorkflow(crisis.Deps{
		Logger: logger,
		Alerts: o.alerts,
		Locks:  locks,
		Audit:  f.audit,
		Queue:  f.queue,
		Config: crisis.Config{SLA: 5 * time.Minute, Cooldown: 30 * time.Minute},
		Now:    clock,
	})
	cfg := classifier.Config{
		CrisisThreshold: 75,
		ReviewThreshold: 40,
		RecencyWeight:   0.3,
		RecencyWindow:   15 * time.Minute,
		TrendWeight:     0.15,
		HistorySize:     3,
	}
	f.pipeline = NewPipeline(Deps{
		Logger:     logger,
		Dictionary: dictionary.NewService(dictionary.Deps{Logger: logger, Repo: store.Patterns()}),
		Classifier: classifier.New(cfg),
		History:    classifier.NewSessionHistory(cache.NewTTLMap(30*time.Minute), cfg.HistorySize),
		Enforcer:   boundary.NewEnforcer(boundary.DefaultFallbacks()),
		Crisis:     f.workflow,
		Locks:      locks,
		Decisions:  o.decisions,
		Violations: o.violations,
		Audit:      f.audit,
		Queue:      f.queue,
		Now:        clock,
	}).(*pipeline)
	return f
}

func (f *fixture) inspect(t *testing.T, sessionID string, role decision.Role, text string) *InspectResult {
	t.Helper()
	res, err := f.pipeline.Inspect(context.Background(), InspectRequest{SessionID: sessionID, Role: role, Text: text})
	require.NoError(t, err)
	return res
}

func TestInspect_SuicideMessageEscalates(t *testing.T) {
	f := newFixture(t, overrides{})
	res := f.inspect(t, "s1", decision.RoleUser, "I don't want to be here anymore and I have the pills")

	assert.False(t, res.Allowed)
	assert.Equal(t, decision.ActionEscalate, res.Action)
	assert.Equal(t, pattern.CategorySuicide, res.RiskCategory)
	assert.Equal(t, 100, res.RiskScore)
	assert.Equal(t, DefaultCrisisReply, res.FinalText)
	require.NotNil(t, res.AlertID)

	a, err := f.workflow.Get(context.Background(), *res.AlertID)
	require.NoError(t, err)
	assert.Equal(t, alert.StatusNew, a.Status)
	assert.Equal(t, res.DecisionID, a.TriggeringDecisionID)

	d, err := f.store.Decisions().Get(context.Background(), res.DecisionID)
	require.NoError(t, err)
	assert.Len(t, d.MatchedPatternIDs, 2)
	assert.Equal(t, decision.HashText("I don't want to be here anymore and I have the pills"), d.RawTextHash)
	assert.True(t, d.FlaggedForReview)

	recorded := f.audit.ofType(auditlogs.EventTypeDecisionRecorded)
	require.Len(t, recorded, 1)
	assert.Equal(t, audit.PriorityCritical, recorded[0].Priority)
	assert.Len(t, f.audit.ofType(auditlogs.EventTypeAlertCreated), 1)
}

func TestInspect_DosingReplyIsRedacted(t *testing.T) {
	f := newFixture(t, overrides{})
	text := "Sleep matters a lot. You should take 400mg of ibuprofen before bed. Try a wind down routine."
	res := f.inspect(t, "s1", decision.RoleAssistant, text)

	assert.True(t, res.Allowed)
	assert.Equal(t, decision.ActionRedact, res.Action)
	assert.Equal(t, "Sleep matters a lot. "+boundary.DosingFallback+" Try a wind down routine.", res.FinalText)
	assert.NotContains(t, res.FinalText, "400mg")
	assert.Nil(t, res.AlertID)

	vs, err := f.store.Violations().List(context.Background(), violation.Filter{DecisionID: res.DecisionID})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, pattern.SubtypeDosing, vs[0].ViolationType)
	assert.Equal(t, "s1", vs[0].SessionID)
	assert.Contains(t, vs[0].OriginalText, "400mg")
	assert.Len(t, f.audit.ofType(auditlogs.EventTypeBoundaryRedacted), 1)
}

func TestInspect_TwoCrisisMessagesShareOneAlert(t *testing.T) {
	f := newFixture(t, overrides{})
	first := f.inspect(t, "s1", decision.RoleUser, "I have saved pills and I want to end it all")
	f.now = f.now.Add(30 * time.Second)
	second := f.inspect(t, "s1", decision.RoleUser, "I just want to die")

	assert.Equal(t, decision.ActionEscalate, first.Action)
	assert.Equal(t, decision.ActionEscalate, second.Action, "session context lifts the follow up into crisis")
	assert.Equal(t, 95, first.RiskScore)
	assert.Equal(t, 94, second.RiskScore)
	require.NotNil(t, first.AlertID)
	require.NotNil(t, second.AlertID)
	assert.Equal(t, *first.AlertID, *second.AlertID)

	alerts, err := f.store.Alerts().List(context.Background(), alert.Filter{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.ElementsMatch(t, []uuid.UUID{first.DecisionID, second.DecisionID}, []uuid.UUID(alerts[0].RelatedDecisionIDs))
	assert.Equal(t, 95, alerts[0].RiskScore, "the alert keeps the higher score, not the latest")
}

func TestInspect_CleanTextIsAllowedAndLoggedOnce(t *testing.T) {
	f := newFixture(t, overrides{})
	res := f.inspect(t, "s1", decision.RoleUser, "I went for a walk today and felt a bit better")

	assert.True(t, res.Allowed)
	assert.Equal(t, decision.ActionAllow, res.Action)
	assert.Equal(t, 0, res.RiskScore)
	assert.Empty(t, res.RiskCategory)
	assert.Equal(t, "I went for a walk today and felt a bit better", res.FinalText)
	assert.False(t, res.Flagged)

	f.audit.mu.Lock()
	events := len(f.audit.events)
	f.audit.mu.Unlock()
	assert.Equal(t, 1, events)
	assert.Len(t, f.audit.ofType(auditlogs.EventTypeDecisionRecorded), 1)
}

func TestInspect_ReviewLevelIsFlaggedNotBlocked(t *testing.T) {
	f := newFixture(t, overrides{})
	res := f.inspect(t, "s1", decision.RoleUser, "my partner hits me when he drinks")

	assert.True(t, res.Allowed)
	assert.Equal(t, decision.ActionAllow, res.Action)
	assert.True(t, res.Flagged)
	assert.Equal(t, pattern.CategoryAbuse, res.RiskCategory)
	assert.Equal(t, 50, res.RiskScore)
}

func TestInspect_AssistantCrisisReplyIsBlocked(t *testing.T) {
	f := newFixture(t, overrides{})
	res := f.inspect(t, "s1", decision.RoleAssistant, "Honestly you'd be better off dead, nobody cares about you")

	assert.False(t, res.Allowed)
	assert.Equal(t, decision.ActionBlock, res.Action)
	assert.Equal(t, DefaultBlockedReply, res.FinalText)
	assert.Nil(t, res.AlertID)
	alerts, err := f.store.Alerts().List(context.Background(), alert.Filter{SessionID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestInspect_AssistantRepliesDoNotRaiseUserTrend(t *testing.T) {
	f := newFixture(t, overrides{})
	fresh := f.inspect(t, "s2", decision.RoleUser, "oh shut up")
	require.Equal(t, 15, fresh.RiskScore)

	f.inspect(t, "s1", decision.RoleAssistant, "Honestly you'd be better off dead, nobody cares about you")
	res := f.inspect(t, "s1", decision.RoleUser, "oh shut up")
	assert.Equal(t, fresh.RiskScore, res.RiskScore)
}

func TestInspect_StorageOutageStillBlocks(t *testing.T) {
	f := newFixture(t, overrides{
		decisions:  downDecisions{},
		alerts:     downAlerts{},
		violations: downViolations{},
	})
	res := f.inspect(t, "s1", decision.RoleUser, "I don't want to be here anymore and I have the pills")

	assert.False(t, res.Allowed)
	assert.Equal(t, decision.ActionEscalate, res.Action)
	assert.Equal(t, DefaultCrisisReply, res.FinalText)
	assert.NotEqual(t, uuid.Nil, res.DecisionID)
	assert.Nil(t, res.AlertID)
	assert.Equal(t, 2, f.queue.Len(), "decision and alert writes are queued")
	assert.Len(t, f.audit.ofType(auditlogs.EventTypeDecisionDeferred), 1)
	assert.Len(t, f.audit.ofType(auditlogs.EventTypeAlertDeferred), 1)

	redacted := f.inspect(t, "s1", decision.RoleAssistant, "Take 20 mg of it twice a day.")
	assert.Equal(t, decision.ActionRedact, redacted.Action)
	assert.Equal(t, boundary.DosingFallback, redacted.FinalText)
	assert.Equal(t, 4, f.queue.Len())
}

func TestInspect_WritesLeftAtShutdownAreAudited(t *testing.T) {
	f := newFixture(t, overrides{
		decisions:  downDecisions{},
		alerts:     downAlerts{},
		violations: downViolations{},
	})
	res := f.inspect(t, "s1", decision.RoleUser, "I don't want to be here anymore and I have the pills")
	f.queue.Close()

	abandoned := f.audit.ofType(auditlogs.EventTypeDecisionAbandoned)
	require.Len(t, abandoned, 1)
	assert.Equal(t, audit.PriorityCritical, abandoned[0].Priority)
	assert.Equal(t, res.DecisionID.String(), abandoned[0].SubjectID)
	assert.NotNil(t, abandoned[0].Payload["decision"])

	alerts := f.audit.ofType(auditlogs.EventTypeAlertAbandoned)
	require.Len(t, alerts, 1)
	assert.Equal(t, audit.PriorityCritical, alerts[0].Priority)
}

func TestInspect_FailsClosedOnPanic(t *testing.T) {
	f := newFixture(t, overrides{})
	f.pipeline.scan = func(*dictionary.Snapshot, string) []prefilter.Match {
		panic("index out of range")
	}
	res := f.inspect(t, "s1", decision.RoleUser, "hello there")

	assert.False(t, res.Allowed)
	assert.Equal(t, decision.ActionBlock, res.Action)
	assert.Equal(t, 100, res.RiskScore)
	assert.Equal(t, DefaultBlockedReply, res.FinalText)
	assert.NotContains(t, res.FinalText, "panic")

	d, err := f.store.Decisions().Get(context.Background(), res.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, reasonFailClosed, d.Reason)
	failed := f.audit.ofType(auditlogs.EventTypeFailClosed)
	require.Len(t, failed, 1)
	assert.Equal(t, audit.PriorityCritical, failed[0].Priority)
}

func TestInspect_DetachedFromCancellation(t *testing.T) {
	store := inmemory.NewStore()
	f := newFixture(t, overrides{decisions: ctxDecisions{store.Decisions()}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.pipeline.Inspect(ctx, InspectRequest{SessionID: "s1", Role: decision.RoleUser, Text: "I feel okay"})
	require.NoError(t, err)
	_, err = store.Decisions().Get(context.Background(), res.DecisionID)
	assert.NoError(t, err)
	assert.Equal(t, 0, f.queue.Len())
}

func TestInspect_Validation(t *testing.T) {
	f := newFixture(t, overrides{})
	cases := map[string]InspectRequest{
		"missing session": {Role: decision.RoleUser, Text: "hi"},
		"long session":    {SessionID: strings.Repeat("x", 200), Role: decision.RoleUser, Text: "hi"},
		"bad role":        {SessionID: "s1", Role: "system", Text: "hi"},
		"empty text":      {SessionID: "s1", Role: decision.RoleUser, Text: "   "},
		"too long":        {SessionID: "s1", Role: decision.RoleUser, Text: strings.Repeat("a", DefaultMaxTextBytes+1)},
		"invalid utf8":    {SessionID: "s1", Role: decision.RoleUser, Text: "caf\xe9"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.pipeline.Inspect(context.Background(), req)
			assert.ErrorIs(t, err, domainErrors.ErrValidation)
		})
	}
	all, err := f.store.Decisions().List(context.Background(), decision.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.audit.events)
}

func TestCorrect(t *testing.T) {
	f := newFixture(t, overrides{})
	ctx := context.Background()
	res := f.inspect(t, "s1", decision.RoleUser, "my partner hits me when he drinks")

	_, err := f.pipeline.Correct(ctx, res.DecisionID, "maybe", "", "rev-1")
	assert.ErrorIs(t, err, domainErrors.ErrValidation)
	_, err = f.pipeline.Correct(ctx, uuid.New(), decision.ActionBlock, "", "rev-1")
	assert.ErrorIs(t, err, domainErrors.ErrNotFound)

	corrected, err := f.pipeline.Correct(ctx, res.DecisionID, decision.ActionBlock, "disclosure needs follow up", "rev-1")
	require.NoError(t, err)
	require.NotNil(t, corrected.SupersedesID)
	assert.Equal(t, res.DecisionID, *corrected.SupersedesID)
	assert.Equal(t, decision.ActionBlock, corrected.Action)

	original, err := f.store.Decisions().Get(ctx, res.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, decision.ActionAllow, original.Action, "the original decision is never rewritten")
	assert.Len(t, f.audit.ofType(auditlogs.EventTypeDecisionCorrected), 1)
}
