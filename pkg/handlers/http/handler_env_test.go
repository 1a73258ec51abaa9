package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/CareGuard/pkg/app/boundary"
	"github.com/NeuralTrust/CareGuard/pkg/app/classifier"
	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/app/feedback"
	"github.com/NeuralTrust/CareGuard/pkg/app/moderation"
	"github.com/NeuralTrust/CareGuard/pkg/common"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/repository/inmemory"
	"github.com/NeuralTrust/CareGuard/pkg/infra/resilience"
)

// memQueue stands in for the Redis verdict list.
type memQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *memQueue) Push(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, id)
	return nil
}

func (q *memQueue) Pop(context.Context, time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", nil
	}
	id := q.items[0]
	q.items = q.items[1:]
	return id, nil
}

func (q *memQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

type testEnv struct {
	logger     *logrus.Logger
	store      *inmemory.Store
	audit      auditlogs.Service
	dictionary dictionary.Service
	workflow   crisis.Workflow
	pipeline   moderation.Pipeline
	feedback   feedback.Service
	queue      *memQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := inmemory.NewStore()
	store.Seed(pattern.Defaults()...)

	auditService, err := auditlogs.NewService(ctx, logger, store.Audit(), auditlogs.Options{
		WALDir:  t.TempDir(),
		Workers: 1,
		Retry:   resilience.RetryPolicy{QueueSize: 64, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = auditService.Close() })

	dict := dictionary.NewService(dictionary.Deps{Logger: logger, Repo: store.Patterns(), Audit: auditService})
	_, err = dict.Refresh(ctx)
	require.NoError(t, err)

	queue := resilience.NewRetryQueue(logger, resilience.RetryPolicy{QueueSize: 64})
	locks := crisis.NewSessionLocks()
	workflow := crisis.NewWorkflow(crisis.Deps{
		Logger: logger,
		Alerts: store.Alerts(),
		Locks:  locks,
		Feed:   crisis.NewFeed(),
		Audit:  auditService,
		Queue:  queue,
		Config: crisis.Config{SLA: 5 * time.Minute, Cooldown: 30 * time.Minute, MaxAttempts: 3},
	})

	cfg := classifier.Config{
		CrisisThreshold: 75,
		ReviewThreshold: 40,
		RecencyWeight:   0.3,
		RecencyWindow:   15 * time.Minute,
		TrendWeight:     0.15,
		HistorySize:     3,
	}
	pipeline := moderation.NewPipeline(moderation.Deps{
		Logger:     logger,
		Dictionary: dict,
		Classifier: classifier.New(cfg),
		History:    classifier.NewSessionHistory(cache.NewTTLMap(time.Hour), cfg.HistorySize),
		Enforcer:   boundary.NewEnforcer(boundary.DefaultFallbacks()),
		Crisis:     workflow,
		Locks:      locks,
		Decisions:  store.Decisions(),
		Violations: store.Violations(),
		Audit:      auditService,
		Queue:      queue,
	})

	verdictQueue := &memQueue{}
	fb := feedback.NewService(feedback.Deps{
		Logger:     logger,
		Verdicts:   store.Verdicts(),
		Proposals:  store.Proposals(),
		Decisions:  store.Decisions(),
		Dictionary: dict,
		Queue:      verdictQueue,
		Audit:      auditService,
		Config: feedback.Config{
			Rules:  feedback.Rules{MinSamples: 3, FalsePositiveCeiling: 0.5, ReductionStep: 0.2, CrisisWeightFloor: 50},
			Window: 24 * time.Hour,
		},
	})

	return &testEnv{
		logger:     logger,
		store:      store,
		audit:      auditService,
		dictionary: dict,
		workflow:   workflow,
		pipeline:   pipeline,
		feedback:   fb,
		queue:      verdictQueue,
	}
}

// asResponder stands in for the auth middleware.
func asResponder(id, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(string(common.ResponderContextKey), id)
		c.Locals(string(common.RoleContextKey), role)
		return c.Next()
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewReader([]byte(b))
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}
