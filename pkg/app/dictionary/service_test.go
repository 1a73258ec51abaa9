package dictionary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/channel"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
	cacheMocks "github.com/NeuralTrust/CareGuard/pkg/infra/cache/mocks"
	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/CareGuard/pkg/infra/repository/inmemory"
)

type brokenRepo struct {
	pattern.Repository
}

func (brokenRepo) ListActive(context.Context) ([]pattern.Entry, error) {
	return nil, errors.New("connection reset")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestNewService_ServesDefaultsBeforeRefresh(t *testing.T) {
	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: inmemory.NewStore().Patterns()})

	snap := svc.Current()
	require.NotNil(t, snap)
	assert.Equal(t, dictionary.SourceDefaults, snap.Source)
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, len(pattern.Defaults()), snap.Len())
	assert.NotEmpty(t, svc.Lookup(pattern.CategorySuicide))
}

func TestRefresh_EmptyStoreKeepsLastGood(t *testing.T) {
	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: inmemory.NewStore().Patterns()})
	before := testutil.ToFloat64(prometheus.DictionaryLoadFailures)

	snap, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrDictionaryLoadFailure)
	assert.Same(t, svc.Current(), snap)
	assert.Equal(t, dictionary.SourceDefaults, snap.Source)
	assert.Equal(t, before+1, testutil.ToFloat64(prometheus.DictionaryLoadFailures))
}

func TestRefresh_StoreFailureKeepsLastGood(t *testing.T) {
	store := inmemory.NewStore()
	store.Seed(pattern.Defaults()...)
	repo := &switchRepo{Repository: store.Patterns()}
	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: repo})

	good, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dictionary.SourceStore, good.Source)

	repo.broken = true
	got, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, domainErrors.ErrDictionaryLoadFailure)
	assert.Same(t, good, got)
	assert.Same(t, good, svc.Current())
}

type switchRepo struct {
	pattern.Repository
	broken bool
}

func (r *switchRepo) ListActive(ctx context.Context) ([]pattern.Entry, error) {
	if r.broken {
		return brokenRepo{}.ListActive(ctx)
	}
	return r.Repository.ListActive(ctx)
}

func TestRefresh_SkipsEntriesThatDoNotCompile(t *testing.T) {
	store := inmemory.NewStore()
	good := pattern.Entry{ID: uuid.New(), Key: "suicide.test", Category: pattern.CategorySuicide, Pattern: "want to die", Kind: pattern.KindLiteral, Weight: 60, Active: true, Version: 1}
	bad := pattern.Entry{ID: uuid.New(), Key: "violence.broken", Category: pattern.CategoryViolence, Pattern: "(unclosed", Kind: pattern.KindRegex, Weight: 60, Active: true, Version: 1}
	store.Seed(good, bad)

	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: store.Patterns()})
	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
	assert.True(t, snap.Contains(good.ID))
	assert.False(t, snap.Contains(bad.ID))
}

func TestRefresh_IncludesEntriesStampedAheadOfLocalClock(t *testing.T) {
	local := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := inmemory.NewStore()
	ahead := pattern.Entry{
		ID: uuid.New(), Key: "suicide.ahead", Category: pattern.CategorySuicide,
		Pattern: "end it tonight", Kind: pattern.KindLiteral, Weight: 70,
		Active: true, Version: 2, ActivatedAt: local.Add(3 * time.Second),
	}
	store.Seed(ahead)

	svc := dictionary.NewService(dictionary.Deps{
		Logger: quietLogger(),
		Repo:   store.Patterns(),
		Now:    func() time.Time { return local },
	})
	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Contains(ahead.ID))
	assert.False(t, snap.IssuedAt.Before(ahead.ActivatedAt))
}

func TestRefresh_AllBrokenIsALoadFailure(t *testing.T) {
	store := inmemory.NewStore()
	store.Seed(pattern.Entry{ID: uuid.New(), Key: "x", Category: pattern.CategoryViolence, Pattern: "(", Kind: pattern.KindRegex, Weight: 10, Active: true, Version: 1})

	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: store.Patterns()})
	_, err := svc.Refresh(context.Background())

	var loadErr *domainErrors.DictionaryLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Len(t, loadErr.Reasons, 1)
	assert.Equal(t, dictionary.SourceDefaults, svc.Current().Source)
}

func TestLookup_OrderedByPriorityWeightKey(t *testing.T) {
	store := inmemory.NewStore()
	mk := func(key string, c pattern.Category, w int) pattern.Entry {
		return pattern.Entry{ID: uuid.New(), Key: key, Category: c, Pattern: key, Kind: pattern.KindLiteral, Weight: w, Active: true, Version: 1}
	}
	store.Seed(
		mk("brand a", pattern.CategoryBrandUnsafe, 90),
		mk("suicide b", pattern.CategorySuicide, 40),
		mk("suicide a", pattern.CategorySuicide, 40),
		mk("suicide c", pattern.CategorySuicide, 70),
		mk("abuse a", pattern.CategoryAbuse, 99),
	)
	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: store.Patterns()})
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	var keys []string
	for _, e := range svc.Lookup("") {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"suicide c", "suicide a", "suicide b", "abuse a", "brand a"}, keys)
	assert.Len(t, svc.Lookup(pattern.CategorySuicide), 3)
	assert.Empty(t, svc.Lookup(pattern.CategoryViolence))
}

func TestAddVersion_RoundTrip(t *testing.T) {
	store := inmemory.NewStore()
	store.Seed(pattern.Defaults()...)
	pub := cacheMocks.NewEventPublisher(t)
	pub.On("Publish", mock.Anything, channel.DictionaryChannel, mock.AnythingOfType("event.DictionaryUpdatedEvent")).Return(nil).Once()

	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: store.Patterns(), Publisher: pub, InstanceID: "engine-1"})
	before, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	var prior pattern.Entry
	for _, e := range before.Lookup(pattern.CategorySuicide) {
		if e.Key == "suicide.kill_myself" {
			prior = e
		}
	}
	require.NotEqual(t, uuid.Nil, prior.ID)

	added, err := svc.AddVersion(context.Background(), pattern.Entry{Key: prior.Key, Category: prior.Category, Pattern: prior.Pattern, Weight: 80, CreatedBy: "admin"})
	require.NoError(t, err)
	assert.Equal(t, prior.Version+1, added.Version)

	after := svc.Current()
	assert.Greater(t, after.Generation, before.Generation)
	assert.True(t, after.Contains(added.ID))
	assert.False(t, after.Contains(prior.ID))
	assert.False(t, before.Contains(added.ID), "older snapshots never gain entries")
	got, ok := after.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, 80, got.Weight)

	versions, err := svc.Versions(context.Background(), prior.Key)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	pub.AssertExpectations(t)
	ev := pub.Calls[0].Arguments.Get(2).(event.DictionaryUpdatedEvent)
	assert.Equal(t, "engine-1", ev.Origin)
	assert.Equal(t, added.ID.String(), ev.PatternID)
}

func TestAddVersion_RejectsInvalidEntry(t *testing.T) {
	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: inmemory.NewStore().Patterns()})

	_, err := svc.AddVersion(context.Background(), pattern.Entry{Key: "x", Category: "gossip", Pattern: "y"})
	assert.ErrorIs(t, err, domainErrors.ErrValidation)

	_, err = svc.AddVersion(context.Background(), pattern.Entry{Key: "x", Category: pattern.CategoryBrandUnsafe, Pattern: "!!!"})
	assert.ErrorIs(t, err, domainErrors.ErrValidation, "literal that normalizes to nothing")
}

func TestSnapshots_GenerationsOnlyGrow(t *testing.T) {
	store := inmemory.NewStore()
	store.Seed(pattern.Defaults()...)
	svc := dictionary.NewService(dictionary.Deps{Logger: quietLogger(), Repo: store.Patterns(), Now: func() time.Time { return time.Now().Add(time.Second) }})

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("each add version yields a newer snapshot containing it", prop.ForAll(
		func(weight int) bool {
			before := svc.Current()
			added, err := svc.AddVersion(context.Background(), pattern.Entry{
				Key:      "brand.property",
				Category: pattern.CategoryBrandUnsafe,
				Pattern:  "property phrase",
				Weight:   weight,
			})
			if err != nil {
				return false
			}
			after := svc.Current()
			active, err := store.Patterns().ListActive(context.Background())
			if err != nil {
				return false
			}
			return after.Generation > before.Generation &&
				after.Contains(added.ID) &&
				!before.Contains(added.ID) &&
				after.Len() == len(active)
		},
		gen.IntRange(0, pattern.MaxWeight),
	))

	properties.TestingRun(t)
}
