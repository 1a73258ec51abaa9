package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
	"github.com/NeuralTrust/CareGuard/pkg/infra/resilience"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	guard := resilience.NewGuard(resilience.BreakerSettings{
		Name:             t.Name(),
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 100,
		Passthrough:      Passthrough,
	}, time.Second)
	return NewStore(db, guard), mock
}

func TestDecisionRepository_GetNotFound(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewDecisionRepository(store)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "moderation_decisions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), id)
	assert.True(t, domainErrors.IsNotFoundError(err))
	assert.False(t, errors.Is(err, domainErrors.ErrStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepository_SaveOutage(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewDecisionRepository(store)

	mock.ExpectExec(`INSERT INTO "moderation_decisions"`).
		WillReturnError(errors.New("connection reset by peer"))

	err := repo.Save(context.Background(), &decision.Decision{
		SessionID:   "s1",
		MessageRole: decision.RoleUser,
		RawTextHash: decision.HashText("hi"),
		Action:      decision.ActionAllow,
	})
	assert.True(t, errors.Is(err, domainErrors.ErrStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func duplicateKey(constraint string) error {
	return &pgconn.PgError{
		Severity:       "ERROR",
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		ConstraintName: constraint,
	}
}

func TestDecisionRepository_SaveDuplicateIsConflict(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewDecisionRepository(store)

	mock.ExpectExec(`INSERT INTO "moderation_decisions"`).
		WillReturnError(duplicateKey("moderation_decisions_pkey"))

	err := repo.Save(context.Background(), &decision.Decision{
		ID:          uuid.New(),
		SessionID:   "s1",
		MessageRole: decision.RoleUser,
		RawTextHash: decision.HashText("hi"),
		Action:      decision.ActionAllow,
	})
	assert.ErrorIs(t, err, domainErrors.ErrPolicyConflict)
	assert.True(t, resilience.IsOutcome(err))
	assert.False(t, errors.Is(err, domainErrors.ErrStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepository_DuplicatesDoNotTripBreaker(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	guard := resilience.NewGuard(resilience.BreakerSettings{
		Name:             t.Name(),
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 2,
		Passthrough:      Passthrough,
	}, time.Second)
	repo := NewDecisionRepository(NewStore(db, guard))

	d := &decision.Decision{
		ID:          uuid.New(),
		SessionID:   "s1",
		MessageRole: decision.RoleUser,
		RawTextHash: decision.HashText("hi"),
		Action:      decision.ActionAllow,
	}
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`INSERT INTO "moderation_decisions"`).
			WillReturnError(duplicateKey("moderation_decisions_pkey"))
		assert.ErrorIs(t, repo.Save(context.Background(), d), domainErrors.ErrPolicyConflict)
	}

	mock.ExpectExec(`INSERT INTO "moderation_decisions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Save(context.Background(), d))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepository_CreateSecondOpenAlertIsConflict(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewAlertRepository(store)
	a := alert.New("s1", uuid.New(), pattern.CategorySuicide, 90, 5*time.Minute, time.Now())

	mock.ExpectExec(`INSERT INTO "crisis_alerts"`).
		WillReturnError(duplicateKey("idx_crisis_alerts_one_open_per_session"))

	err := repo.Create(context.Background(), a)
	assert.ErrorIs(t, err, domainErrors.ErrPolicyConflict)
	assert.False(t, errors.Is(err, domainErrors.ErrStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(duplicateKey("x")))
	assert.False(t, isDuplicateKey(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isDuplicateKey(errors.New("connection reset by peer")))
	assert.False(t, isDuplicateKey(nil))
}

func TestAlertRepository_UpdateBumpsRevision(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewAlertRepository(store)
	a := alert.New("s1", uuid.New(), pattern.CategorySuicide, 90, 5*time.Minute, time.Now())
	a.Revision = 2

	mock.ExpectExec(`UPDATE "crisis_alerts" SET .* WHERE id = \$\d+ AND revision = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), a, 2))
	assert.Equal(t, 3, a.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepository_UpdateStale(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewAlertRepository(store)
	a := alert.New("s1", uuid.New(), pattern.CategorySuicide, 90, 5*time.Minute, time.Now())

	mock.ExpectExec(`UPDATE "crisis_alerts"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "crisis_alerts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := repo.Update(context.Background(), a, 0)
	assert.ErrorIs(t, err, alert.ErrStaleRevision)
	assert.Equal(t, 0, a.Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepository_FindLatestBySessionNone(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewAlertRepository(store)

	mock.ExpectQuery(`SELECT \* FROM "crisis_alerts" WHERE session_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	a, err := repo.FindLatestBySession(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatternRepository_AddVersionSupersedesActive(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewPatternRepository(store)
	priorID := uuid.New()
	activated := time.Now().Add(-time.Hour)
	dbNow := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT now\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow(dbNow))
	mock.ExpectQuery(`SELECT \* FROM "pattern_entries" WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "key", "category", "subtype", "pattern", "kind", "severity_weight",
			"active", "version", "activated_at", "created_at",
		}).AddRow(
			priorID, "suicide.end_it_all", "suicide", "", "end it all", "literal", 55,
			true, 2, activated, activated,
		))
	mock.ExpectExec(`UPDATE "pattern_entries" SET .*"active"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "pattern_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.AddVersion(context.Background(), pattern.Entry{Key: "suicide.end_it_all", Weight: 50})
	require.NoError(t, err)
	assert.Equal(t, 3, created.Version)
	assert.Equal(t, 50, created.Weight)
	assert.Equal(t, "end it all", created.Pattern)
	assert.True(t, created.Active)
	assert.NotEqual(t, priorID, created.ID)
	assert.Equal(t, dbNow, created.ActivatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatternRepository_AddVersionRejectsInvalid(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewPatternRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT now\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow(time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "pattern_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) FROM "pattern_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectRollback()

	_, err := repo.AddVersion(context.Background(), pattern.Entry{
		Key:      "violence.bad",
		Category: pattern.CategoryViolence,
		Kind:     pattern.KindRegex,
		Pattern:  "(",
		Weight:   30,
	})
	assert.True(t, errors.Is(err, domainErrors.ErrValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatternRepository_AddVersionRaceIsConflict(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewPatternRepository(store)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT now\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow(time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "pattern_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) FROM "pattern_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO "pattern_entries"`).
		WillReturnError(duplicateKey("pattern_entries_key_version_key"))
	mock.ExpectRollback()

	_, err := repo.AddVersion(context.Background(), pattern.Entry{
		Key:      "violence.new_key",
		Category: pattern.CategoryViolence,
		Kind:     pattern.KindLiteral,
		Pattern:  "hurt them",
		Weight:   30,
	})
	assert.ErrorIs(t, err, domainErrors.ErrPolicyConflict)
	assert.False(t, errors.Is(err, domainErrors.ErrStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalRepository_UpdateStatusConflict(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewProposalRepository(store)

	mock.ExpectExec(`UPDATE "weight_proposals"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), &verdict.Proposal{ID: uuid.New(), Status: verdict.ProposalApproved})
	assert.True(t, errors.Is(err, domainErrors.ErrPolicyConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_AppendIgnoresDuplicates(t *testing.T) {
	store, mock := newTestStore(t)
	repo := NewAuditRepository(store)

	mock.ExpectExec(`INSERT INTO "audit_records" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), []audit.Record{{
		ID:        uuid.New(),
		Component: audit.ComponentPipeline,
		EventType: "decision.recorded",
		Priority:  audit.PriorityNormal,
		CreatedAt: time.Now(),
	}})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
