package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitkit/internal/modules/session/domain"
	"habitkit/internal/modules/session/service"
	"habitkit/internal/platform/clock"
	apperrors "habitkit/internal/platform/errors"
	"habitkit/internal/platform/logging"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newLifecycle(store *memStore) *service.LifecycleService {
	clk := clock.NewStepper(base.Add(time.Minute), time.Minute)
	return service.NewLifecycleService(clk, store, reflections{store}, logging.Discard())
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := newLifecycle(store)
	ctx := context.Background()

	first, err := svc.Start(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, service.StartCreated, first.Outcome)
	assert.True(t, first.Session.InProgress())

	second, err := svc.Start(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, service.StartExisting, second.Outcome)
	assert.Equal(t, first.Session.ID, second.Session.ID)
	assert.Equal(t, first.Session.StartedAt, second.Session.StartedAt)
	assert.Len(t, store.all(), 1)
}

func TestStartClearsStaleRowsForThePairOnly(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	done := base.Add(-time.Hour)
	store.put(domain.Session{UserID: "u1", ChallengeID: "c1", StartedAt: base.Add(-2 * time.Hour), CompletedAt: &done, IsActive: true})
	store.put(domain.Session{UserID: "u1", ChallengeID: "c1", StartedAt: base.Add(-3 * time.Hour), IsActive: false})
	other := store.put(domain.Session{UserID: "u1", ChallengeID: "c2", StartedAt: base, IsActive: false, CompletedAt: &done})

	got, err := newLifecycle(store).Start(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, service.StartCreated, got.Outcome)

	rows := store.all()
	require.Len(t, rows, 2)
	ids := []string{rows[0].ID, rows[1].ID}
	assert.Contains(t, ids, other.ID)
	assert.Contains(t, ids, got.Session.ID)
}

func TestConcurrentStartsConvergeOnOneSession(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	var barrier sync.WaitGroup
	barrier.Add(2)
	store.beforeInsert = func() {
		barrier.Done()
		barrier.Wait()
	}
	svc := newLifecycle(store)

	results := make([]service.StartResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Start(context.Background(), "u1", "c1")
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Session.ID, results[1].Session.ID)
	outcomes := []service.StartOutcome{results[0].Outcome, results[1].Outcome}
	assert.ElementsMatch(t, []service.StartOutcome{service.StartCreated, service.StartJoinedRace}, outcomes)
	assert.Len(t, store.all(), 1)
}

func TestStartReportsConflictWhenWinnerVanishes(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.failOn("Insert", apperrors.ErrUniqueViolation)

	_, err := newLifecycle(store).Start(context.Background(), "u1", "c1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.True(t, apperrors.Retryable(err))
}

func TestStartPropagatesStoreFailures(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.failOn("FindActive", apperrors.ErrStoreUnavailable)

	_, err := newLifecycle(store).Start(context.Background(), "u1", "c1")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.Empty(t, store.all())
}

func TestCompleteRecordsReflectionAndDeactivates(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := newLifecycle(store)
	ctx := context.Background()
	started, err := svc.Start(ctx, "u1", "c1")
	require.NoError(t, err)

	res, err := svc.Complete(ctx, "u1", "c1", true, map[string]string{" How? ": " fine ", "Skip": "  "})
	require.NoError(t, err)
	assert.True(t, res.SessionDeactivated)
	assert.Equal(t, started.Session.ID, res.SessionID)
	assert.Equal(t, started.Session.ID, res.Reflection.SessionID)
	assert.Equal(t, map[string]string{"How?": "fine"}, res.Reflection.Answers)

	rows := store.all()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsActive)
	require.NotNil(t, rows[0].CompletedAt)
	assert.True(t, rows[0].PostedAnonymously)

	_, ok, err := svc.GetActive(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompleteRejectsEmptyAnswersWithoutWrites(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := newLifecycle(store)
	_, err := svc.Start(context.Background(), "u1", "c1")
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "u1", "c1", false, map[string]string{"q": " "})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Empty(t, store.allReflections())
	require.Len(t, store.all(), 1)
	assert.True(t, store.all()[0].InProgress())
}

func TestRepeatedAttemptsKeepOneRowPerPair(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := newLifecycle(store)
	ctx := context.Background()
	answers := map[string]string{"q": "a"}

	for range 3 {
		_, err := svc.Start(ctx, "u1", "c1")
		require.NoError(t, err)
		res, err := svc.Complete(ctx, "u1", "c1", false, answers)
		require.NoError(t, err)
		assert.True(t, res.SessionDeactivated)
	}
	assert.Len(t, store.all(), 1)
	assert.Len(t, store.allReflections(), 3)
}

func TestCompleteWithoutActiveSessionRecordsUnlinkedReflection(t *testing.T) {
	t.Parallel()
	store := newMemStore()

	res, err := newLifecycle(store).Complete(context.Background(), "u1", "c1", false, map[string]string{"q": "a"})
	require.NoError(t, err)
	assert.Empty(t, res.SessionID)
	assert.False(t, res.SessionDeactivated)
	assert.Empty(t, res.Reflection.SessionID)
	assert.Len(t, store.allReflections(), 1)
}

func TestCompleteLookupFailureStillRecordsReflection(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := newLifecycle(store)
	_, err := svc.Start(context.Background(), "u1", "c1")
	require.NoError(t, err)
	store.failOn("FindActive", errors.New("timeout"))

	res, err := svc.Complete(context.Background(), "u1", "c1", false, map[string]string{"q": "a"})
	require.NoError(t, err)
	assert.Empty(t, res.Reflection.SessionID)
	assert.False(t, res.SessionDeactivated)
}

func TestCompleteFailsWhenReflectionCannotBeSaved(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := newLifecycle(store)
	_, err := svc.Start(context.Background(), "u1", "c1")
	require.NoError(t, err)
	store.failOn("InsertReflection", apperrors.ErrStoreUnavailable)

	_, err = svc.Complete(context.Background(), "u1", "c1", false, map[string]string{"q": "a"})
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	require.Len(t, store.all(), 1)
	assert.True(t, store.all()[0].InProgress(), "session must stay active when nothing was recorded")
}

func TestCompleteSucceedsWhenDeactivationFails(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := newLifecycle(store)
	started, err := svc.Start(context.Background(), "u1", "c1")
	require.NoError(t, err)
	store.failOn("MarkCompleted", apperrors.ErrStoreUnavailable)

	res, err := svc.Complete(context.Background(), "u1", "c1", false, map[string]string{"q": "a"})
	require.NoError(t, err)
	assert.False(t, res.SessionDeactivated)
	assert.Equal(t, started.Session.ID, res.Reflection.SessionID)
	assert.True(t, store.all()[0].InProgress())
}

func TestCancelDeletesActiveRowAndToleratesMissing(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	svc := newLifecycle(store)
	ctx := context.Background()

	removed, err := svc.Cancel(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.Start(ctx, "u1", "c1")
	require.NoError(t, err)
	removed, err = svc.Cancel(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, store.all())

	again, err := svc.Start(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, service.StartCreated, again.Outcome)
}

func TestGetActivePicksNewestOfDuplicates(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.put(domain.Session{ID: "old", UserID: "u1", ChallengeID: "c1", StartedAt: base, IsActive: true})
	store.put(domain.Session{ID: "new", UserID: "u1", ChallengeID: "c1", StartedAt: base.Add(time.Hour), IsActive: true})

	got, ok, err := newLifecycle(store).GetActive(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.ID)
}
