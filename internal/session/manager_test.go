package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
	"github.com/navlock/navlock/internal/repositories/state"
)

func newTestManager(t *testing.T) (*Manager, *state.MemoryRepository, *fakeClock) {
	t.Helper()
	store := state.NewMemoryRepository()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m, err := New(context.Background(), store, logger)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	m.now = clock.Now
	return m, store, clock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestGrantUnlockAlwaysAskRecordsNothing(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)

	err := m.GrantUnlock(ctx, "example.com", "p1", models.LockModeAlwaysAsk, 0)
	require.NoError(t, err)

	assert.False(t, m.IsUnlocked(ctx, "example.com", "p1"))
	persisted, err := store.List(ctx, unlockKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestGrantUnlockTimedExpires(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t)

	err := m.GrantUnlock(ctx, "example.com", "p1", models.LockModeTimed, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, m.IsUnlocked(ctx, "example.com", "p1"))

	clock.Advance(9 * time.Minute)
	assert.True(t, m.IsUnlocked(ctx, "example.com", "p1"))

	clock.Advance(2 * time.Minute)
	assert.False(t, m.IsUnlocked(ctx, "example.com", "p1"))
	// lazy eviction should have removed the persisted record too
	persisted, err := m.store.List(ctx, unlockKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestGrantUnlockSessionScopedNeverExpires(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t)

	err := m.GrantUnlock(ctx, "example.com", "p1", models.LockModeSession, 0)
	require.NoError(t, err)

	clock.Advance(1000 * time.Hour)
	assert.True(t, m.IsUnlocked(ctx, "example.com", "p1"))

	evicted := m.ClearExpired(ctx)
	assert.Zero(t, evicted)
	assert.True(t, m.IsUnlocked(ctx, "example.com", "p1"))
}

func TestUnlockIsScopedToDomainAndProfile(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	require.NoError(t, m.GrantUnlock(ctx, "example.com", "p1", models.LockModeSession, 0))

	assert.True(t, m.IsUnlocked(ctx, "example.com", "p1"))
	assert.False(t, m.IsUnlocked(ctx, "example.com", "p2"))
	assert.False(t, m.IsUnlocked(ctx, "other.com", "p1"))
}

func TestSnoozeExpires(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t)

	require.NoError(t, m.Snooze(ctx, "example.com", "p1", 5*time.Minute))
	assert.True(t, m.IsSnoozed(ctx, "example.com", "p1"))

	clock.Advance(6 * time.Minute)
	assert.False(t, m.IsSnoozed(ctx, "example.com", "p1"))
}

func TestSnoozeReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t)

	require.NoError(t, m.Snooze(ctx, "example.com", "p1", 5*time.Minute))
	require.NoError(t, m.Snooze(ctx, "example.com", "p1", 30*time.Minute))

	clock.Advance(10 * time.Minute)
	assert.True(t, m.IsSnoozed(ctx, "example.com", "p1"))
}

func TestLockRevokesGrantAndSnooze(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)

	require.NoError(t, m.GrantUnlock(ctx, "example.com", "p1", models.LockModeSession, 0))
	require.NoError(t, m.Snooze(ctx, "example.com", "p1", time.Hour))

	require.NoError(t, m.Lock(ctx, "example.com", "p1"))

	assert.False(t, m.IsUnlocked(ctx, "example.com", "p1"))
	assert.False(t, m.IsSnoozed(ctx, "example.com", "p1"))
	unlocks, err := store.List(ctx, unlockKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, unlocks)
	snoozes, err := store.List(ctx, snoozeKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, snoozes)
}

func TestClearExpiredEvictsOnlyStale(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(t)

	require.NoError(t, m.GrantUnlock(ctx, "stale.com", "p1", models.LockModeTimed, 5*time.Minute))
	require.NoError(t, m.GrantUnlock(ctx, "fresh.com", "p1", models.LockModeTimed, time.Hour))
	require.NoError(t, m.GrantUnlock(ctx, "forever.com", "p1", models.LockModeSession, 0))
	require.NoError(t, m.Snooze(ctx, "stale.com", "p1", 5*time.Minute))

	clock.Advance(10 * time.Minute)
	evicted := m.ClearExpired(ctx)
	assert.Equal(t, 2, evicted)

	assert.False(t, m.IsUnlocked(ctx, "stale.com", "p1"))
	assert.True(t, m.IsUnlocked(ctx, "fresh.com", "p1"))
	assert.True(t, m.IsUnlocked(ctx, "forever.com", "p1"))
	assert.False(t, m.IsSnoozed(ctx, "stale.com", "p1"))
}

func TestRestoreSkipsSessionScopedGrants(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryRepository()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	first, err := New(ctx, store, logger)
	require.NoError(t, err)
	require.NoError(t, first.GrantUnlock(ctx, "timed.com", "p1", models.LockModeTimed, time.Hour))
	require.NoError(t, first.GrantUnlock(ctx, "forever.com", "p1", models.LockModeSession, 0))
	require.NoError(t, first.Snooze(ctx, "snoozed.com", "p1", time.Hour))

	// a fresh manager over the same store simulates a restart
	second, err := New(ctx, store, logger)
	require.NoError(t, err)

	assert.True(t, second.IsUnlocked(ctx, "timed.com", "p1"))
	assert.False(t, second.IsUnlocked(ctx, "forever.com", "p1"))
	assert.True(t, second.IsSnoozed(ctx, "snoozed.com", "p1"))
}

func TestRestoreDropsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryRepository()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, store.Set(ctx, unlockKeyPrefix+"bad.com|p1", []byte("not json")))

	m, err := New(ctx, store, logger)
	require.NoError(t, err)

	assert.False(t, m.IsUnlocked(ctx, "bad.com", "p1"))
	_, err = store.Get(ctx, unlockKeyPrefix+"bad.com|p1")
	assert.Error(t, err)
}
