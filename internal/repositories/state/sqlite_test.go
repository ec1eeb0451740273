package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/repositories/state"
	"github.com/navlock/navlock/internal/storage"
)

func newRepo(t *testing.T) (state.Repository, context.Context) {
	t.Helper()
	ctx := context.Background()
	m, err := storage.NewSQLiteManager(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m.State(m.Conn()), ctx
}

func TestSetGet_Upserts(t *testing.T) {
	repo, ctx := newRepo(t)

	require.NoError(t, repo.Set(ctx, "unlock:example.com|p1", []byte("v1")))
	require.NoError(t, repo.Set(ctx, "unlock:example.com|p1", []byte("v2")))

	got, err := repo.Get(ctx, "unlock:example.com|p1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestGet_Missing(t *testing.T) {
	repo, ctx := newRepo(t)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_AbsentKeyIsNotAnError(t *testing.T) {
	repo, ctx := newRepo(t)

	assert.NoError(t, repo.Delete(ctx, "missing"))

	require.NoError(t, repo.Set(ctx, "k", []byte("v")))
	require.NoError(t, repo.Delete(ctx, "k"))
	_, err := repo.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_FiltersByPrefix(t *testing.T) {
	repo, ctx := newRepo(t)

	require.NoError(t, repo.Set(ctx, "unlock:a|p1", []byte("1")))
	require.NoError(t, repo.Set(ctx, "unlock:b|p1", []byte("2")))
	require.NoError(t, repo.Set(ctx, "snooze:a|p1", []byte("3")))

	got, err := repo.List(ctx, "unlock:")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "unlock:a|p1")
	assert.Contains(t, got, "unlock:b|p1")
}

func TestClear_RemovesEverything(t *testing.T) {
	repo, ctx := newRepo(t)

	require.NoError(t, repo.Set(ctx, "a", []byte("1")))
	require.NoError(t, repo.Set(ctx, "b", []byte("2")))
	require.NoError(t, repo.Clear(ctx))

	got, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
