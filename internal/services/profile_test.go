package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navlock/navlock/internal/bus"
	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/storage"
	"github.com/navlock/navlock/internal/vault"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// setupRegistries builds an unlocked engine over in-memory sqlite.
func setupRegistries(t *testing.T) (*ProfileRegistry, *RuleRegistry, *bus.Bus) {
	t.Helper()
	ctx := context.Background()

	m, err := storage.NewSQLiteManager(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	b := bus.New()
	v := vault.New(m, vault.JSONCodec{}, b, testLogger())
	_, err = v.SetupMasterPassword(ctx, []byte("abcd1234"))
	require.NoError(t, err)

	return NewProfileRegistry(m, v, b, testLogger()),
		NewRuleRegistry(m, v, b, testLogger()),
		b
}

func requireActiveCount(t *testing.T, ctx context.Context, r *ProfileRegistry, want int) {
	t.Helper()
	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	active := 0
	for _, p := range all {
		if p.IsActive {
			active++
		}
	}
	require.Equal(t, want, active)
}

func TestInitialize_CreatesDefaultProfile(t *testing.T) {
	ctx := context.Background()
	profiles, _, _ := setupRegistries(t)

	require.NoError(t, profiles.Initialize(ctx))

	all, err := profiles.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, DefaultProfileName, all[0].Name)
	assert.True(t, all[0].IsActive)
}

func TestInitialize_Idempotent(t *testing.T) {
	ctx := context.Background()
	profiles, _, _ := setupRegistries(t)

	require.NoError(t, profiles.Initialize(ctx))
	require.NoError(t, profiles.Initialize(ctx))

	all, err := profiles.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "repeated initialization must not duplicate the default profile")
}

func TestCreate_RejectsCaseInsensitiveDuplicate(t *testing.T) {
	ctx := context.Background()
	profiles, _, _ := setupRegistries(t)
	require.NoError(t, profiles.Initialize(ctx))

	_, err := profiles.Create(ctx, "Work")
	require.NoError(t, err)

	_, err = profiles.Create(ctx, "  work ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = profiles.Create(ctx, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdate_ExcludesSelfFromDuplicateCheck(t *testing.T) {
	ctx := context.Background()
	profiles, _, _ := setupRegistries(t)
	require.NoError(t, profiles.Initialize(ctx))

	p, err := profiles.Create(ctx, "Work")
	require.NoError(t, err)

	// renaming to its own name (different case) is allowed
	got, err := profiles.Update(ctx, p.ID, "WORK")
	require.NoError(t, err)
	assert.Equal(t, "WORK", got.Name)

	// renaming onto another profile's name is not
	_, err = profiles.Update(ctx, p.ID, DefaultProfileName)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSwitch_ExactlyOneActive(t *testing.T) {
	ctx := context.Background()
	profiles, _, _ := setupRegistries(t)
	require.NoError(t, profiles.Initialize(ctx))

	work, err := profiles.Create(ctx, "Work")
	require.NoError(t, err)
	requireActiveCount(t, ctx, profiles, 1)

	require.NoError(t, profiles.Switch(ctx, work.ID))
	requireActiveCount(t, ctx, profiles, 1)

	active, err := profiles.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, work.ID, active.ID)

	// switching to the already-active profile is a no-op
	require.NoError(t, profiles.Switch(ctx, work.ID))
	requireActiveCount(t, ctx, profiles, 1)
}

func TestSwitch_UnknownProfile(t *testing.T) {
	ctx := context.Background()
	profiles, _, _ := setupRegistries(t)
	require.NoError(t, profiles.Initialize(ctx))

	err := profiles.Switch(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrProfileNotFound)
}

func TestDelete_Restrictions(t *testing.T) {
	ctx := context.Background()
	profiles, _, _ := setupRegistries(t)
	require.NoError(t, profiles.Initialize(ctx))

	active, err := profiles.GetActive(ctx)
	require.NoError(t, err)

	// last remaining profile
	err = profiles.Delete(ctx, active.ID)
	assert.ErrorIs(t, err, common.ErrLastProfile)

	work, err := profiles.Create(ctx, "Work")
	require.NoError(t, err)

	// active profile
	err = profiles.Delete(ctx, active.ID)
	assert.ErrorIs(t, err, common.ErrProfileActive)

	// inactive, non-last profile deletes fine
	require.NoError(t, profiles.Delete(ctx, work.ID))
	_, err = profiles.GetByID(ctx, work.ID)
	assert.ErrorIs(t, err, common.ErrProfileNotFound)
}

func TestDelete_DoesNotCascadeRuleMemberships(t *testing.T) {
	ctx := context.Background()
	profiles, rules, _ := setupRegistries(t)
	require.NoError(t, profiles.Initialize(ctx))

	work, err := profiles.Create(ctx, "Work")
	require.NoError(t, err)

	rule := blockRule("example.com", work.ID)
	created, err := rules.Create(ctx, rule)
	require.NoError(t, err)

	require.NoError(t, profiles.Delete(ctx, work.ID))

	// the rule survives with its membership entry intact; it is inert
	got, err := rules.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Contains(t, got.ProfileIDs, work.ID)
}

func TestProfileMutations_PublishRecordEvents(t *testing.T) {
	ctx := context.Background()
	profiles, _, b := setupRegistries(t)

	var events []bus.Event
	b.Subscribe(func(ev bus.Event) {
		if ev.Kind == bus.KindRecord && ev.Table == bus.TableProfiles {
			events = append(events, ev)
		}
	})

	require.NoError(t, profiles.Initialize(ctx))
	require.Len(t, events, 1, "default profile creation must publish")
	assert.Nil(t, events[0].Old)
	assert.NotNil(t, events[0].New)

	work, err := profiles.Create(ctx, "Work")
	require.NoError(t, err)
	require.NoError(t, profiles.Switch(ctx, work.ID))
	// create + deactivate old + activate new
	assert.Len(t, events, 4)
}
