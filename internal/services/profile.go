// Package services implements the profile and rule registries: CRUD surfaces
// over the encrypted store, enforcing the engine's naming, uniqueness and
// lifecycle invariants.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/navlock/navlock/internal/bus"
	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/dbx"
	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
	"github.com/navlock/navlock/internal/storage"
	"github.com/navlock/navlock/internal/vault"
)

// DefaultProfileName is the profile created on first run.
const DefaultProfileName = "Default"

// ProfileRegistry manages profiles. Exactly one profile is active at all
// times once Initialize has run.
type ProfileRegistry struct {
	store  storage.Manager
	vault  *vault.Vault
	events *bus.Bus
	logger logging.Logger
	now    func() time.Time

	initMu      sync.Mutex
	initialized bool
}

func NewProfileRegistry(store storage.Manager, v *vault.Vault, events *bus.Bus, logger logging.Logger) *ProfileRegistry {
	return &ProfileRegistry{
		store:  store,
		vault:  v,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Initialize loads and decrypts all profile records, creating the "Default"
// active profile when none exist. Concurrent callers share one in-flight
// initialization, so a first run can never create two defaults. Decryption
// failures are surfaced unchanged: the caller decides between fatal and reset.
func (r *ProfileRegistry) Initialize(ctx context.Context) error {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	if r.initialized {
		return nil
	}

	existing, err := r.loadAll(ctx, r.store.Conn())
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		if _, err := r.create(ctx, DefaultProfileName, true); err != nil {
			return fmt.Errorf("default profile creation error: %w", err)
		}
	}

	r.initialized = true
	return nil
}

// GetAll returns all profiles, decrypted.
func (r *ProfileRegistry) GetAll(ctx context.Context) ([]models.Profile, error) {
	return r.loadAll(ctx, r.store.Conn())
}

// GetByID returns a single profile, or common.ErrProfileNotFound.
func (r *ProfileRegistry) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	rec, err := r.store.Profiles(r.store.Conn()).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrProfileNotFound
		}
		return nil, err
	}
	var p models.Profile
	if err := r.vault.DecryptEntity(rec.Ciphertext, rec.Nonce, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetActive returns the active profile.
func (r *ProfileRegistry) GetActive(ctx context.Context) (*models.Profile, error) {
	all, err := r.loadAll(ctx, r.store.Conn())
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].IsActive {
			return &all[i], nil
		}
	}
	return nil, common.ErrProfileNotFound
}

// Create adds a profile with the given name, inactive. Empty names and
// case-insensitive duplicates are rejected. A profile-count ceiling is the
// caller's concern, not enforced here.
func (r *ProfileRegistry) Create(ctx context.Context, name string) (*models.Profile, error) {
	return r.create(ctx, name, false)
}

func (r *ProfileRegistry) create(ctx context.Context, name string, active bool) (*models.Profile, error) {
	name = strings.TrimSpace(name)
	if err := r.validateName(ctx, name, ""); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	p := &models.Profile{
		ID:        uuid.NewString(),
		Name:      name,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.save(ctx, r.store.Conn(), p); err != nil {
		return nil, err
	}

	r.events.PublishRecord(bus.TableProfiles, p.ID, nil, *p)
	return p, nil
}

// Update renames a profile. The duplicate check excludes the profile itself.
func (r *ProfileRegistry) Update(ctx context.Context, id, name string) (*models.Profile, error) {
	name = strings.TrimSpace(name)
	if err := r.validateName(ctx, name, id); err != nil {
		return nil, err
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := *p
	p.Name = name
	p.UpdatedAt = r.now().UTC()

	if err := r.save(ctx, r.store.Conn(), p); err != nil {
		return nil, err
	}

	r.events.PublishRecord(bus.TableProfiles, p.ID, old, *p)
	return p, nil
}

// Switch deactivates the current profile and activates the target, both
// writes inside one transaction so the "exactly one active" invariant cannot
// be observed broken on disk.
func (r *ProfileRegistry) Switch(ctx context.Context, id string) error {
	target, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.IsActive {
		return nil
	}

	current, err := r.GetActive(ctx)
	if err != nil && !errors.Is(err, common.ErrProfileNotFound) {
		return err
	}

	now := r.now().UTC()
	var oldCurrent, oldTarget models.Profile
	oldTarget = *target

	err = dbx.WithTx(ctx, r.store.Conn(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		if current != nil {
			oldCurrent = *current
			current.IsActive = false
			current.UpdatedAt = now
			if err := r.save(ctx, tx, current); err != nil {
				return err
			}
		}
		target.IsActive = true
		target.UpdatedAt = now
		return r.save(ctx, tx, target)
	})
	if err != nil {
		return fmt.Errorf("profile switch error: %w", err)
	}

	if current != nil {
		r.events.PublishRecord(bus.TableProfiles, current.ID, oldCurrent, *current)
	}
	r.events.PublishRecord(bus.TableProfiles, target.ID, oldTarget, *target)
	return nil
}

// Delete removes a profile. The active profile and the last remaining profile
// cannot be deleted. Rule memberships pointing at the deleted profile are not
// cascaded here; they become inert and the mirror projection ignores them.
func (r *ProfileRegistry) Delete(ctx context.Context, id string) error {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.IsActive {
		return common.ErrProfileActive
	}

	all, err := r.loadAll(ctx, r.store.Conn())
	if err != nil {
		return err
	}
	if len(all) <= 1 {
		return common.ErrLastProfile
	}

	if err := r.store.Profiles(r.store.Conn()).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrProfileNotFound
		}
		return err
	}

	r.events.PublishRecord(bus.TableProfiles, id, *p, nil)
	return nil
}

func (r *ProfileRegistry) validateName(ctx context.Context, name, excludeID string) error {
	if name == "" {
		return fmt.Errorf("%w: profile name must not be empty", common.ErrValidation)
	}

	all, err := r.loadAll(ctx, r.store.Conn())
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID != excludeID && strings.EqualFold(all[i].Name, name) {
			return fmt.Errorf("%w: profile name %q already exists", common.ErrValidation, name)
		}
	}
	return nil
}

func (r *ProfileRegistry) loadAll(ctx context.Context, db dbx.DBTX) ([]models.Profile, error) {
	recs, err := r.store.Profiles(db).GetAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.Profile, 0, len(recs))
	for i := range recs {
		var p models.Profile
		if err := r.vault.DecryptEntity(recs[i].Ciphertext, recs[i].Nonce, &p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", recs[i].ID, err)
		}
		result = append(result, p)
	}
	return result, nil
}

func (r *ProfileRegistry) save(ctx context.Context, db dbx.DBTX, p *models.Profile) error {
	ct, nonce, err := r.vault.EncryptEntity(p)
	if err != nil {
		return err
	}
	return r.store.Profiles(db).Save(ctx, &models.EncryptedRecord{
		ID:         p.ID,
		Ciphertext: ct,
		Nonce:      nonce,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	})
}
