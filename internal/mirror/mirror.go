// Package mirror maintains a reduced, non-sensitive projection of the rule
// and profile sets in the ephemeral store. The interception hot path reads
// from the mirror instead of decrypting storage on every navigation; the
// mirror refreshes itself by subscribing to the change bus.
//
// Per-rule custom verifier material is stripped before anything is written
// out: the mirror must never hold credential bytes.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/navlock/navlock/internal/bus"
	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
	"github.com/navlock/navlock/internal/repositories/state"
)

const (
	ruleKeyPrefix    = "mirror:rule:"
	activeProfileKey = "mirror:activeProfile"
)

// Mirror is the projection. It satisfies the interceptor's rule source.
type Mirror struct {
	mu     sync.RWMutex
	rules  map[string]models.Rule
	active string

	store  state.Repository
	logger logging.Logger
}

// New constructs a Mirror over the given ephemeral store and reloads any
// previously projected state.
func New(ctx context.Context, store state.Repository, logger logging.Logger) (*Mirror, error) {
	m := &Mirror{
		rules:  make(map[string]models.Rule),
		store:  store,
		logger: logger,
	}
	if err := m.reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Attach subscribes the mirror to the change bus.
func (m *Mirror) Attach(b *bus.Bus) {
	b.Subscribe(m.handle)
}

// Refresh rebuilds the projection from a full decrypted snapshot, replacing
// whatever the mirror held before. The engine calls this after unlock, when
// the authoritative store first becomes readable.
func (m *Mirror) Refresh(ctx context.Context, profiles []models.Profile, rules []models.Rule) error {
	active := ""
	for _, p := range profiles {
		if p.IsActive {
			active = p.ID
			break
		}
	}

	m.mu.Lock()
	m.rules = make(map[string]models.Rule, len(rules))
	for _, r := range rules {
		m.rules[r.ID] = sanitize(r)
	}
	m.active = active
	m.mu.Unlock()

	return m.persistAll(ctx)
}

// ActiveProfileID returns the projected active profile, or "" when the
// projection is empty.
func (m *Mirror) ActiveProfileID(ctx context.Context) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// RulesForProfile returns the projected rules owned by the profile, in
// creation order.
func (m *Mirror) RulesForProfile(ctx context.Context, profileID string) []models.Rule {
	m.mu.RLock()
	out := make([]models.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		if r.OwnedBy(profileID) {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Mirror) handle(ev bus.Event) {
	if ev.Kind != bus.KindRecord {
		return
	}
	ctx := context.Background()

	switch ev.Table {
	case bus.TableRules:
		rule, ok := ev.New.(models.Rule)
		if !ok {
			m.dropRule(ctx, ev.Key)
			return
		}
		m.putRule(ctx, sanitize(rule))

	case bus.TableProfiles:
		p, ok := ev.New.(models.Profile)
		if !ok {
			return
		}
		if p.IsActive {
			m.setActive(ctx, p.ID)
		} else {
			m.mu.RLock()
			wasActive := m.active == p.ID
			m.mu.RUnlock()
			if wasActive {
				m.setActive(ctx, "")
			}
		}
	}
}

// sanitize strips credential bytes from lock options before projection.
func sanitize(r models.Rule) models.Rule {
	if r.Lock != nil {
		lock := *r.Lock
		lock.CustomVerifier = nil
		lock.CustomSalt = nil
		r.Lock = &lock
	}
	return r
}

func (m *Mirror) putRule(ctx context.Context, r models.Rule) {
	m.mu.Lock()
	m.rules[r.ID] = r
	m.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		m.logger.Warn(ctx, "failed to encode mirrored rule", "rule", r.ID, "error", err)
		return
	}
	if err := m.store.Set(ctx, ruleKeyPrefix+r.ID, data); err != nil {
		m.logger.Warn(ctx, "failed to persist mirrored rule", "rule", r.ID, "error", err)
	}
}

func (m *Mirror) dropRule(ctx context.Context, id string) {
	m.mu.Lock()
	delete(m.rules, id)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, ruleKeyPrefix+id); err != nil {
		m.logger.Warn(ctx, "failed to drop mirrored rule", "rule", id, "error", err)
	}
}

func (m *Mirror) setActive(ctx context.Context, id string) {
	m.mu.Lock()
	m.active = id
	m.mu.Unlock()

	if err := m.store.Set(ctx, activeProfileKey, []byte(id)); err != nil {
		m.logger.Warn(ctx, "failed to persist active profile", "error", err)
	}
}

func (m *Mirror) persistAll(ctx context.Context) error {
	m.mu.RLock()
	rules := make([]models.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, r)
	}
	active := m.active
	m.mu.RUnlock()

	existing, err := m.store.List(ctx, ruleKeyPrefix)
	if err != nil {
		return err
	}
	for key := range existing {
		if err := m.store.Delete(ctx, key); err != nil {
			return err
		}
	}

	for _, r := range rules {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := m.store.Set(ctx, ruleKeyPrefix+r.ID, data); err != nil {
			return err
		}
	}
	return m.store.Set(ctx, activeProfileKey, []byte(active))
}

func (m *Mirror) reload(ctx context.Context) error {
	entries, err := m.store.List(ctx, ruleKeyPrefix)
	if err != nil {
		return err
	}
	for key, data := range entries {
		var r models.Rule
		if err := json.Unmarshal(data, &r); err != nil {
			m.logger.Warn(ctx, "discarding unreadable mirrored rule", "key", key, "error", err)
			continue
		}
		m.rules[r.ID] = r
	}

	active, err := m.store.Get(ctx, activeProfileKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	m.active = string(active)
	return nil
}
