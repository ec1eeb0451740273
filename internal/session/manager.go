// Package session tracks unlock grants and snoozes per (domain, profile)
// pair. Entries expire lazily on read; a periodic sweep is optional and must
// never evict session-scoped grants, which are bounded only by an explicit
// lock or the end of the process.
//
// State lives in memory for interception-path reads and is mirrored into the
// ephemeral key-value store so grants survive an engine restart. Nothing here
// ever touches the encrypted path.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
	"github.com/navlock/navlock/internal/repositories/state"
)

const (
	unlockKeyPrefix = "unlock:"
	snoozeKeyPrefix = "snooze:"
)

// Manager is the per-(domain, profile) grant state machine.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]models.UnlockSession
	snoozes  map[string]models.SnoozeGrant

	store  state.Repository
	logger logging.Logger
	now    func() time.Time
}

// New constructs a Manager over the given ephemeral store and restores any
// previously persisted grants.
func New(ctx context.Context, store state.Repository, logger logging.Logger) (*Manager, error) {
	m := &Manager{
		sessions: make(map[string]models.UnlockSession),
		snoozes:  make(map[string]models.SnoozeGrant),
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
	if err := m.restore(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func stateKey(prefix, domain, profileID string) string {
	return prefix + domain + "|" + profileID
}

// GrantUnlock records an unlock grant according to the rule's lock mode.
// always_ask records nothing: the user is re-prompted every time.
// timed_unlock expires after duration; session_unlock has no expiry and lasts
// until an explicit Lock or the process ends.
func (m *Manager) GrantUnlock(ctx context.Context, domain, profileID string, mode models.LockMode, duration time.Duration) error {
	if mode == models.LockModeAlwaysAsk {
		return nil
	}

	now := m.now()
	entry := models.UnlockSession{
		Domain:     domain,
		ProfileID:  profileID,
		UnlockedAt: now,
	}
	if mode == models.LockModeTimed {
		expires := now.Add(duration)
		entry.ExpiresAt = &expires
	}

	m.mu.Lock()
	m.sessions[stateKey(unlockKeyPrefix, domain, profileID)] = entry
	m.mu.Unlock()

	return m.persistUnlock(ctx, entry)
}

// IsUnlocked reports whether a live grant exists. Expired entries are evicted
// on the way out.
func (m *Manager) IsUnlocked(ctx context.Context, domain, profileID string) bool {
	key := stateKey(unlockKeyPrefix, domain, profileID)

	m.mu.Lock()
	entry, ok := m.sessions[key]
	if ok && entry.ExpiresAt != nil && !entry.ExpiresAt.After(m.now()) {
		delete(m.sessions, key)
		ok = false
		defer m.dropPersisted(ctx, key)
	}
	m.mu.Unlock()

	return ok
}

// Snooze suppresses enforcement for the given duration without credential
// verification. Repeated snoozes replace the previous end time.
func (m *Manager) Snooze(ctx context.Context, domain, profileID string, duration time.Duration) error {
	entry := models.SnoozeGrant{
		Domain:       domain,
		ProfileID:    profileID,
		SnoozedUntil: m.now().Add(duration),
	}

	m.mu.Lock()
	m.snoozes[stateKey(snoozeKeyPrefix, domain, profileID)] = entry
	m.mu.Unlock()

	return m.persistSnooze(ctx, entry)
}

// IsSnoozed reports whether a live snooze exists, lazily evicting stale ones.
func (m *Manager) IsSnoozed(ctx context.Context, domain, profileID string) bool {
	key := stateKey(snoozeKeyPrefix, domain, profileID)

	m.mu.Lock()
	entry, ok := m.snoozes[key]
	if ok && !entry.SnoozedUntil.After(m.now()) {
		delete(m.snoozes, key)
		ok = false
		defer m.dropPersisted(ctx, key)
	}
	m.mu.Unlock()

	return ok
}

// Lock revokes any grant and snooze for the pair, regardless of mode.
func (m *Manager) Lock(ctx context.Context, domain, profileID string) error {
	unlockKey := stateKey(unlockKeyPrefix, domain, profileID)
	snoozeKey := stateKey(snoozeKeyPrefix, domain, profileID)

	m.mu.Lock()
	delete(m.sessions, unlockKey)
	delete(m.snoozes, snoozeKey)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, unlockKey); err != nil {
		return err
	}
	return m.store.Delete(ctx, snoozeKey)
}

// ClearExpired evicts timed-out grants and snoozes and returns how many were
// removed. Session-scoped grants have no timestamp to expire on and are
// always left alone.
func (m *Manager) ClearExpired(ctx context.Context) int {
	now := m.now()
	var stale []string

	m.mu.Lock()
	for key, entry := range m.sessions {
		if entry.ExpiresAt != nil && !entry.ExpiresAt.After(now) {
			delete(m.sessions, key)
			stale = append(stale, key)
		}
	}
	for key, entry := range m.snoozes {
		if !entry.SnoozedUntil.After(now) {
			delete(m.snoozes, key)
			stale = append(stale, key)
		}
	}
	m.mu.Unlock()

	for _, key := range stale {
		m.dropPersisted(ctx, key)
	}
	return len(stale)
}

// StartSweeper runs ClearExpired on the given interval until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.ClearExpired(ctx); n > 0 {
				m.logger.Debug(ctx, "evicted expired grants", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) persistUnlock(ctx context.Context, entry models.UnlockSession) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, stateKey(unlockKeyPrefix, entry.Domain, entry.ProfileID), data)
}

func (m *Manager) persistSnooze(ctx context.Context, entry models.SnoozeGrant) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, stateKey(snoozeKeyPrefix, entry.Domain, entry.ProfileID), data)
}

func (m *Manager) dropPersisted(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Warn(ctx, "failed to drop persisted grant", "key", key, "error", err)
	}
}

// restore reloads persisted grants. Session-scoped unlocks are deliberately
// not restored: a process restart ends them.
func (m *Manager) restore(ctx context.Context) error {
	unlocks, err := m.store.List(ctx, unlockKeyPrefix)
	if err != nil {
		return err
	}
	for key, data := range unlocks {
		var entry models.UnlockSession
		if err := json.Unmarshal(data, &entry); err != nil {
			m.logger.Warn(ctx, "discarding unreadable grant", "key", key, "error", err)
			m.dropPersisted(ctx, key)
			continue
		}
		if entry.ExpiresAt == nil {
			m.dropPersisted(ctx, key)
			continue
		}
		m.sessions[key] = entry
	}

	snoozes, err := m.store.List(ctx, snoozeKeyPrefix)
	if err != nil {
		return err
	}
	for key, data := range snoozes {
		var entry models.SnoozeGrant
		if err := json.Unmarshal(data, &entry); err != nil {
			m.logger.Warn(ctx, "discarding unreadable snooze", "key", key, "error", err)
			m.dropPersisted(ctx, key)
			continue
		}
		m.snoozes[key] = entry
	}
	return nil
}
