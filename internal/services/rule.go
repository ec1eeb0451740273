package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/navlock/navlock/internal/bus"
	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
	"github.com/navlock/navlock/internal/storage"
	"github.com/navlock/navlock/internal/vault"
)

// RuleRegistry manages rules and their profile memberships.
type RuleRegistry struct {
	store  storage.Manager
	vault  *vault.Vault
	events *bus.Bus
	logger logging.Logger
	now    func() time.Time
}

func NewRuleRegistry(store storage.Manager, v *vault.Vault, events *bus.Bus, logger logging.Logger) *RuleRegistry {
	return &RuleRegistry{
		store:  store,
		vault:  v,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// ValidatePattern checks a URL pattern: non-empty, hostname charset only,
// "*" legal only as a leading "*.", and at least one dot so bare TLDs and
// single labels are rejected.
func ValidatePattern(pattern string) error {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return fmt.Errorf("%w: pattern must not be empty", common.ErrValidation)
	}

	rest := pattern
	if strings.HasPrefix(pattern, "*.") {
		rest = pattern[2:]
	}
	if strings.ContainsRune(rest, '*') {
		return fmt.Errorf("%w: %q: wildcard is only allowed as a leading *.", common.ErrValidation, pattern)
	}
	if !strings.Contains(pattern, ".") || rest == "" {
		return fmt.Errorf("%w: %q is not a valid hostname pattern", common.ErrValidation, pattern)
	}
	for _, c := range rest {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
		default:
			return fmt.Errorf("%w: %q contains disallowed character %q", common.ErrValidation, pattern, c)
		}
	}
	return nil
}

// Create validates and stores a new rule, assigning its id and timestamps.
// A rule duplicating another rule's pattern, in any profile, is rejected.
// The owning set must not be empty.
func (r *RuleRegistry) Create(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	rule.URLPattern = strings.ToLower(strings.TrimSpace(rule.URLPattern))
	if err := ValidatePattern(rule.URLPattern); err != nil {
		return nil, err
	}
	if err := r.validateOptions(rule); err != nil {
		return nil, err
	}
	if len(rule.ProfileIDs) == 0 {
		return nil, fmt.Errorf("%w: a rule must belong to at least one profile", common.ErrValidation)
	}

	existing, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].URLPattern == rule.URLPattern {
			return nil, fmt.Errorf("%w: a rule for %q already exists", common.ErrValidation, rule.URLPattern)
		}
	}

	now := r.now().UTC()
	rule.ID = uuid.NewString()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := r.save(ctx, rule); err != nil {
		return nil, err
	}

	r.events.PublishRecord(bus.TableRules, rule.ID, nil, *rule)
	return rule, nil
}

// Update replaces a rule's contents, keeping its id and creation time.
func (r *RuleRegistry) Update(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	rule.URLPattern = strings.ToLower(strings.TrimSpace(rule.URLPattern))
	if err := ValidatePattern(rule.URLPattern); err != nil {
		return nil, err
	}
	if err := r.validateOptions(rule); err != nil {
		return nil, err
	}

	old, err := r.GetByID(ctx, rule.ID)
	if err != nil {
		return nil, err
	}

	rule.CreatedAt = old.CreatedAt
	rule.UpdatedAt = r.now().UTC()

	if err := r.save(ctx, rule); err != nil {
		return nil, err
	}

	r.events.PublishRecord(bus.TableRules, rule.ID, *old, *rule)
	return rule, nil
}

// Delete removes a rule and its membership index.
func (r *RuleRegistry) Delete(ctx context.Context, id string) error {
	old, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.store.Rules(r.store.Conn()).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrRuleNotFound
		}
		return err
	}

	r.events.PublishRecord(bus.TableRules, id, *old, nil)
	return nil
}

// Toggle flips the enabled flag and returns the updated rule.
func (r *RuleRegistry) Toggle(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := *rule
	rule.Enabled = !rule.Enabled
	rule.UpdatedAt = r.now().UTC()

	if err := r.save(ctx, rule); err != nil {
		return nil, err
	}

	r.events.PublishRecord(bus.TableRules, id, old, *rule)
	return rule, nil
}

// AddProfile attaches a profile to a rule's owning set. Idempotent.
func (r *RuleRegistry) AddProfile(ctx context.Context, ruleID, profileID string) error {
	rule, err := r.GetByID(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule.OwnedBy(profileID) {
		return nil
	}

	old := *rule
	rule.ProfileIDs = append(rule.ProfileIDs, profileID)
	rule.UpdatedAt = r.now().UTC()

	if err := r.save(ctx, rule); err != nil {
		return err
	}

	r.events.PublishRecord(bus.TableRules, ruleID, old, *rule)
	return nil
}

// RemoveProfile detaches a profile from a rule's owning set. Idempotent.
// Removing the last owner deletes the rule outright: the owning set is never
// left silently empty.
func (r *RuleRegistry) RemoveProfile(ctx context.Context, ruleID, profileID string) error {
	rule, err := r.GetByID(ctx, ruleID)
	if err != nil {
		return err
	}
	if !rule.OwnedBy(profileID) {
		return nil
	}

	if len(rule.ProfileIDs) == 1 {
		r.logger.Info(ctx, "deleting rule losing its last owner", "rule", ruleID, "pattern", rule.URLPattern)
		return r.Delete(ctx, ruleID)
	}

	old := *rule
	rule.ProfileIDs = slices.DeleteFunc(slices.Clone(rule.ProfileIDs), func(id string) bool {
		return id == profileID
	})
	rule.UpdatedAt = r.now().UTC()

	if err := r.save(ctx, rule); err != nil {
		return err
	}

	r.events.PublishRecord(bus.TableRules, ruleID, old, *rule)
	return nil
}

// GetAll returns all rules, decrypted.
func (r *RuleRegistry) GetAll(ctx context.Context) ([]models.Rule, error) {
	recs, err := r.store.Rules(r.store.Conn()).GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.decryptAll(recs)
}

// GetByProfile returns the rules owned by profileID, resolved through the
// plaintext membership index so no non-member record is ever decrypted.
func (r *RuleRegistry) GetByProfile(ctx context.Context, profileID string) ([]models.Rule, error) {
	recs, err := r.store.Rules(r.store.Conn()).GetByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return r.decryptAll(recs)
}

// GetByID returns a single rule, or common.ErrRuleNotFound.
func (r *RuleRegistry) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	rec, err := r.store.Rules(r.store.Conn()).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrRuleNotFound
		}
		return nil, err
	}
	var rule models.Rule
	if err := r.vault.DecryptEntity(rec.Ciphertext, rec.Nonce, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRegistry) validateOptions(rule *models.Rule) error {
	switch rule.Action {
	case models.ActionLock:
		if rule.Lock == nil {
			return fmt.Errorf("%w: lock rule requires lock options", common.ErrValidation)
		}
		if rule.Lock.Mode == models.LockModeTimed && rule.Lock.TimedDurationMinutes <= 0 {
			return fmt.Errorf("%w: timed_unlock requires a positive duration", common.ErrValidation)
		}
	case models.ActionRedirect:
		if rule.Redirect == nil || strings.TrimSpace(rule.Redirect.TargetURL) == "" {
			return fmt.Errorf("%w: redirect rule requires a target url", common.ErrValidation)
		}
	case models.ActionBlock:
	default:
		return fmt.Errorf("%w: unknown action %q", common.ErrValidation, rule.Action)
	}
	return nil
}

func (r *RuleRegistry) decryptAll(recs []models.EncryptedRecord) ([]models.Rule, error) {
	result := make([]models.Rule, 0, len(recs))
	for i := range recs {
		var rule models.Rule
		if err := r.vault.DecryptEntity(recs[i].Ciphertext, recs[i].Nonce, &rule); err != nil {
			return nil, fmt.Errorf("rule %s: %w", recs[i].ID, err)
		}
		result = append(result, rule)
	}
	return result, nil
}

func (r *RuleRegistry) save(ctx context.Context, rule *models.Rule) error {
	ct, nonce, err := r.vault.EncryptEntity(rule)
	if err != nil {
		return err
	}
	return r.store.Rules(r.store.Conn()).Save(ctx, &models.EncryptedRecord{
		ID:         rule.ID,
		Ciphertext: ct,
		Nonce:      nonce,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}, rule.ProfileIDs)
}
