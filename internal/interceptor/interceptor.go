// Package interceptor binds navigation events to the rule evaluator and the
// session manager, turning decisions into redirect side effects. The hot path
// reads rules from the ephemeral mirror; the unlock path goes back to the
// decrypted registry, since custom verifier bytes never reach the mirror.
package interceptor

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/navlock/navlock/internal/common"
	"github.com/navlock/navlock/internal/evaluator"
	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
)

// internalPrefixes are URL schemes the interceptor never touches.
var internalPrefixes = []string{
	"about:",
	"chrome:",
	"chrome-extension:",
	"moz-extension:",
	"edge:",
	"devtools:",
	"view-source:",
}

// RuleSource is the read side used on every navigation. The mirror
// implements it.
type RuleSource interface {
	ActiveProfileID(ctx context.Context) string
	RulesForProfile(ctx context.Context, profileID string) []models.Rule
}

// RuleLookup fetches the full decrypted rule for the unlock path.
type RuleLookup interface {
	GetByID(ctx context.Context, id string) (*models.Rule, error)
}

// MasterVerifier checks a candidate master password. The vault implements it.
type MasterVerifier interface {
	VerifyMasterPassword(ctx context.Context, password []byte) (string, error)
}

// CustomVerifier checks a candidate against a per-rule verifier.
type CustomVerifier func(password, storedHash, salt []byte) bool

// Granter records grants and snoozes. The session manager implements it.
type Granter interface {
	GrantUnlock(ctx context.Context, domain, profileID string, mode models.LockMode, duration time.Duration) error
	Snooze(ctx context.Context, domain, profileID string, duration time.Duration) error
}

// ActionType is what the caller should do with the navigation.
type ActionType string

const (
	ActionProceed  ActionType = "proceed"
	ActionRedirect ActionType = "redirect"
)

// NavigationEvent is one top-level navigation start.
type NavigationEvent struct {
	TabID   int
	URL     string
	FrameID int
}

// Action is the interceptor's answer to a navigation event.
type Action struct {
	Type      ActionType
	TargetURL string
}

func proceed() Action { return Action{Type: ActionProceed} }

// PendingUnlock is the provisional per-tab record created when a navigation
// is parked on the unlock view. Password only ever holds a transient encoded
// value during verification and is cleared immediately after use.
type PendingUnlock struct {
	RuleID    string
	Action    models.Action
	LockMode  models.LockMode
	URL       string
	Domain    string
	ProfileID string
	Password  string
}

// Interceptor dispatches navigation events.
type Interceptor struct {
	eval     *evaluator.Evaluator
	source   RuleSource
	rules    RuleLookup
	master   MasterVerifier
	verify   CustomVerifier
	sessions Granter
	logger   logging.Logger

	blockedViewURL string
	unlockViewURL  string

	mu      sync.Mutex
	pending map[int]*PendingUnlock
}

// New constructs an Interceptor. blockedViewURL and unlockViewURL are the
// bases of the static views shown for blocked and locked navigations.
func New(
	eval *evaluator.Evaluator,
	source RuleSource,
	rules RuleLookup,
	master MasterVerifier,
	verify CustomVerifier,
	sessions Granter,
	blockedViewURL, unlockViewURL string,
	logger logging.Logger,
) *Interceptor {
	return &Interceptor{
		eval:           eval,
		source:         source,
		rules:          rules,
		master:         master,
		verify:         verify,
		sessions:       sessions,
		logger:         logger,
		blockedViewURL: blockedViewURL,
		unlockViewURL:  unlockViewURL,
		pending:        make(map[int]*PendingUnlock),
	}
}

// Exempt reports whether the URL is outside enforcement: internal scheme
// pages, subframe loads, and the engine's own views.
func (i *Interceptor) Exempt(ev NavigationEvent) bool {
	if ev.FrameID != 0 {
		return true
	}
	raw := strings.ToLower(strings.TrimSpace(ev.URL))
	for _, p := range internalPrefixes {
		if strings.HasPrefix(raw, p) {
			return true
		}
	}
	return i.isOwnView(ev.URL, i.blockedViewURL) || i.isOwnView(ev.URL, i.unlockViewURL)
}

func (i *Interceptor) isOwnView(rawURL, view string) bool {
	return view != "" && strings.HasPrefix(rawURL, view)
}

// OnNavigate evaluates one navigation event and returns the action to take.
// It never returns an error for policy outcomes; errors signal engine faults.
func (i *Interceptor) OnNavigate(ctx context.Context, ev NavigationEvent) Action {
	if i.Exempt(ev) {
		return proceed()
	}

	profileID := i.source.ActiveProfileID(ctx)
	if profileID == "" {
		return proceed()
	}

	rules := i.source.RulesForProfile(ctx, profileID)
	decision := i.eval.Evaluate(ctx, ev.URL, rules, profileID)

	switch decision.Verdict {
	case evaluator.VerdictAllow:
		return proceed()

	case evaluator.VerdictBlock:
		i.logger.Info(ctx, "navigation blocked", "domain", decision.Domain, "rule", decision.Rule.ID)
		return Action{Type: ActionRedirect, TargetURL: i.blockedTarget(decision)}

	case evaluator.VerdictRedirect:
		return Action{Type: ActionRedirect, TargetURL: decision.RedirectTarget}

	case evaluator.VerdictRequireUnlock:
		i.parkNavigation(ev, decision, profileID)
		return Action{Type: ActionRedirect, TargetURL: i.unlockTarget(ev.URL, decision)}

	default:
		return proceed()
	}
}

func (i *Interceptor) blockedTarget(d evaluator.Decision) string {
	q := url.Values{}
	q.Set("domain", d.Domain)
	q.Set("rule", d.Rule.ID)
	return i.blockedViewURL + "?" + q.Encode()
}

func (i *Interceptor) unlockTarget(originalURL string, d evaluator.Decision) string {
	q := url.Values{}
	q.Set("url", base64.URLEncoding.EncodeToString([]byte(originalURL)))
	q.Set("rule", d.Rule.ID)
	return i.unlockViewURL + "?" + q.Encode()
}

func (i *Interceptor) parkNavigation(ev NavigationEvent, d evaluator.Decision, profileID string) {
	entry := &PendingUnlock{
		RuleID:    d.Rule.ID,
		Action:    d.Rule.Action,
		URL:       ev.URL,
		Domain:    d.Domain,
		ProfileID: profileID,
	}
	if d.Rule.Lock != nil {
		entry.LockMode = d.Rule.Lock.Mode
	}

	i.mu.Lock()
	i.pending[ev.TabID] = entry
	i.mu.Unlock()
}

// Pending returns the parked navigation for a tab, if any.
func (i *Interceptor) Pending(tabID int) (*PendingUnlock, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.pending[tabID]
	if !ok {
		return nil, false
	}
	cp := *entry
	return &cp, true
}

// CancelPending drops the parked navigation for a tab.
func (i *Interceptor) CancelPending(tabID int) {
	i.mu.Lock()
	delete(i.pending, tabID)
	i.mu.Unlock()
}

// CompleteUnlock verifies the password for the tab's parked navigation,
// records a grant on success, and returns the original URL to re-open.
// Rules carrying a custom verifier are checked against it; all others fall
// back to the master password. Wrong passwords leave the pending entry in
// place so the user can retry.
func (i *Interceptor) CompleteUnlock(ctx context.Context, tabID int, password []byte) (string, error) {
	i.mu.Lock()
	entry, ok := i.pending[tabID]
	if ok {
		entry.Password = base64.StdEncoding.EncodeToString(password)
	}
	i.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no pending unlock for tab %d: %w", tabID, common.ErrNotFound)
	}
	defer i.clearTransientPassword(tabID)

	rule, err := i.rules.GetByID(ctx, entry.RuleID)
	if err != nil {
		i.CancelPending(tabID)
		return "", fmt.Errorf("failed to load rule %s: %w", entry.RuleID, err)
	}

	if rule.Lock != nil && len(rule.Lock.CustomVerifier) > 0 {
		if !i.verify(password, rule.Lock.CustomVerifier, rule.Lock.CustomSalt) {
			return "", common.ErrIncorrectPassword
		}
	} else {
		if _, err := i.master.VerifyMasterPassword(ctx, password); err != nil {
			return "", err
		}
	}

	mode := models.LockModeAlwaysAsk
	var duration time.Duration
	if rule.Lock != nil {
		mode = rule.Lock.Mode
		duration = time.Duration(rule.Lock.TimedDurationMinutes) * time.Minute
	}
	if err := i.sessions.GrantUnlock(ctx, entry.Domain, entry.ProfileID, mode, duration); err != nil {
		return "", fmt.Errorf("failed to record unlock grant: %w", err)
	}

	original := entry.URL
	i.CancelPending(tabID)
	return original, nil
}

// SnoozePending suppresses enforcement for the tab's parked domain without
// credential verification and returns the original URL to re-open.
func (i *Interceptor) SnoozePending(ctx context.Context, tabID int, duration time.Duration) (string, error) {
	entry, ok := i.Pending(tabID)
	if !ok {
		return "", fmt.Errorf("no pending unlock for tab %d: %w", tabID, common.ErrNotFound)
	}

	if err := i.sessions.Snooze(ctx, entry.Domain, entry.ProfileID, duration); err != nil {
		return "", fmt.Errorf("failed to record snooze: %w", err)
	}

	i.CancelPending(tabID)
	return entry.URL, nil
}

func (i *Interceptor) clearTransientPassword(tabID int) {
	i.mu.Lock()
	if entry, ok := i.pending[tabID]; ok {
		entry.Password = ""
	}
	i.mu.Unlock()
}

// DecodeOriginalURL recovers the original URL from an unlock-view query value.
func DecodeOriginalURL(encoded string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed original-url parameter: %w", err)
	}
	return string(raw), nil
}
