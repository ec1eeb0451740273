// Package evaluator decides what happens to a navigation: allow, block,
// redirect, or require an unlock. Evaluation is a pure function of the URL,
// the rule set and the active profile, with one injected collaborator: the
// session checker consulted on the lock path.
package evaluator

import (
	"context"
	"net/url"
	"strings"

	"github.com/navlock/navlock/internal/logging"
	"github.com/navlock/navlock/internal/models"
)

// Verdict is the evaluation outcome.
type Verdict string

const (
	VerdictAllow         Verdict = "allow"
	VerdictBlock         Verdict = "block"
	VerdictRedirect      Verdict = "redirect"
	VerdictRequireUnlock Verdict = "require_unlock"
)

// Decision carries the verdict plus whatever the interceptor needs to act on
// it: the redirect target, the matched rule and the extracted domain.
type Decision struct {
	Verdict        Verdict
	RedirectTarget string
	Rule           *models.Rule
	Domain         string
}

// SessionChecker reports unlock/snooze state for a (domain, profile) pair.
// The session manager satisfies this; it is constructed first and injected
// here, which keeps the dependency one-directional.
type SessionChecker interface {
	IsUnlocked(ctx context.Context, domain, profileID string) bool
	IsSnoozed(ctx context.Context, domain, profileID string) bool
}

type Evaluator struct {
	sessions SessionChecker
	logger   logging.Logger
}

// New constructs an Evaluator. sessions may be nil, in which case every lock
// rule demands an unlock.
func New(sessions SessionChecker, logger logging.Logger) *Evaluator {
	return &Evaluator{sessions: sessions, logger: logger}
}

// Hostname extracts the lowercase hostname from a raw URL. Scheme-less input
// is tolerated. Returns "" when no hostname can be parsed.
func Hostname(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// MatchesPattern reports whether the URL's hostname matches the pattern.
// An exact pattern matches that hostname only. A "*.base" pattern matches
// base itself and any subdomain of it. Malformed URLs never match: matching
// failure is not an abort.
func MatchesPattern(rawURL, pattern string) bool {
	hostname := Hostname(rawURL)
	if hostname == "" {
		return false
	}

	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return hostname == base || strings.HasSuffix(hostname, "."+base)
	}
	return hostname == pattern
}

// FindMatchingRule returns the first enabled rule, in source order, whose
// pattern matches the URL. No priority field exists: first match wins.
func FindMatchingRule(rawURL string, rules []models.Rule) *models.Rule {
	for i := range rules {
		if !rules[i].Enabled {
			continue
		}
		pattern := rules[i].URLPattern
		if rules[i].ApplyToAllSubdomains && !strings.HasPrefix(pattern, "*.") {
			pattern = "*." + pattern
		}
		if MatchesPattern(rawURL, pattern) {
			return &rules[i]
		}
	}
	return nil
}

// Evaluate restricts rules to those owned by profileID and maps the first
// match to a decision. Unknown actions fail open; the lock path fails closed:
// a lock rule with no live grant always demands an unlock.
func (e *Evaluator) Evaluate(ctx context.Context, rawURL string, rules []models.Rule, profileID string) Decision {
	owned := make([]models.Rule, 0, len(rules))
	for i := range rules {
		if rules[i].OwnedBy(profileID) {
			owned = append(owned, rules[i])
		}
	}

	rule := FindMatchingRule(rawURL, owned)
	if rule == nil {
		return Decision{Verdict: VerdictAllow}
	}

	domain := Hostname(rawURL)

	switch rule.Action {
	case models.ActionBlock:
		return Decision{Verdict: VerdictBlock, Rule: rule, Domain: domain}

	case models.ActionRedirect:
		if rule.Redirect == nil || rule.Redirect.TargetURL == "" {
			e.logger.Warn(ctx, "redirect rule has no target, allowing navigation",
				"rule", rule.ID, "pattern", rule.URLPattern)
			return Decision{Verdict: VerdictAllow, Rule: rule, Domain: domain}
		}
		return Decision{
			Verdict:        VerdictRedirect,
			RedirectTarget: rule.Redirect.TargetURL,
			Rule:           rule,
			Domain:         domain,
		}

	case models.ActionLock:
		if e.sessions != nil &&
			(e.sessions.IsUnlocked(ctx, domain, profileID) || e.sessions.IsSnoozed(ctx, domain, profileID)) {
			return Decision{Verdict: VerdictAllow, Rule: rule, Domain: domain}
		}
		return Decision{Verdict: VerdictRequireUnlock, Rule: rule, Domain: domain}

	default:
		e.logger.Warn(ctx, "unknown rule action, allowing navigation",
			"rule", rule.ID, "action", string(rule.Action))
		return Decision{Verdict: VerdictAllow, Rule: rule, Domain: domain}
	}
}
