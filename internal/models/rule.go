package models

import (
	"slices"
	"time"
)

// Action is what the engine does when a rule matches a navigation.
type Action string

const (
	ActionLock     Action = "lock"
	ActionBlock    Action = "block"
	ActionRedirect Action = "redirect"
)

// LockMode is the policy for how long an unlock grant persists.
type LockMode string

const (
	// LockModeAlwaysAsk re-prompts on every navigation; no grant is recorded.
	LockModeAlwaysAsk LockMode = "always_ask"
	// LockModeTimed grants access for a fixed duration.
	LockModeTimed LockMode = "timed_unlock"
	// LockModeSession grants access until an explicit lock or process restart.
	LockModeSession LockMode = "session_unlock"
)

// LockOptions is the payload of a lock rule. TimedDurationMinutes is required
// iff Mode is timed_unlock. CustomVerifier/CustomSalt, when present, hold a
// per-rule password hash that overrides the master password for unlocking.
type LockOptions struct {
	Mode                 LockMode `json:"lockMode"`
	TimedDurationMinutes int      `json:"timedDurationMinutes,omitempty"`
	CustomVerifier       []byte   `json:"customVerifier,omitempty"`
	CustomSalt           []byte   `json:"customSalt,omitempty"`
}

// RedirectOptions is the payload of a redirect rule.
type RedirectOptions struct {
	TargetURL string `json:"targetUrl"`
}

// Rule binds a URL pattern to an action for the profiles that own it.
// URLPattern is an exact hostname or a single leading "*." wildcard.
type Rule struct {
	ID                   string           `json:"id"`
	URLPattern           string           `json:"urlPattern"`
	Action               Action           `json:"action"`
	Enabled              bool             `json:"enabled"`
	ApplyToAllSubdomains bool             `json:"applyToAllSubdomains"`
	ProfileIDs           []string         `json:"profileIds"`
	Lock                 *LockOptions     `json:"lockOptions,omitempty"`
	Redirect             *RedirectOptions `json:"redirectOptions,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// OwnedBy reports whether the rule belongs to the given profile.
func (r *Rule) OwnedBy(profileID string) bool {
	return slices.Contains(r.ProfileIDs, profileID)
}
