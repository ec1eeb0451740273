package models

import "time"

// UnlockSession is a time- or session-bounded grant suppressing re-prompting
// for a (domain, profile) pair. A nil ExpiresAt means session-scoped: valid
// until an explicit lock or process restart, never evicted by expiry sweeps.
type UnlockSession struct {
	Domain     string     `json:"domain"`
	ProfileID  string     `json:"profileId"`
	UnlockedAt time.Time  `json:"unlockedAt"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

// SnoozeGrant is a short-lived enforcement override for a (domain, profile)
// pair that requires no credential verification.
type SnoozeGrant struct {
	Domain       string    `json:"domain"`
	ProfileID    string    `json:"profileId"`
	SnoozedUntil time.Time `json:"snoozedUntil"`
}
