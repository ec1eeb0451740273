// Package models defines the entities managed by the navlock engine.
// Profiles and rules are envelope-encrypted before they reach durable
// storage; session and snooze state stays in the ephemeral store.
package models

import "time"

// Profile is a named, switchable browsing context with its own rule set.
// Exactly one profile is active at any time after initialization.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
