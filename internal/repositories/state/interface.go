// Package state implements the ephemeral, unencrypted key-value store used
// for unlock-session and snooze maps and for the mirrored rule/profile
// projection. It survives engine restarts but is never routed through the
// encrypted path and must never hold key material.
package state

import "context"

// Repository is a flat key-value store.
type Repository interface {
	// Get returns the value for key, or common.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set upserts a value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all key/value pairs whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// Clear removes every key.
	Clear(ctx context.Context) error
}
