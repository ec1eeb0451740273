// Package common defines shared sentinel errors used across the navlock
// engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Validation errors (empty/duplicate names, malformed patterns).
	ErrValidation = errors.New("validation error")

	// Credential errors. A wrong password and a failed authentication tag
	// are deliberately indistinguishable and both surface as this value.
	ErrIncorrectPassword = errors.New("incorrect password")

	// State errors.
	ErrMasterKeyNotSet  = errors.New("master password not set")
	ErrCredentialExists = errors.New("master password already set")
	ErrProfileActive    = errors.New("cannot delete the active profile")
	ErrLastProfile      = errors.New("cannot delete the last remaining profile")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrRuleNotFound     = errors.New("rule not found")
)
