// Package cli implements the interactive navlock shell.
//
// The shell is a plain read–eval–print loop over the engine: vault setup and
// unlock, profile and rule management, and a `check` command that runs a URL
// through the navigation interceptor exactly as a real navigation would,
// including the parked-unlock flow (`grant`, `snooze`).
//
// Command handlers print user-facing results themselves and also return the
// underlying error for callers that need it; the REPL loop ignores those
// returns to stay resilient.
package cli
