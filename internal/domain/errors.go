// Package domain holds the entities, ports and sentinel errors shared by the
// check-in services and the storage/chat adapters. Callers match the sentinel
// values with errors.Is.
package domain

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Command preconditions.
	ErrNotRegistered     = errors.New("user is not registered")
	ErrAlreadyRegistered = errors.New("user is already set up")
	ErrInvalidUnit       = errors.New("invalid unit preference")
	ErrSessionActive     = errors.New("a session is already active for this user")

	// Session outcomes. A session inspects these at every transition instead
	// of funneling everything through one catch-all handler.
	ErrAnswerTimeout    = errors.New("no answer before the deadline")
	ErrAnswerUnparsable = errors.New("answer could not be parsed")
	ErrSubmissionFailed = errors.New("external submission failed")
)
