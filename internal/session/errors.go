package session

import "errors"

var (
	// ErrExamLocked rejects start() on an exam set the user has not yet
	// unlocked. User-correctable; no state change.
	ErrExamLocked = errors.New("exam set locked")

	// ErrInvalidNavigation marks advance/retreat outside bounds or against
	// the audio-lock rule. The engine clamps these rather than surfacing
	// them to callers; the sentinel exists for internal checks and tests.
	ErrInvalidNavigation = errors.New("invalid navigation")

	// ErrNoSession means no session exists for the user context.
	ErrNoSession = errors.New("no active session")

	// ErrNotRunning rejects commands that require a running session.
	ErrNotRunning = errors.New("session not running")

	// ErrUnknownQuestion rejects answers or media flags for questions that
	// do not belong to the session's exam set.
	ErrUnknownQuestion = errors.New("question not in exam set")

	// ErrResultUnavailable rejects result queries before completion.
	ErrResultUnavailable = errors.New("result not available")
)
