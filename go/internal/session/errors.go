package session

import "errors"

var (
	// ErrSessionNotFound is returned when a session id resolves to nothing.
	ErrSessionNotFound = errors.New("game session not found")

	// ErrActiveSessionExists is returned when a room already has a
	// non-terminal session.
	ErrActiveSessionExists = errors.New("room already has an active game session")

	// ErrNotOwner is returned when a caller other than the room owner
	// attempts start, cancel, or finalize.
	ErrNotOwner = errors.New("only the room owner may do this")

	// ErrWrongStatus is returned for invalid lifecycle transitions.
	ErrWrongStatus = errors.New("game session is in the wrong status")

	// ErrCapacity is returned when the member count is outside the game
	// kind's bounds or too few members are online to start.
	ErrCapacity = errors.New("player count out of range")

	// ErrUnknownGameKind is returned for a kind with no registered rules.
	ErrUnknownGameKind = errors.New("unknown game kind")

	// errAlreadyCompleted is an internal repository signal; the app treats
	// finalize-on-completed as idempotent success.
	errAlreadyCompleted = errors.New("game session already completed")
)
