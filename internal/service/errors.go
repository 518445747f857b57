package service

import "errors"

// Domain errors surfaced to the presentation layer. All of them are
// recoverable; a failed operation leaves the in-memory state unchanged.
var (
	ErrUnauthenticated = errors.New("please log in first")

	ErrDuplicateUser   = errors.New("user already exists")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")

	ErrEventNotFound       = errors.New("no event found, refresh and try again")
	ErrEventFull           = errors.New("event is already full")
	ErrAlreadyJoined       = errors.New("you have already joined this event")
	ErrNotJoined           = errors.New("you have not joined this event")
	ErrEventAlreadyStarted = errors.New("event has already started")

	ErrDuplicateRequest       = errors.New("you have already requested to join this event")
	ErrRequestNotFound        = errors.New("no request found, refresh and try again")
	ErrNotOrganizer           = errors.New("only the organizer can approve or reject requests")
	ErrRequestAlreadyResolved = errors.New("request has already been resolved")

	// ErrStorage wraps I/O-level persistence failures. Callers should
	// treat a failed persist as "mutation did not happen" and may retry.
	ErrStorage = errors.New("storage failure")
)
