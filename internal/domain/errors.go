package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the application. Handlers map these to HTTP status
// codes and WebSocket acks; services return them directly or wrapped.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failure")
)

// Friend state machine failures.
var (
	ErrSelfFriend       = fmt.Errorf("%w: cannot befriend yourself", ErrInvalidInput)
	ErrAlreadyFriends   = fmt.Errorf("%w: already friends", ErrConflict)
	ErrAlreadyRequested = fmt.Errorf("%w: friend request already sent", ErrConflict)
	ErrNoSuchRequest    = fmt.Errorf("%w: no pending friend request", ErrNotFound)
)

// Message pipeline failures.
var (
	ErrMissingTarget = fmt.Errorf("%w: missing recipient", ErrInvalidInput)
	ErrEmptyMessage  = fmt.Errorf("%w: message requires text or attachments", ErrInvalidInput)
	ErrSelfMessage   = fmt.Errorf("%w: cannot send to self", ErrInvalidInput)
)

// Call relay failures.
var (
	ErrSelfCall      = fmt.Errorf("%w: cannot call yourself", ErrInvalidInput)
	ErrCallNotFound  = fmt.Errorf("%w: call not found", ErrNotFound)
	ErrNotInCall     = fmt.Errorf("%w: not a participant of this call", ErrForbidden)
	ErrTargetOffline = errors.New("target is offline")
)
