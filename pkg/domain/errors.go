package domain

import "errors"

// ErrSessionNotFound is returned when a user has no stored session.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotFound is returned by catalog stores when a book, cart or order does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a mutation's precondition no longer holds at commit time
// (stock drained, order status changed).
var ErrConflict = errors.New("conflicting update")

// ErrUnknownTransition is returned when the graph has no edge for a (state, condition) pair.
var ErrUnknownTransition = errors.New("unknown transition")

// ErrUnknownIntent is returned when the dispatcher has no handler for an intent.
var ErrUnknownIntent = errors.New("unknown intent")
