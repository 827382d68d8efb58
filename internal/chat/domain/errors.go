package domain

import "errors"

// Business rule and transport errors surfaced to the caller. Decryption
// failure is deliberately absent: decrypt degrades to a fallback marker
// instead of returning an error.
var (
	// ErrValidation caller input violates a precondition
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCode no active group carries the entered join code
	ErrInvalidCode = errors.New("invalid join code")
	// ErrGroupNotFound referenced group record does not exist
	ErrGroupNotFound = errors.New("group not found")
	// ErrAlreadyMember user is already in the group
	ErrAlreadyMember = errors.New("already a member")
	// ErrGroupFull group is at member capacity
	ErrGroupFull = errors.New("group is full")
	// ErrForbidden operation requires admin rights
	ErrForbidden = errors.New("forbidden")
	// ErrNotMember user is not in the group
	ErrNotMember = errors.New("not a member")
	// ErrCodeExhausted no unique join code found within the retry bound;
	// the whole create is safe to retry
	ErrCodeExhausted = errors.New("join code generation exhausted")
	// ErrSend persistence rejected the outgoing message; not retried here
	ErrSend = errors.New("message send failed")
	// ErrSubscription the message stream could not be established
	ErrSubscription = errors.New("subscription failed")
)
