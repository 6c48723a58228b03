package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used with errors.Is across the service and transport layers.
var (
	ErrNotFound           = errors.New("not found")
	ErrNoActiveRaffle     = errors.New("no active raffle")
	ErrForbidden          = errors.New("admin capability required")
	ErrTicketsUnavailable = errors.New("tickets unavailable")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrValidation         = errors.New("validation failed")
	ErrTransientStorage   = errors.New("transient storage error")
	ErrDuplicateIdentity  = errors.New("identity already exists")
)

// TicketsUnavailableError lists the requested numbers that were not available
// when the reservation was attempted.
type TicketsUnavailableError struct {
	Numbers []TicketNumber
}

func (e *TicketsUnavailableError) Error() string {
	return fmt.Sprintf("tickets unavailable: %s", JoinTicketNumbers(e.Numbers))
}

func (e *TicketsUnavailableError) Is(target error) bool { return target == ErrTicketsUnavailable }

// InvalidTransitionError is returned when a status change falls outside the
// legal graph of a ticket or payment.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError is a shorthand used by input checks.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransientStorageError wraps a conflict or timeout raised by the store. The
// whole operation can be retried from scratch.
type TransientStorageError struct {
	Op  string
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("%s: transient storage error: %v", e.Op, e.Err)
}

func (e *TransientStorageError) Unwrap() error { return e.Err }

func (e *TransientStorageError) Is(target error) bool { return target == ErrTransientStorage }

// DuplicateIdentityError is returned when registering a buyer whose unique
// identity field is already taken.
type DuplicateIdentityError struct {
	Field string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("a user with this %s already exists", e.Field)
}

func (e *DuplicateIdentityError) Is(target error) bool { return target == ErrDuplicateIdentity }

// NotFoundf wraps ErrNotFound with the entity and id that were looked up.
func NotFoundf(entity string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// JoinTicketNumbers renders numbers as a comma separated list.
func JoinTicketNumbers(numbers []TicketNumber) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
