package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrPolicyConflict        = errors.New("policy conflict")
	ErrDictionaryLoadFailure = errors.New("dictionary load failure")
)

// ValidationError rejects a call before any side effect happens.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StoreUnavailableError wraps any persistence failure (timeouts, open
// breaker, driver errors) so callers can tell it apart from logic errors.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func NewStoreUnavailableError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StoreUnavailableError
	if errors.As(err, &existing) {
		return err
	}
	return &StoreUnavailableError{Op: op, Err: err}
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

type PolicyConflictError struct {
	Subject string
	From    string
	Action  string
}

func NewPolicyConflictError(subject, from, action string) error {
	return &PolicyConflictError{Subject: subject, From: from, Action: action}
}

func (e *PolicyConflictError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, e.Subject, e.From)
}

func (e *PolicyConflictError) Unwrap() error {
	return ErrPolicyConflict
}

type DictionaryLoadError struct {
	Reasons []string
}

func NewDictionaryLoadError(reasons ...string) error {
	return &DictionaryLoadError{Reasons: reasons}
}

func (e *DictionaryLoadError) Error() string {
	return "dictionary load failed: " + strings.Join(e.Reasons, "; ")
}

func (e *DictionaryLoadError) Unwrap() error {
	return ErrDictionaryLoadFailure
}
