package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/quotedesk/internal/ledger"
)

// TransitionError represents a rejected or failed mode transition.
//
// TransitionError includes structured fields for diagnostics and recovery.
// A failed transition never changes the engine's mode, items or draft.
type TransitionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Request identifies the affected sent-back request.
	Request ledger.RequestID

	// From and To are the modes of the attempted transition.
	From ledger.Mode
	To   ledger.Mode

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes transition errors.
type ErrorCode string

const (
	// ErrCodeIncompleteSelection indicates an item has no winning vendor.
	// No write is attempted.
	ErrCodeIncompleteSelection ErrorCode = "INCOMPLETE_SELECTION"

	// ErrCodePersistence indicates the document write failed. State is
	// preserved so the transition can be retried without loss.
	ErrCodePersistence ErrorCode = "PERSISTENCE_FAILURE"

	// ErrCodeInvalidTransition indicates the transition is not allowed from
	// the current mode.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// ErrCodeWrongMode indicates a draft edit outside edit mode.
	ErrCodeWrongMode ErrorCode = "WRONG_MODE"
)

// Error implements the error interface.
func (e *TransitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (request=%s, %s->%s): %v", e.Code, e.Message, e.Request, e.From, e.To, e.Err)
	}
	if e.To != "" {
		return fmt.Sprintf("%s: %s (request=%s, %s->%s)", e.Code, e.Message, e.Request, e.From, e.To)
	}
	return fmt.Sprintf("%s: %s (request=%s)", e.Code, e.Message, e.Request)
}

// Unwrap returns the underlying cause.
func (e *TransitionError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// IsIncompleteSelection returns true if the error is an incomplete selection error.
// Uses errors.As to handle wrapped errors.
func IsIncompleteSelection(err error) bool {
	return hasCode(err, ErrCodeIncompleteSelection)
}

// IsPersistenceFailure returns true if the error is a persistence failure.
func IsPersistenceFailure(err error) bool {
	return hasCode(err, ErrCodePersistence)
}

// IsInvalidTransition returns true if the transition is not allowed.
func IsInvalidTransition(err error) bool {
	return hasCode(err, ErrCodeInvalidTransition) || hasCode(err, ErrCodeWrongMode)
}

// NewIncompleteSelectionError creates a TransitionError listing the items
// without a winner.
func NewIncompleteSelectionError(request ledger.RequestID, missing []ledger.ItemID) *TransitionError {
	names := make([]string, len(missing))
	for i, m := range missing {
		names[i] = string(m)
	}
	sort.Strings(names)
	return &TransitionError{
		Code:    ErrCodeIncompleteSelection,
		Message: fmt.Sprintf("%d item(s) have no selected vendor", len(missing)),
		Request: request,
		From:    ledger.ModeView,
		To:      ledger.ModeCommitted,
		Details: map[string]string{"missing": strings.Join(names, ",")},
	}
}

// NewPersistenceError wraps a failed document write.
func NewPersistenceError(request ledger.RequestID, from, to ledger.Mode, err error) *TransitionError {
	return &TransitionError{
		Code:    ErrCodePersistence,
		Message: "failed to persist request",
		Request: request,
		From:    from,
		To:      to,
		Err:     err,
	}
}

func newInvalidTransition(request ledger.RequestID, from, to ledger.Mode) *TransitionError {
	return &TransitionError{
		Code:    ErrCodeInvalidTransition,
		Message: "transition not allowed",
		Request: request,
		From:    from,
		To:      to,
	}
}

func newWrongMode(request ledger.RequestID, mode ledger.Mode, op string) *TransitionError {
	return &TransitionError{
		Code:    ErrCodeWrongMode,
		Message: op + " requires edit mode",
		Request: request,
		From:    mode,
	}
}
