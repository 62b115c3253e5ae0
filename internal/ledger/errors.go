package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/hearth/internal/storage"
)

var (
	errNoHousehold = errors.New("user has not joined a household")
	errNotMember   = errors.New("user is not a member of the household")
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PermissionError means the caller may not perform the action, either
// because they are not a member of the household or because the store
// refused the write.
type PermissionError struct {
	Action string
	Err    error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s: %v", e.Action, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// TransientStoreError is any other store failure. Nothing is retried; the
// caller may re-trigger the action.
type TransientStoreError struct {
	Action string
	Err    error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("could not %s: %v", e.Action, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// NotFoundError names a missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// BulkError reports a best-effort operation in which some items failed.
// Items that succeeded stay committed.
type BulkError struct {
	Result BulkResult
}

func (e *BulkError) Error() string {
	return e.Result.Summary()
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidErr(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

func denied(action string, err error) error {
	return &PermissionError{Action: action, Err: err}
}

// translate maps a store error onto the ledger taxonomy. Errors already in
// the taxonomy pass through.
func translate(action, kind, id string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		pe *PermissionError
		te *TransientStoreError
		ne *NotFoundError
		be *BulkError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &pe), errors.As(err, &te), errors.As(err, &ne), errors.As(err, &be):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return &NotFoundError{Kind: kind, ID: id}
	case errors.Is(err, storage.ErrPermissionDenied):
		return denied(action, err)
	default:
		return &TransientStoreError{Action: action, Err: err}
	}
}

// UserMessage renders err as the message shown to a person.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		pe *PermissionError
		ne *NotFoundError
		be *BulkError
		te *TransientStoreError
	)
	switch {
	case errors.As(err, &be):
		return be.Result.Summary()
	case errors.As(err, &ve):
		return capitalize(ve.Message) + "."
	case errors.As(err, &pe):
		return fmt.Sprintf("You do not have permission to %s.", pe.Action)
	case errors.As(err, &ne):
		return capitalize(ne.Error()) + "."
	case errors.As(err, &te):
		return fmt.Sprintf("Could not %s. Please try again.", te.Action)
	default:
		return "Could not complete the operation. Please try again."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
