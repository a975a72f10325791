// Package production defines the typed failures shared by the batch
// ledger, the matcher, and the workflow engine. Handlers map them to
// HTTP status codes; the mobile client keys its prompts off them.
package production

import "fmt"

// ValidationError is a locally correctable input problem (bad weight,
// missing sub-line). It is raised before any storage call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidTransitionError means a batch could not move to the requested
// status: it was already consumed, or it is not from the expected
// source station. The operator must rescan or search again.
type InvalidTransitionError struct {
	OutputBagQr string
	Reason      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("batch %s: %s", e.OutputBagQr, e.Reason)
}

// InvalidTransition builds an InvalidTransitionError.
func InvalidTransition(qr, reason string) error {
	return &InvalidTransitionError{OutputBagQr: qr, Reason: reason}
}

// NotFoundError means a QR or record is not recognized.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// NotFound builds a NotFoundError.
func NotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// RemoteError wraps a storage/network failure. No automatic retry is
// performed anywhere; local state is left untouched so the operator can
// safely re-initiate.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Remote wraps err as a RemoteError. Returns nil for a nil err.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
