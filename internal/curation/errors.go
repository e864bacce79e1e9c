package curation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Store lookups when no row exists.
	ErrNotFound = errors.New("not found")

	// ErrNotPermitted marks a role or content-state rule violation. The
	// curator notifies the acting user and retracts the reaction.
	ErrNotPermitted = errors.New("not permitted")

	// ErrDispatch is returned when no handler matches a reaction tuple.
	// Fatal for the event only.
	ErrDispatch = errors.New("no handler for reaction tuple")

	// ErrRuleMissing marks an internal inconsistency: an emoji classified
	// as payment/category has no backing rule row.
	ErrRuleMissing = errors.New("emoji rule missing")
)

// PermissionError carries the human-readable rejection reason sent to
// the acting user.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return "not permitted: " + e.Reason
}

func (e *PermissionError) Unwrap() error {
	return ErrNotPermitted
}

// denyf builds a PermissionError with a formatted reason.
func denyf(format string, args ...any) error {
	return &PermissionError{Reason: fmt.Sprintf(format, args...)}
}

// DenialReason extracts the user-facing reason from an error chain,
// falling back to a generic message.
func DenialReason(err error) string {
	var perr *PermissionError
	if errors.As(err, &perr) {
		return perr.Reason
	}

	return "this reaction is not allowed here"
}
