package services

import (
	"errors"
	"fmt"
)

// Failure taxonomy surfaced by the engine. Callers match with errors.Is;
// none of these are retried internally.
var (
	// ErrPermissionDenied means identity or location was unavailable.
	// User-recoverable; surfaced so the client can prompt and retry.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrWriteConflict means the store rejected a write. Retrying is a
	// caller policy.
	ErrWriteConflict = errors.New("write conflict")

	// ErrSplitInviteState marks an invite whose recipient projection was
	// written but whose sender projection was not. Repairable via
	// Reconcile; not fatal.
	ErrSplitInviteState = errors.New("split invite state")

	// ErrSubscriptionFailure means a live feed's snapshot or transport
	// failed. The subscriber is expected to resubscribe.
	ErrSubscriptionFailure = errors.New("subscription failure")

	// ErrIllegalTransition rejects a status edge outside the legal set.
	// A caller bug: rejected, not retried.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrNotFound distinguishes "no data yet" from a failed read.
	ErrNotFound = errors.New("not found")
)

// SplitInviteError carries the invite id of a half-created invite so the
// caller can hand it to Reconcile. errors.Is(err, ErrSplitInviteState)
// matches it.
type SplitInviteError struct {
	InviteID string
	Cause    error
}

func (e *SplitInviteError) Error() string {
	return fmt.Sprintf("invite %s left in split state: %v", e.InviteID, e.Cause)
}

func (e *SplitInviteError) Unwrap() error { return e.Cause }

func (e *SplitInviteError) Is(target error) bool { return target == ErrSplitInviteState }
