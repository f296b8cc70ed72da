package proposal

import "errors"

// Sentinel errors for the proposal lifecycle. All are precondition
// failures surfaced to the caller as rejected operations; none warrant an
// automatic retry. Match with errors.Is.
var (
	// ErrUnknownType means no config exists for the requested proposal type.
	ErrUnknownType = errors.New("unknown proposal type")

	// ErrPermissionDenied means a role or ownership check failed.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means the proposal does not exist.
	ErrNotFound = errors.New("proposal not found")

	// ErrInvalidState means the proposal has already left PENDING.
	ErrInvalidState = errors.New("proposal is no longer pending")

	// ErrStoreUnavailable wraps persistence collaborator failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)
