package bundle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an unknown twig or dataset id.
	ErrNotFound = errors.New("not found")

	// ErrConstrained rejects a write to a constrained parameter. The
	// rejection is purely local; no remote call is ever issued.
	ErrConstrained = errors.New("parameter is constrained")

	// ErrInvalidValue rejects a write that fails local validation against
	// the cached kind, choices or numeric limits.
	ErrInvalidValue = errors.New("invalid value")
)

// PartialFailureError reports a redefine that removed the old dataset
// remotely but failed to add the replacement. The dataset is gone on both
// sides; the caller has to re-prompt the user rather than pretend an
// intermediate state exists.
type PartialFailureError struct {
	Label     string
	RemovedID string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("dataset %s removed but re-add failed: %v", e.Label, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
