package client

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnected marks a transient transport failure; callers may
	// retry with backoff without discarding local state.
	ErrDisconnected = errors.New("worker service unreachable")

	// ErrSessionExpired means the server no longer recognizes the session
	// id; local mirrored state is stale and must be reset.
	ErrSessionExpired = errors.New("session expired")
)

// RemoteError carries a success=false envelope. Message is the server text,
// passed through unchanged.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("remote rejected (%d): %s", e.Status, e.Message)
}

// AsRemoteError unwraps err to a *RemoteError, or nil.
func AsRemoteError(err error) *RemoteError {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote
	}
	return nil
}
