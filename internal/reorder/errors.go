package reorder

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidIndex is returned when a drag or drop index is outside the sequence.
	ErrInvalidIndex = errors.New("index out of range")

	// ErrRemoteRequestFailed marks a remote playlist request that failed.
	// The local order is kept as-is.
	ErrRemoteRequestFailed = errors.New("remote request failed")

	// ErrRebuildFailed is returned when the presented order could not be read.
	// The previous sequence is retained.
	ErrRebuildFailed = errors.New("rebuilding sequence from presented order failed")

	// ErrDragInProgress is returned by BeginDrag while another drag is active.
	ErrDragInProgress = errors.New("drag already in progress")

	// ErrDuplicateID is returned when an item ID appears twice in a sequence.
	ErrDuplicateID = errors.New("duplicate item ID")

	// ErrInvalidItem is returned for items without an ID.
	ErrInvalidItem = errors.New("invalid item")
)

// RemoteError describes a failed move request.
type RemoteError struct {
	Request MoveRequest
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("moving track %d -> %d in playlist %s: %v",
		e.Request.CurrentIndex, e.Request.NewIndex, e.Request.PlaylistID, e.Err)
}

// Unwrap returns the underlying transport or status error.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is makes every RemoteError match ErrRemoteRequestFailed.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteRequestFailed
}
