package registry

import "errors"

var (
	// ErrInvalidID is returned when a participant id is empty or not a valid subject token
	ErrInvalidID = errors.New("invalid participant id")
	// ErrJoinClosed is returned when a new participant joins outside LOBBY and READY
	ErrJoinClosed = errors.New("joining closed in current phase")
	// ErrSessionLocked is returned when a new participant joins a locked READY session
	ErrSessionLocked = errors.New("session locked")
	// ErrCapacityReached is returned when every slot is taken
	ErrCapacityReached = errors.New("capacity reached")
)
