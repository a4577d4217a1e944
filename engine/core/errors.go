package core

import (
	"errors"
)

var (
	// ErrSurfaceStale means the presentation surface must be rebuilt before
	// the next frame. Recoverable by the caller.
	ErrSurfaceStale = errors.New("presentation surface out of date")
	// ErrAcquireTimeout means no presentation image became available in time.
	ErrAcquireTimeout = errors.New("timed out acquiring presentation image")
	// ErrDeviceLost is fatal: the execution context is unusable.
	ErrDeviceLost = errors.New("device lost")
	// ErrSubmitFailed is fatal: a queue rejected a command batch.
	ErrSubmitFailed = errors.New("queue submission failed")
	// ErrSetupFailed is fatal: a resource could not be created or recorded.
	ErrSetupFailed = errors.New("resource setup failed")
	// ErrOwnershipViolation is fatal: two access windows of the same kind were
	// opened back to back on a shared buffer.
	ErrOwnershipViolation = errors.New("buffer ownership violation")
	ErrFenceTimeout       = errors.New("fence wait timed out")
	ErrUnknown            = errors.New("unknown")
)

// IsRecoverable reports whether the frame loop may keep going after err.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSurfaceStale) || errors.Is(err, ErrAcquireTimeout)
}
