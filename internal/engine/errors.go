package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by producer methods after Close.
	ErrClosed = errors.New("engine closed")

	// ErrWorkerStopped is returned when the worker owning a queue has
	// terminated, for example because it could not acquire a connection.
	// The other half of the engine keeps working.
	ErrWorkerStopped = errors.New("worker stopped")
)

// enqueueError explains why a request could not be queued.
func (e *Engine) enqueueError(worker string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return fmt.Errorf("%s: %w", worker, ErrWorkerStopped)
}
