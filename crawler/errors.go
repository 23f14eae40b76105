package crawler

import (
	"errors"
	"fmt"
)

// ErrNoTargets is returned by Submit when the request has no complex numbers.
var ErrNoTargets = errors.New("no complex numbers given")

// ErrWorkerTimeout is returned by a WorkerRunner when the computed budget
// elapsed and the process was killed.
var ErrWorkerTimeout = errors.New("worker timed out")

// ConflictError rejects a submission while another run is active. Callers get
// the active run's id and decide for themselves whether to poll it.
type ConflictError struct {
	RunID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a crawl is already running (run %s)", e.RunID)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
