package reconcile

import (
	"errors"

	"distromart-be/internal/apperr"
)

var ErrAlreadyRunning = apperr.Conflict("reconcile_running", errors.New("a reconciliation sweep is already running"))
