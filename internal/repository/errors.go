package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrLockTimeout is returned when Postgres gave up waiting for a row lock.
var ErrLockTimeout = errors.New("repository: lock wait timed out")

// SQLSTATE lock_not_available, raised when lock_timeout elapses.
const pqLockNotAvailable = pq.ErrorCode("55P03")

func isLockNotAvailable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqLockNotAvailable
}
