package store

import (
	"errors"
	"fmt"
)

// Sentinels shared by every store implementation. Entity-specific
// not-found errors wrap ErrNotFound, and transaction failures wrap
// ErrPersistence, so callers can match at either granularity.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")
	ErrPersistence   = errors.New("persistence failure")

	ErrTransactionFailed = fmt.Errorf("%w: transaction failed", ErrPersistence)

	ErrGenerationNotFound = fmt.Errorf("%w: generation", ErrNotFound)
	ErrCanvasNotFound     = fmt.Errorf("%w: canvas", ErrNotFound)
	ErrTaskNotFound       = fmt.Errorf("%w: task", ErrNotFound)
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
