package redis

import (
	"fmt"

	"github.com/arklim/authgate/internal/repository"
)

// storeError wraps any backend failure as repository.ErrStoreUnavailable while keeping the cause.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, repository.ErrStoreUnavailable, err)
}
