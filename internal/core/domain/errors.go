package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	// ErrPoolUnhealthy means the storage connection pool failed its health
	// probe. Retrying against a broken pool wastes time and worsens
	// contention, so this fails the current retrieval fast.
	ErrPoolUnhealthy = errors.New("storage pool unhealthy")

	// ErrAllVariantsFailed means every query reformulation errored. A single
	// failed variant degrades to an empty contribution; all of them failing
	// signals total search-system failure and must surface loudly.
	ErrAllVariantsFailed = errors.New("all query variants failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
