package resolver

import (
	"context"
	"errors"
	"fmt"
)

// ErrAllCandidatesFailed is returned when every item was attempted and none succeeded
var ErrAllCandidatesFailed = errors.New("all candidates failed")

// TryInOrder calls attempt for each item sequentially and returns the first
// success. Items after the winner are never attempted.
func TryInOrder[T, R any](ctx context.Context, items []T, attempt func(context.Context, T) (R, error)) (T, R, error) {
	var (
		zeroT T
		zeroR R
		errs  []error
	)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := attempt(ctx, item)
		if err == nil {
			return item, result, nil
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return zeroT, zeroR, ErrAllCandidatesFailed
	}
	return zeroT, zeroR, fmt.Errorf("%w: %w", ErrAllCandidatesFailed, errors.Join(errs...))
}
