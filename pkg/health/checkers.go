package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck returns a liveness check that fails when the number
// of goroutines exceeds max, a cheap proxy for leaks.
func GoroutineCountCheck(max int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("too many goroutines: %d > %d", n, max)
		}
		return nil
	}
}

// CatalogCheck returns a readiness check that verifies the listing catalog
// is reachable end to end: it counts listings and, when any exist, fetches
// the most recent one.
func CatalogCheck(count func(ctx context.Context) (int64, error), latest func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		n, err := count(ctx)
		if err != nil {
			return errors.Wrap(err, "count listings")
		}
		if n == 0 {
			return nil
		}
		if err := latest(ctx); err != nil {
			return errors.Wrap(err, "fetch latest listing")
		}
		return nil
	}
}
