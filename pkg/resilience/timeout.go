package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds fn with a derived deadline. It is used to keep slow
// dependency probes (a wedged durable store, an unresponsive broker) from
// stalling a readiness check; fn runs in its own goroutine in case it
// ignores its context.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- fn(bounded)
	}()

	select {
	case err := <-errc:
		return err
	case <-bounded.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: caller gave up: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w after %v", name, context.DeadlineExceeded, timeout)
	}
}
