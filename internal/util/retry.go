package util

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Retry calls fn up to maxAttempts times with jittered exponential backoff
// starting at baseDelay. It returns nil on the first successful call; when
// every attempt fails, the last error is returned wrapped with the attempt
// count. Cancellation between attempts returns the context error.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(delay)):
		}
		delay *= 2
	}

	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}

// jitter spreads a delay by up to half its length so callers retrying the
// same endpoint do not synchronize.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}
