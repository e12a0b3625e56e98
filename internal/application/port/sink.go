package port

import (
	"context"
	"fmt"
	"time"
)

// MessageSink delivers one text message to the configured chat/destination.
// Implementations classify failures with RateLimitedError / PermanentError;
// any other error is treated as transient.
type MessageSink interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// RateLimitedError reports a channel-side rate limit. RetryAfter is the
// channel's hint, zero when none was advertised.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// PermanentError marks a delivery failure that retrying cannot fix
// (revoked token, unknown chat). The dispatcher treats it as fatal.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent channel error: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }
