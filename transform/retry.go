// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package transform

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// ErrInvalidMaxAttempts is returned when maxAttempts is less than 1.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

// Backoff describes an exponential retry delay.
type Backoff struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the delay.
	Max time.Duration
	// Jitter applies +/- jitter to each delay (0.2 = +/-20%).
	Jitter float64
}

// DefaultBackoff returns the backoff used when none is configured.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: 200 * time.Millisecond,
		Max:     5 * time.Second,
		Jitter:  0.2,
	}
}

// Delay returns the sleep before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	sleep := b.Initial
	for i := 0; i < attempt; i++ {
		sleep *= 2
		if b.Max > 0 && sleep >= b.Max {
			sleep = b.Max
			break
		}
	}
	if b.Max > 0 && sleep > b.Max {
		sleep = b.Max
	}
	if b.Jitter <= 0 {
		return sleep
	}
	j := 1 + (rand.Float64()*2-1)*b.Jitter
	return time.Duration(float64(sleep) * j)
}

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// retryable: decides whether a failed attempt may be retried; nil retries everything
// Returns the number of attempts made and the error from the last attempt.
func RetryWithBackoff(ctx context.Context, operation func(ctx context.Context) error, maxAttempts int, backoff Backoff, retryable func(error) bool) (int, error) {
	if maxAttempts <= 0 {
		return 0, ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return attempt, nil
		}
		if errors.Is(lastErr, context.Canceled) && ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if retryable != nil && !retryable(lastErr) {
			return attempt, lastErr
		}

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "err", lastErr)

		timer := time.NewTimer(backoff.Delay(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}

	return maxAttempts, lastErr
}
