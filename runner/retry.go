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


package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/recollect/core"
)

// RetryPolicy controls how failed tasks are retried. Only errors
// classified transient by core.IsTransient trigger another attempt;
// everything else fails immediately.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, first try included.
	MaxAttempts int

	// BaseDelay is the wait before the first retry. Each subsequent
	// retry doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the standard policy: three attempts,
// one second base delay, thirty second cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// delay returns the backoff before retry number n (1-based).
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.BaseDelay << (n - 1)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	return d
}

// RetryWithBackoff runs fn until it succeeds, fails permanently, or the
// policy's attempts are exhausted. The last error is returned.
func RetryWithBackoff(ctx context.Context, policy RetryPolicy, logger *slog.Logger, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !core.IsTransient(lastErr) {
			logger.Debug("permanent failure, not retrying", "attempt", attempt, "err", lastErr)
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		wait := policy.delay(attempt)
		logger.Warn("transient failure, backing off",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"wait", wait,
			"err", lastErr)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
