/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package gallery

import (
	"context"
	"time"

	"github.com/colbylwilliams/devbox-images/errors"
	"github.com/colbylwilliams/devbox-images/logging"
)

// Retry defaults for gallery queries.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second
)

// retrier runs gallery queries with bounded attempts and doubling backoff.
// Only transient BackendErrors are retried.
type retrier struct {
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r retrier) do(ctx context.Context, op, imageName string, fn func() error) error {
	attempts := r.maxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := r.backoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !errors.IsTransient(err) {
			break
		}
		if attempt == attempts {
			logging.WarnContext(ctx, "%s failed after %d attempts", op, attempts)
			break
		}

		logging.WarnContext(ctx, "%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, attempts, delay, err)
		if serr := sleep(ctx, delay); serr != nil {
			err = serr
			break
		}
		delay *= 2
	}

	if err == nil || errors.IsBackend(err) {
		return err
	}
	return &errors.BackendError{Op: op, Image: imageName, Err: err}
}
