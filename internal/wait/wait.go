/*
Copyright 2025 The Kubeflow authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package wait provides the bounded polling primitive used by every
// orchestration step: check a condition on a fixed interval until it holds
// or the timeout elapses.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	apiwait "k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
)

// ConditionFunc reports whether the awaited condition holds. A non-nil error
// aborts polling and is returned to the caller as is.
type ConditionFunc func(ctx context.Context) (done bool, err error)

// TimeoutError is returned when a condition did not hold within the timeout.
type TimeoutError struct {
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("condition not met within %s (elapsed %s)", e.Timeout, e.Elapsed.Round(time.Millisecond))
}

// IsTimeout returns whether err is, or wraps, a *TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// Poller polls conditions using the given clock for elapsed time accounting.
type Poller struct {
	clock clock.PassiveClock
}

// NewPoller returns a Poller backed by the real clock.
func NewPoller() *Poller {
	return &Poller{clock: clock.RealClock{}}
}

// NewPollerWithClock returns a Poller that measures elapsed time with c.
func NewPollerWithClock(c clock.PassiveClock) *Poller {
	return &Poller{clock: c}
}

// Poll checks condition immediately and then every interval until it returns
// true, returns an error, or timeout elapses. A timeout yields *TimeoutError;
// cancellation of ctx by the caller yields ctx.Err().
func (p *Poller) Poll(ctx context.Context, interval, timeout time.Duration, condition ConditionFunc) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	if timeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %s", timeout)
	}

	start := p.clock.Now()
	err := apiwait.PollUntilContextTimeout(ctx, interval, timeout, true, apiwait.ConditionWithContextFunc(condition))
	if err == nil {
		return nil
	}
	if apiwait.Interrupted(err) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &TimeoutError{Timeout: timeout, Elapsed: p.clock.Since(start)}
	}
	return err
}

var defaultPoller = NewPoller()

// Poll runs condition through the default real-clock Poller.
func Poll(ctx context.Context, interval, timeout time.Duration, condition ConditionFunc) error {
	return defaultPoller.Poll(ctx, interval, timeout, condition)
}
