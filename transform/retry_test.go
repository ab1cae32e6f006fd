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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noJitter = Backoff{Initial: 10 * time.Millisecond, Max: time.Second}

func TestRetryWithBackoff_SuccessFirstTry(t *testing.T) {
	calls := 0
	attempts, err := RetryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, 3, noJitter, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	calls := 0
	attempts, err := RetryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, 5, noJitter, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	expectedErr := errors.New("persistent error")
	calls := 0
	attempts, err := RetryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		return expectedErr
	}, 3, noJitter, nil)

	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_NotRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	attempts, err := RetryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		return permanent
	}, 5, noJitter, func(err error) bool { return !errors.Is(err, permanent) })

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryWithBackoff(ctx, func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("error")
	}, 10, noJitter, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 2, "should stop when context is canceled")
}

func TestRetryWithBackoff_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := RetryWithBackoff(ctx, func(context.Context) error {
		calls++
		time.Sleep(30 * time.Millisecond)
		return errors.New("error")
	}, 10, noJitter, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, calls, 3, "should stop when context times out")
}

func TestRetryWithBackoff_ZeroMaxAttempts(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, 0, noJitter, nil)

	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	assert.Zero(t, calls)
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second}

	assert.Equal(t, 100*time.Millisecond, b.Delay(0))
	assert.Equal(t, 200*time.Millisecond, b.Delay(1))
	assert.Equal(t, 400*time.Millisecond, b.Delay(2))
	assert.Equal(t, 800*time.Millisecond, b.Delay(3))
	assert.Equal(t, time.Second, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(40))
}

func TestBackoffJitter(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Jitter: 0.2}

	for i := 0; i < 100; i++ {
		d := b.Delay(1)
		assert.GreaterOrEqual(t, d, 160*time.Millisecond)
		assert.LessOrEqual(t, d, 240*time.Millisecond)
	}
}
