package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recollect/core"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryWithBackoff_TransientRecovers(t *testing.T) {
	var attempts atomic.Int32
	err := RetryWithBackoff(context.Background(), fastPolicy(), nil, func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return core.Transient(errors.New("busy"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestRetryWithBackoff_PermanentFailsImmediately(t *testing.T) {
	var attempts atomic.Int32
	boom := errors.New("bad input")
	err := RetryWithBackoff(context.Background(), fastPolicy(), nil, func(ctx context.Context) error {
		attempts.Add(1)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, attempts.Load(), "permanent errors never retry")
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	var attempts atomic.Int32
	err := RetryWithBackoff(context.Background(), fastPolicy(), nil, func(ctx context.Context) error {
		attempts.Add(1)
		return core.Transient(errors.New("still busy"))
	})

	require.Error(t, err)
	assert.True(t, core.IsTransient(err))
	assert.EqualValues(t, 3, attempts.Load())
}

func TestRetryWithBackoff_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := RetryWithBackoff(ctx, policy, nil, func(ctx context.Context) error {
		return core.Transient(errors.New("busy"))
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicy_DelayDoublesAndCaps(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 3 * time.Second}

	assert.Equal(t, time.Second, policy.delay(1))
	assert.Equal(t, 2*time.Second, policy.delay(2))
	assert.Equal(t, 3*time.Second, policy.delay(3), "capped at MaxDelay")
	assert.Equal(t, 3*time.Second, policy.delay(10))
}

func TestRunner_SubmitAndWait(t *testing.T) {
	r, err := NewRunner(WithPoolSize(2), WithRetryPolicy(fastPolicy()))
	require.NoError(t, err)
	defer r.Release()

	handle, err := r.Submit(context.Background(), "ok-task", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok-task", handle.Name())
	assert.NoError(t, handle.Wait(context.Background()))
}

func TestRunner_SubmitRetriesTransient(t *testing.T) {
	r, err := NewRunner(WithPoolSize(1), WithRetryPolicy(fastPolicy()))
	require.NoError(t, err)
	defer r.Release()

	var attempts atomic.Int32
	handle, err := r.Submit(context.Background(), "flaky", func(ctx context.Context) error {
		if attempts.Add(1) < 2 {
			return core.Transient(errors.New("transient"))
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, handle.Wait(context.Background()))
	assert.EqualValues(t, 2, attempts.Load())
}

func TestRunner_SubmitFailureSurfacesOnHandle(t *testing.T) {
	r, err := NewRunner(WithPoolSize(1), WithRetryPolicy(fastPolicy()))
	require.NoError(t, err)
	defer r.Release()

	boom := errors.New("permanent")
	handle, err := r.Submit(context.Background(), "doomed", func(ctx context.Context) error {
		return boom
	})
	require.NoError(t, err)

	<-handle.Done()
	assert.ErrorIs(t, handle.Err(), boom)
}

func TestRunner_SubmitNilTask(t *testing.T) {
	r, err := NewRunner()
	require.NoError(t, err)
	defer r.Release()

	_, err = r.Submit(context.Background(), "nil", nil)
	assert.ErrorIs(t, err, ErrTaskRequired)
}

func TestRunner_SubmitAfterRelease(t *testing.T) {
	r, err := NewRunner()
	require.NoError(t, err)
	r.Release()

	_, err = r.Submit(context.Background(), "late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrReleased)
}
