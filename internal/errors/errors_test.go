package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeCorruptArchive, CategoryIO},
		{ErrCodeRegistryUnavailable, CategoryNetwork},
		{ErrCodeInvalidInput, CategoryValidation},
		{ErrCodeBuildFailed, CategoryOperation},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestErrorsIs_MatchesByCode(t *testing.T) {
	cause := fmt.Errorf("disk went away")
	err := BuildFailed("indexing aborted", cause)

	wrapped := fmt.Errorf("index command: %w", err)

	assert.True(t, errors.Is(wrapped, New(ErrCodeBuildFailed, "", nil)))
	assert.False(t, errors.Is(wrapped, New(ErrCodeNotReady, "", nil)))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestHasCode_FindsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotReady("MISSING"))

	assert.True(t, HasCode(err, ErrCodeNotReady))
	assert.False(t, HasCode(err, ErrCodeBuildFailed))
	assert.Equal(t, ErrCodeNotReady, GetCode(err))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}

func TestRetryable_NetworkOnly(t *testing.T) {
	assert.True(t, IsRetryable(RegistryUnavailable("down", nil)))
	assert.True(t, IsRetryable(New(ErrCodeNetworkTimeout, "slow", nil)))
	assert.False(t, IsRetryable(CorruptArchive("v1", "aa", "bb")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestWithDetail_Chains(t *testing.T) {
	err := ConcurrentOperation("backup").WithDetail("holder", "pid 42")

	assert.Equal(t, "backup", err.Details["operation"])
	assert.Equal(t, "pid 42", err.Details["holder"])
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	result, err := Retry(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 3 {
			return "", RegistryUnavailable("flaky", nil)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestRetry_DoesNotRetryNonRetryable(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	calls := 0
	_, err := Retry(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, CorruptArchive("v1", "aa", "bb")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, HasCode(err, ErrCodeCorruptArchive))
}

func TestRetry_HonorsContextCancellation(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Retry(ctx, cfg, func() (int, error) {
		calls++
		return 0, RegistryUnavailable("down", nil)
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 2)
}
