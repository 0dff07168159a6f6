package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("503 from upstream")

func fastRetrier(attempts int) *Retrier {
	return New(WithMaxAttempts(attempts), WithInitialDelay(time.Millisecond), WithMaxDelay(2*time.Millisecond), WithJitter(false))
}

func TestRetrier_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errFlaky)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_ReturnsUnwrappedErrorAfterLastAttempt(t *testing.T) {
	var retries []int
	r := New(WithMaxAttempts(2), WithInitialDelay(time.Millisecond), WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retries = append(retries, attempt)
	}))

	err := r.Do(context.Background(), func(context.Context) error { return Retryable(errFlaky) })

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, []int{1}, retries)
}

func TestRetrier_StopsOnPermanentAndPlainErrors(t *testing.T) {
	calls := 0
	err := fastRetrier(5).Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	})
	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 1, calls)

	calls = 0
	plain := errors.New("bad request")
	err = fastRetrier(5).Do(context.Background(), func(context.Context) error {
		calls++
		return plain
	})
	assert.Equal(t, plain, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(WithMaxAttempts(5), WithInitialDelay(time.Hour), WithMaxDelay(time.Hour))

	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return Retryable(errFlaky)
	})

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_RetryAfterIsCapped(t *testing.T) {
	var delays []time.Duration
	r := New(WithMaxAttempts(2), WithMaxDelay(3*time.Millisecond), WithOnRetry(func(_ int, _ error, d time.Duration) {
		delays = append(delays, d)
	}))

	_ = r.Do(context.Background(), func(context.Context) error { return RetryableAfter(errFlaky, time.Minute) })

	assert.Equal(t, []time.Duration{3 * time.Millisecond}, delays)
}

func TestDoWithData(t *testing.T) {
	n, err := DoWithData(context.Background(), func(context.Context) (int, error) { return 7, nil })
	assert.NoError(t, err)
	assert.Equal(t, 7, n)
}
