package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesUpToCap(t *testing.T) {
	b := newBackoff(RetryPolicy{MinBackoff: time.Second, MaxBackoff: 5 * time.Second})

	assert.Equal(t, time.Second, b.next())
	assert.Equal(t, 2*time.Second, b.next())
	assert.Equal(t, 4*time.Second, b.next())
	assert.Equal(t, 5*time.Second, b.next())
	assert.Equal(t, 5*time.Second, b.next())

	b.reset()
	assert.Equal(t, time.Second, b.next())
}

func TestRetryPolicyDefaults(t *testing.T) {
	policy := RetryPolicy{}.withDefaults()

	assert.Equal(t, defaultMinBackoff, policy.MinBackoff)
	assert.Equal(t, defaultMaxBackoff, policy.MaxBackoff)
	assert.Equal(t, defaultMaxActionAttempts, policy.MaxActionAttempts)
	assert.Equal(t, defaultMaxConsecutiveFailures, policy.MaxConsecutiveFailures)
}

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
