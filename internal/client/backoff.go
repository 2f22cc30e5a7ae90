package client

import (
	"context"
	"time"
)

const (
	defaultMinBackoff             = time.Second
	defaultMaxBackoff             = 30 * time.Second
	defaultMaxActionAttempts      = 5
	defaultMaxConsecutiveFailures = 10
)

// RetryPolicy bounds how both request loops retry failed requests.
type RetryPolicy struct {
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// MaxActionAttempts caps the attempts spent on one action, the first
	// one included.
	MaxActionAttempts int

	// MaxConsecutiveFailures stops the delta loop after that many failed
	// polls in a row.
	MaxConsecutiveFailures int
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MinBackoff <= 0 {
		p.MinBackoff = defaultMinBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	if p.MaxBackoff < p.MinBackoff {
		p.MaxBackoff = p.MinBackoff
	}
	if p.MaxActionAttempts <= 0 {
		p.MaxActionAttempts = defaultMaxActionAttempts
	}
	if p.MaxConsecutiveFailures <= 0 {
		p.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	return p
}

// backoff doubles its delay on every call to next, capped at max.
type backoff struct {
	min     time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(policy RetryPolicy) *backoff {
	return &backoff{min: policy.MinBackoff, max: policy.MaxBackoff}
}

func (b *backoff) next() time.Duration {
	if b.current == 0 {
		b.current = b.min
		return b.current
	}
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return b.current
}

func (b *backoff) reset() {
	b.current = 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
