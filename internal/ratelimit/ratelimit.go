// Package ratelimit implements a fixed-window request counter keyed by client.
//
// Every key owns at most one active window. The first request arriving at or
// after the window's reset time starts a new window, so bursts straddling a
// window boundary may briefly admit up to twice the configured rate.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/metrics"
)

// Counter is the state of a key's window after a request was registered.
type Counter struct {
	Count   int
	ResetAt time.Time
}

// Store keeps the per-key counters.
type Store interface {
	// Hit registers a request for key at now. It starts a new window of the
	// given length when the key has none or its window expired at or before now,
	// then increments the count. Both steps are atomic per key.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (Counter, error)
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int       // Remaining requests in the current window, zero when rejected.
	ResetAt    time.Time // ResetAt is the instant the current window expires.
	RetryAfter int       // RetryAfter is the delay in seconds before a rejected key is admitted again.
}

// ResetUnix returns the window reset time in Unix seconds, rounded up.
func (d Decision) ResetUnix() int64 {
	return ceilDiv(d.ResetAt.UnixMilli(), 1000)
}

type Option func(*Limiter)

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

type Limiter struct {
	store   Store
	max     int
	window  time.Duration
	metrics *metrics.Metrics
}

// New creates a limiter admitting at most max requests per key per window.
func New(store Store, max int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:   store,
		max:     max,
		window:  window,
		metrics: metrics.Discard(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Admit decides whether a request from key at now is admitted.
func (l *Limiter) Admit(ctx context.Context, key string, now time.Time) (Decision, error) {
	const op = "ratelimit.Limiter.Admit"

	c, err := l.store.Hit(ctx, key, now, l.window)
	if err != nil {
		l.metrics.RateLimitDecisions.WithLabelValues(metrics.ResultError).Inc()
		return Decision{}, fmt.Errorf("%s: failed to register request: %w", op, err)
	}

	d := Decision{
		Limit:   l.max,
		ResetAt: c.ResetAt,
	}

	if c.Count > l.max {
		d.RetryAfter = int(ceilDiv(c.ResetAt.UnixMilli()-now.UnixMilli(), 1000))
		l.metrics.RateLimitDecisions.WithLabelValues(metrics.ResultRejected).Inc()
		return d, nil
	}

	d.Allowed = true
	d.Remaining = l.max - c.Count
	l.metrics.RateLimitDecisions.WithLabelValues(metrics.ResultAllowed).Inc()

	return d, nil
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
