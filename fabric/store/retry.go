package store

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/mulgadc/fabricd/fabric/apierrors"
)

// RetryConfig bounds the transaction retry wrapper of spec.md §4.7/§5: a
// bounded number of attempts, jittered exponential backoff, and a separate
// cap on total elapsed time.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxElapsed  time.Duration
}

// DefaultRetry matches the teacher's own retry loops (ipam.go retries 5
// times); the backoff and elapsed cap are new, since hive's CAS loops retry
// immediately with no backoff at all.
var DefaultRetry = RetryConfig{
	MaxAttempts: 5,
	BaseDelay:   10 * time.Millisecond,
	MaxElapsed:  2 * time.Second,
}

// IsConflict reports whether err is a CAS/serialization race the retry
// wrapper should retry rather than surface. Call sites are expected to
// classify a raw NATS KV CAS rejection into apierrors.Conflict before
// returning it from the fn passed to WithRetry; any other error is treated
// as terminal.
func IsConflict(err error) bool {
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == apierrors.KindConflict
	}
	return false
}

// WithRetry is the C7 "transaction retry wrapper": fn is a pure description
// of one attempt's work. The driver reruns fn on conflict, with jittered
// exponential backoff, up to MaxAttempts or MaxElapsed, whichever comes
// first. Unlike the Rust original this wraps (spec.md §9, "a single cell
// holding the typed failure"), Go's multiple return values make a shared
// error cell unnecessary — fn simply returns its error each attempt and
// WithRetry propagates the last one once retries are exhausted.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	deadline := time.Now().Add(cfg.MaxElapsed)
	delay := cfg.BaseDelay

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if time.Now().After(deadline) {
				break
			}
			wait := delay + time.Duration(rand.Int63n(int64(delay)+1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			delay *= 2
		}

		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !IsConflict(err) {
			return zero, err
		}
	}
	return zero, lastErr
}
