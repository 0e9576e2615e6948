package discovery

import (
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

// StopPolicy decides how a transport stop is retried.
type StopPolicy struct {
	// Interval is the pause between attempts (0 retries immediately)
	Interval time.Duration

	// MaxAttempts caps the number of Stop calls; 0 retries until the
	// transport settles or reports a fatal error
	MaxAttempts uint64

	// IsTransient classifies stop errors; nil means IsTransientStopError
	IsTransient func(error) bool
}

// DefaultStopPolicy retries busy stops every 10ms until settled.
func DefaultStopPolicy() StopPolicy {
	return StopPolicy{
		Interval:    10 * time.Millisecond,
		IsTransient: IsTransientStopError,
	}
}

// Stop calls t.Stop until it succeeds, fails fatally, or the attempt cap
// is reached. It returns the number of attempts and the last error.
func (p StopPolicy) Stop(t Transport) (int, error) {
	classify := p.IsTransient
	if classify == nil {
		classify = IsTransientStopError
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.Interval)
	switch {
	case p.MaxAttempts == 1:
		b = &backoff.StopBackOff{}
	case p.MaxAttempts > 1:
		// WithMaxRetries counts retries after the first attempt; 0 would
		// mean unlimited.
		b = backoff.WithMaxRetries(b, p.MaxAttempts-1)
	}

	attempts := 0
	op := func() error {
		attempts++
		err := t.Stop()
		if err == nil || classify(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		logging.Debug("Discovery stop busy, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("next", next),
			zap.Error(err),
		)
	})
	return attempts, err
}
