package app

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/five82/audioshelf/internal/pinauth"
	"github.com/five82/audioshelf/internal/session"
	"github.com/five82/audioshelf/internal/state"
)

const (
	defaultPinPoll         = 2 * time.Second
	defaultRefreshInterval = 5 * time.Minute
	refreshRetryBase       = 2 * time.Second
	maxBackoff             = 30 * time.Second
)

// PinChecker polls a pending pin once.
type PinChecker interface {
	CheckPin(ctx context.Context) error
}

// Refresher refreshes every cache level once.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// PollerOptions configure the background loops.
type PollerOptions struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   zerolog.Logger
}

func (o PollerOptions) withDefaults(interval time.Duration) PollerOptions {
	if o.Interval <= 0 {
		o.Interval = interval
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// StartPinPoller checks the pending pin every interval until it is approved,
// expires, disappears, or ctx ends. Network failures back off exponentially.
// The returned channel receives the final result (nil on approval) and is
// then closed.
func StartPinPoller(ctx context.Context, checker PinChecker, opts PollerOptions) <-chan error {
	opts = opts.withDefaults(defaultPinPoll)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		failures := 0
		for {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			case <-opts.Clock.After(calculateBackoff(failures, opts.Interval)):
			}

			err := checker.CheckPin(ctx)
			switch {
			case err == nil:
				opts.Logger.Info().Msg("pin approved; signed in")
				done <- nil
				return
			case errors.Is(err, pinauth.ErrWaitingOnPin):
				failures = 0
			case errors.Is(err, pinauth.ErrPinExpired),
				errors.Is(err, pinauth.ErrNoPin),
				errors.Is(err, state.ErrLockFailure):
				done <- err
				return
			default:
				failures++
				opts.Logger.Warn().Err(err).Int("failures", failures).Msg("pin poll failed")
			}
		}
	}()
	return done
}

// StartRefresher refreshes the caches once immediately and then every
// interval while signed in. After a failure it retries sooner, backing off up
// to maxBackoff, so an offline server is noticed coming back. It returns
// immediately.
func StartRefresher(ctx context.Context, r Refresher, opts PollerOptions) {
	opts = opts.withDefaults(defaultRefreshInterval)
	go func() {
		failures := 0
		for {
			err := r.RefreshAll(ctx)
			switch {
			case err == nil, errors.Is(err, session.ErrNotAuthenticated):
				failures = 0
			case errors.Is(err, state.ErrLockFailure):
				return
			default:
				failures++
				opts.Logger.Warn().Err(err).Int("failures", failures).Msg("refresh failed")
			}

			wait := opts.Interval
			if failures > 0 {
				wait = min(opts.Interval, calculateBackoff(failures, refreshRetryBase))
			}
			select {
			case <-ctx.Done():
				return
			case <-opts.Clock.After(wait):
			}
		}
	}()
}

// calculateBackoff doubles base once per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for range failures {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
