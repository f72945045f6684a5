// Package pinauth implements the Plex PIN pairing handshake.
//
// A pin is created, shown to the user, and polled by the caller until
// plex.tv reports an auth token. The package runs no timers of its own;
// polling cadence belongs to the caller. Because plex.tv never says a pin has
// failed, a pin is treated as expired locally once its TTL has passed.
package pinauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/five82/audioshelf/internal/plex"
)

var (
	// ErrWaitingOnPin is the expected, repeatable outcome of polling a pin
	// the user has not approved yet. It is never fatal.
	ErrWaitingOnPin = errors.New("waiting on pin")
	// ErrNoPin means Poll was called without a pending pin.
	ErrNoPin = errors.New("no pending pin")
	// ErrPinExpired means the pending pin outlived its TTL and was dropped.
	ErrPinExpired = errors.New("pin expired")
)

// Status is the handshake state.
type Status int

const (
	NoPin Status = iota
	PinPending
	Authenticated
)

func (s Status) String() string {
	switch s {
	case PinPending:
		return "pending"
	case Authenticated:
		return "authenticated"
	default:
		return "none"
	}
}

// DefaultTTL applies when plex.tv does not report expiresIn.
const DefaultTTL = 15 * time.Minute

// MaxTTL caps a server-reported expiresIn.
const MaxTTL = 24 * time.Hour

// Options configure an Authenticator.
type Options struct {
	Client plex.Service
	TTL    time.Duration
	Clock  clockwork.Clock
	Logger zerolog.Logger
}

// Authenticator tracks at most one pending pin.
type Authenticator struct {
	client plex.Service
	ttl    time.Duration
	clock  clockwork.Clock
	log    zerolog.Logger

	status   Status
	pending  *plex.Pin
	issuedAt time.Time
}

// New returns an Authenticator with no pending pin.
func New(opts Options) *Authenticator {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Authenticator{
		client: opts.Client,
		ttl:    ttl,
		clock:  clock,
		log:    opts.Logger,
	}
}

// Status returns the current handshake state.
func (a *Authenticator) Status() Status {
	return a.status
}

// Pending returns the pin awaiting approval, if any.
func (a *Authenticator) Pending() (plex.Pin, bool) {
	if a.pending == nil {
		return plex.Pin{}, false
	}
	return *a.pending, true
}

// ExpiresAt returns when the pending pin stops being polled.
func (a *Authenticator) ExpiresAt() (time.Time, bool) {
	if a.pending == nil {
		return time.Time{}, false
	}
	return a.issuedAt.Add(a.pinTTL(*a.pending)), true
}

// CreatePin requests a new pin and makes it the pending one, replacing any
// earlier pin.
func (a *Authenticator) CreatePin(ctx context.Context) (plex.Pin, error) {
	pin, err := a.client.GeneratePin(ctx)
	if err != nil {
		return plex.Pin{}, fmt.Errorf("create pin: %w", err)
	}
	a.pending = &pin
	a.issuedAt = a.clock.Now()
	a.status = PinPending
	a.log.Info().Uint64("pin_id", pin.ID).Msg("pin created")
	return pin, nil
}

// Poll checks the pending pin once. It returns the auth token when the user
// has approved the pin, ErrWaitingOnPin when not yet, and ErrPinExpired once
// the pin's TTL has passed. Network errors leave the pending pin in place.
func (a *Authenticator) Poll(ctx context.Context) (string, error) {
	if a.pending == nil {
		return "", ErrNoPin
	}
	if !a.clock.Now().Before(a.issuedAt.Add(a.pinTTL(*a.pending))) {
		a.log.Info().Uint64("pin_id", a.pending.ID).Msg("pin expired")
		a.Reset()
		return "", ErrPinExpired
	}

	checked, err := a.client.CheckPin(ctx, a.pending.ID)
	if err != nil {
		return "", fmt.Errorf("check pin: %w", err)
	}
	if !checked.Authenticated() {
		return "", ErrWaitingOnPin
	}

	a.pending = nil
	a.status = Authenticated
	a.log.Info().Uint64("pin_id", checked.ID).Msg("pin approved")
	return checked.AuthToken, nil
}

// Reset drops any pending pin.
func (a *Authenticator) Reset() {
	a.pending = nil
	a.issuedAt = time.Time{}
	a.status = NoPin
}

func (a *Authenticator) pinTTL(pin plex.Pin) time.Duration {
	if pin.ExpiresIn <= 0 {
		return a.ttl
	}
	if pin.ExpiresIn >= int(MaxTTL/time.Second) {
		return MaxTTL
	}
	return time.Duration(pin.ExpiresIn) * time.Second
}
