package pinauth

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/audioshelf/internal/plex"
	"github.com/five82/audioshelf/internal/plex/plexfake"
)

func TestCreatePin_StoresPending(t *testing.T) {
	fake := plexfake.New()
	a := New(Options{Client: fake})

	pin, err := a.CreatePin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plex.Pin{ID: 1, Code: "ABCD"}, pin)
	assert.Equal(t, PinPending, a.Status())

	pending, ok := a.Pending()
	require.True(t, ok)
	assert.Equal(t, pin, pending)
}

func TestPoll_WaitingLeavesPinUnchanged(t *testing.T) {
	fake := plexfake.New()
	a := New(Options{Client: fake})
	pin, err := a.CreatePin(context.Background())
	require.NoError(t, err)

	token, err := a.Poll(context.Background())
	assert.ErrorIs(t, err, ErrWaitingOnPin)
	assert.Empty(t, token)

	pending, ok := a.Pending()
	require.True(t, ok)
	assert.Equal(t, pin, pending)
	assert.Equal(t, PinPending, a.Status())
}

func TestPoll_ReturnsTokenOnceApproved(t *testing.T) {
	fake := plexfake.New()
	a := New(Options{Client: fake})
	_, err := a.CreatePin(context.Background())
	require.NoError(t, err)

	_, err = a.Poll(context.Background())
	require.ErrorIs(t, err, ErrWaitingOnPin)

	fake.Approve("T1")
	token, err := a.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", token)
	assert.Equal(t, Authenticated, a.Status())
	_, ok := a.Pending()
	assert.False(t, ok)
}

func TestPoll_WithoutPin(t *testing.T) {
	a := New(Options{Client: plexfake.New()})
	_, err := a.Poll(context.Background())
	assert.ErrorIs(t, err, ErrNoPin)
	assert.Equal(t, NoPin, a.Status())
}

func TestPoll_NetworkErrorKeepsPin(t *testing.T) {
	fake := plexfake.New()
	a := New(Options{Client: fake})
	_, err := a.CreatePin(context.Background())
	require.NoError(t, err)

	fake.Fail(plexfake.OpCheckPin, plex.ErrNetwork)
	_, err = a.Poll(context.Background())
	assert.ErrorIs(t, err, plex.ErrNetwork)
	assert.NotErrorIs(t, err, ErrWaitingOnPin)

	_, ok := a.Pending()
	assert.True(t, ok)
}

func TestCreatePin_FailureKeepsPreviousState(t *testing.T) {
	fake := plexfake.New()
	fake.Fail(plexfake.OpGeneratePin, plex.ErrMalformedResponse)
	a := New(Options{Client: fake})

	_, err := a.CreatePin(context.Background())
	assert.ErrorIs(t, err, plex.ErrMalformedResponse)
	assert.Equal(t, NoPin, a.Status())
}

func TestPoll_ExpiresAfterDefaultTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fake := plexfake.New()
	a := New(Options{Client: fake, Clock: clock, TTL: time.Minute})
	_, err := a.CreatePin(context.Background())
	require.NoError(t, err)

	expires, ok := a.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(time.Minute), expires)

	clock.Advance(59 * time.Second)
	_, err = a.Poll(context.Background())
	require.ErrorIs(t, err, ErrWaitingOnPin)

	clock.Advance(time.Second)
	_, err = a.Poll(context.Background())
	assert.ErrorIs(t, err, ErrPinExpired)
	assert.Equal(t, NoPin, a.Status())
	assert.Equal(t, 1, fake.Calls(plexfake.OpCheckPin), "expired pins are not sent upstream")
}

func TestPoll_HonoursServerExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fake := plexfake.New()
	fake.SetPin(plex.Pin{ID: 9, Code: "WXYZ", ExpiresIn: 30})
	a := New(Options{Client: fake, Clock: clock})
	_, err := a.CreatePin(context.Background())
	require.NoError(t, err)

	clock.Advance(31 * time.Second)
	_, err = a.Poll(context.Background())
	assert.ErrorIs(t, err, ErrPinExpired)
}

func TestCreatePin_CapsHugeServerExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fake := plexfake.New()
	fake.SetPin(plex.Pin{ID: 9, Code: "WXYZ", ExpiresIn: 1 << 40})
	a := New(Options{Client: fake, Clock: clock})
	_, err := a.CreatePin(context.Background())
	require.NoError(t, err)

	expires, ok := a.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(MaxTTL), expires)

	_, err = a.Poll(context.Background())
	assert.ErrorIs(t, err, ErrWaitingOnPin)
	assert.Equal(t, PinPending, a.Status())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "none", NoPin.String())
	assert.Equal(t, "pending", PinPending.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}
