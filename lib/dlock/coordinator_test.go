package dlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/ValentinKolb/dlock/lib/coord/memcoord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAndClose(t *testing.T) {
	srv := memcoord.NewServer()
	c := New(srv.Dialer())

	assert.Equal(t, StateUninitialized, c.State())
	_, err := c.Exists("/")
	assert.ErrorIs(t, err, coord.ErrUnavailable)

	require.NoError(t, c.Init("memcoord", nil, time.Second))
	assert.Equal(t, StateConnected, c.State())
	assert.Len(t, c.SessionID(), 16)
	assert.NotEqual(t, c.ID().String(), New(srv.Dialer()).ID().String())

	ok, err := c.Exists("/")
	require.NoError(t, err)
	assert.True(t, ok)

	c.Close()
	c.Close()
	assert.Equal(t, StateClosed, c.State())
	assert.Empty(t, c.SessionID())

	_, err = c.Exists("/")
	assert.ErrorIs(t, err, coord.ErrClosed)
	assert.ErrorIs(t, c.Lock(context.Background(), "/x", true), coord.ErrClosed)
	assert.Empty(t, srv.Sessions(), "closing must end the session")
}

func TestInitTimeout(t *testing.T) {
	srv := memcoord.NewServer()
	srv.SetConnectDelay(-1)
	c := New(srv.Dialer())

	err := c.Init("memcoord", nil, 50*time.Millisecond)
	assert.Equal(t, coord.StatusOperationTimeout, coord.StatusOf(err))
	assert.Equal(t, StateUninitialized, c.State())

	_, err = c.Exists("/")
	assert.ErrorIs(t, err, coord.ErrUnavailable)
	assert.Empty(t, srv.Sessions(), "a failed init must discard its handle")
}

func TestInitDialError(t *testing.T) {
	c := New(func([]string, time.Duration) (coord.IClient, error) {
		return nil, errors.New("no route to host")
	})

	err := c.Init("nowhere:2181", nil, time.Second)
	assert.Equal(t, coord.StatusSystemError, coord.StatusOf(err))
}

func TestInitSessionTimeout(t *testing.T) {
	srv := memcoord.NewServer()
	var requested time.Duration
	c := New(func(servers []string, timeout time.Duration) (coord.IClient, error) {
		requested = timeout
		assert.Equal(t, []string{"a:1", "b:2"}, servers)
		return srv.Connect(timeout), nil
	})
	t.Cleanup(c.Close)

	require.NoError(t, c.Init("a:1, b:2", nil, time.Second))
	assert.Equal(t, 800*time.Millisecond, requested)
}

func TestInitExpiredWhileWaiting(t *testing.T) {
	srv := memcoord.NewServer()
	srv.SetConnectDelay(-1)
	l := newRecorder()

	c := New(func(_ []string, timeout time.Duration) (coord.IClient, error) {
		client := srv.Connect(timeout)
		ids := srv.Sessions()
		id := ids[len(ids)-1]
		go func() {
			time.Sleep(20 * time.Millisecond)
			srv.Expire(id)
		}()
		return client, nil
	})

	err := c.Init("memcoord", l, time.Second)
	assert.Equal(t, coord.StatusInvalidState, coord.StatusOf(err))
	l.never(t, "expired", 100*time.Millisecond)
}

func TestSessionExpired(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	c := newCoordinator(t, srv, l)

	require.True(t, srv.Expire(rawSessionID(t, c)))
	l.waitFor(t, "expired")
	assert.Equal(t, StateExpired, c.State())

	_, err := c.Exists("/")
	assert.ErrorIs(t, err, coord.ErrSessionExpired)

	// a new Init recovers the instance
	require.NoError(t, c.Init("memcoord", l, time.Second))
	assert.Equal(t, StateConnected, c.State())
}

func TestReconnectAfterClose(t *testing.T) {
	srv := memcoord.NewServer()
	l := newRecorder()
	c := New(srv.Dialer())
	t.Cleanup(c.Close)

	require.NoError(t, c.Init("memcoord", l, time.Second))
	l.never(t, "reconnected", 50*time.Millisecond)

	c.Close()
	require.NoError(t, c.Init("memcoord", l, time.Second))
	l.waitFor(t, "reconnected")

	// a plain re-init of an open instance is not a reconnect
	require.NoError(t, c.Init("memcoord", l, time.Second))
	l.never(t, "reconnected", 50*time.Millisecond)
}

func TestInitReplacesSession(t *testing.T) {
	srv := memcoord.NewServer()
	c := newCoordinator(t, srv, nil)
	other := newCoordinator(t, srv, nil)
	require.NoError(t, c.MkDir("/swap", EventMaskNone))
	require.NoError(t, c.Lock(context.Background(), "/swap", true))
	first := c.SessionID()

	require.NoError(t, c.Init("memcoord", nil, time.Second))
	assert.NotEqual(t, first, c.SessionID())
	assert.Len(t, srv.Sessions(), 2)

	// the contender of the replaced session is gone with it
	locked, err := other.IsLocked("/swap")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestInitWithAuth(t *testing.T) {
	srv := memcoord.NewServer()
	c := New(srv.Dialer())
	t.Cleanup(c.Close)

	require.NoError(t, c.Init("memcoord", nil, time.Second, WithAuth("user:secret")))
	assert.Equal(t, StateConnected, c.State())
}
