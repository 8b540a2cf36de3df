package dlock

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/ValentinKolb/dlock/lib/coord/memcoord"
	"github.com/stretchr/testify/require"
)

const eventTimeout = 2 * time.Second

// recorder is a listener that turns every callback into a string on a channel.
type recorder struct {
	events chan string
}

func newRecorder() *recorder {
	return &recorder{events: make(chan string, 1024)}
}

func (r *recorder) record(format string, args ...interface{}) {
	select {
	case r.events <- fmt.Sprintf(format, args...):
	default:
	}
}

func (r *recorder) AttrChange(node, attr string)         { r.record("attr %s %s", node, attr) }
func (r *recorder) NodeDel(node string)                  { r.record("deleted %s", node) }
func (r *recorder) DataChange(node string, value []byte) { r.record("data %s %s", node, value) }
func (r *recorder) ChildEvent(node string)               { r.record("children %s", node) }
func (r *recorder) ChildChange(node, child string)       { r.record("child %s %s", node, child) }
func (r *recorder) LockAcquired(node string)             { r.record("acquired %s", node) }
func (r *recorder) LockReleased(node string)             { r.record("released %s", node) }
func (r *recorder) NodeCreate(node string)               { r.record("created %s", node) }
func (r *recorder) SessionExpired()                      { r.record("expired") }
func (r *recorder) SessionReConnected()                  { r.record("reconnected") }

// waitFor consumes events until want shows up.
func (r *recorder) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev := <-r.events:
			if ev == want {
				return
			}
		case <-deadline:
			t.Fatalf("event %q not received", want)
		}
	}
}

// never fails if unwanted shows up within d.
func (r *recorder) never(t *testing.T, unwanted string, d time.Duration) {
	t.Helper()
	deadline := time.After(d)
	for {
		select {
		case ev := <-r.events:
			if ev == unwanted {
				t.Fatalf("unexpected event %q", unwanted)
			}
		case <-deadline:
			return
		}
	}
}

// newCoordinator connects a Coordinator to srv and closes it at the end of the test.
func newCoordinator(t *testing.T, srv *memcoord.Server, l IListener) *Coordinator {
	t.Helper()
	c := New(srv.Dialer())
	require.NoError(t, c.Init("memcoord", l, time.Second))
	t.Cleanup(c.Close)
	return c
}

// rawSessionID returns the service session id behind c.
func rawSessionID(t *testing.T, c *Coordinator) int64 {
	t.Helper()
	id, err := strconv.ParseUint(c.SessionID(), 16, 64)
	require.NoError(t, err)
	return int64(id)
}
