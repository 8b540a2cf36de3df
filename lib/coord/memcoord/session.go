package memcoord

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dlock/lib/coord"
)

// session implements coord.IClient on top of a Server.
type session struct {
	srv     *Server
	id      int64
	timeout time.Duration
	state   atomic.Int32

	eventsMu sync.Mutex // serializes sends on events against closing it
	events   chan coord.Event
	done     chan struct{}
	once     sync.Once

	authMu sync.Mutex
	auth   []string
}

func (c *session) establish(delay time.Duration) {
	c.emit(coord.StateConnecting)
	if delay < 0 {
		return
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.done:
			return
		}
	}
	if c.state.CompareAndSwap(int32(coord.StateConnecting), int32(coord.StateConnected)) {
		log.Debugf("session %016x connected", c.id)
		c.emit(coord.StateConnected)
	}
}

func (c *session) emit(state coord.State) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- coord.Event{Type: coord.EventSession, State: state}:
	default:
		log.Warningf("session %016x: event buffer full, dropping %s", c.id, state)
	}
}

// terminate ends the session with the given final state. Ephemeral nodes are
// removed and all watches of the session receive a not-watching event.
func (c *session) terminate(final coord.State) {
	c.once.Do(func() {
		c.state.Store(int32(final))
		if final == coord.StateExpired {
			c.emit(coord.StateExpired)
		}

		reason := error(coord.ErrClosing)
		if final == coord.StateExpired {
			reason = coord.ErrSessionExpired
		}

		c.srv.mu.Lock()
		c.srv.dropWatches(c, reason)
		c.srv.removeEphemerals(c.id)
		c.srv.mu.Unlock()

		c.eventsMu.Lock()
		close(c.done)
		close(c.events)
		c.eventsMu.Unlock()
		log.Debugf("session %016x ended (%s)", c.id, final)
	})
}

// check returns the error an operation fails with in the current state.
func (c *session) check(op, p string) error {
	switch coord.State(c.state.Load()) {
	case coord.StateConnected:
		return c.srv.injectedFault(op, p)
	case coord.StateExpired:
		return coord.NewError(coord.StatusSessionExpired, p)
	case coord.StateDisconnected:
		return coord.NewError(coord.StatusClosing, p)
	default:
		return coord.NewError(coord.StatusConnectionLoss, p)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see coord/interface.go)
// --------------------------------------------------------------------------

func (c *session) SessionID() int64 {
	if coord.State(c.state.Load()) == coord.StateConnected {
		return c.id
	}
	return 0
}

func (c *session) State() coord.State {
	return coord.State(c.state.Load())
}

func (c *session) Events() <-chan coord.Event {
	return c.events
}

func (c *session) AddAuth(scheme string, auth []byte) error {
	if err := c.check("addauth", scheme); err != nil {
		return err
	}
	if scheme != "digest" {
		return coord.Errorf(coord.StatusAuthFailed, "unsupported scheme %q", scheme)
	}
	c.authMu.Lock()
	c.auth = append(c.auth, string(auth))
	c.authMu.Unlock()
	return nil
}

func (c *session) Create(p string, data []byte, flags coord.CreateFlag) (string, error) {
	if err := c.check("create", p); err != nil {
		return "", err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	return c.srv.create(c, p, data, flags)
}

func (c *session) Delete(p string, version int32) error {
	if err := c.check("delete", p); err != nil {
		return err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	return c.srv.delete(p, version)
}

func (c *session) Exists(p string) (bool, *coord.Stat, error) {
	ok, st, _, err := c.exists(p, false)
	return ok, st, err
}

func (c *session) ExistsW(p string) (bool, *coord.Stat, <-chan coord.Event, error) {
	return c.exists(p, true)
}

func (c *session) exists(p string, watch bool) (bool, *coord.Stat, <-chan coord.Event, error) {
	if err := c.check("exists", p); err != nil {
		return false, nil, nil, err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	n, err := c.srv.get(p)
	if err != nil && !coord.IsStatus(err, coord.StatusNoNode) {
		return false, nil, nil, err
	}
	var ch <-chan coord.Event
	if watch {
		ch = c.srv.addWatch(watchExist, c, p)
	}
	if n == nil {
		return false, nil, ch, nil
	}
	st := n.stat
	return true, &st, ch, nil
}

func (c *session) Get(p string) ([]byte, *coord.Stat, error) {
	data, st, _, err := c.read(p, false)
	return data, st, err
}

func (c *session) GetW(p string) ([]byte, *coord.Stat, <-chan coord.Event, error) {
	return c.read(p, true)
}

func (c *session) read(p string, watch bool) ([]byte, *coord.Stat, <-chan coord.Event, error) {
	if err := c.check("get", p); err != nil {
		return nil, nil, nil, err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	n, err := c.srv.get(p)
	if err != nil {
		return nil, nil, nil, err
	}
	var ch <-chan coord.Event
	if watch {
		ch = c.srv.addWatch(watchData, c, p)
	}
	st := n.stat
	return append([]byte(nil), n.data...), &st, ch, nil
}

func (c *session) Set(p string, data []byte, version int32) (*coord.Stat, error) {
	if err := c.check("set", p); err != nil {
		return nil, err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	return c.srv.set(p, data, version)
}

func (c *session) Children(p string) ([]string, *coord.Stat, error) {
	names, st, _, err := c.children(p, false)
	return names, st, err
}

func (c *session) ChildrenW(p string) ([]string, *coord.Stat, <-chan coord.Event, error) {
	return c.children(p, true)
}

func (c *session) children(p string, watch bool) ([]string, *coord.Stat, <-chan coord.Event, error) {
	if err := c.check("children", p); err != nil {
		return nil, nil, nil, err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	n, err := c.srv.get(p)
	if err != nil {
		return nil, nil, nil, err
	}
	var ch <-chan coord.Event
	if watch {
		ch = c.srv.addWatch(watchChild, c, p)
	}
	st := n.stat
	return n.childNames(), &st, ch, nil
}

func (c *session) Close() {
	c.srv.sessions.Delete(c.id)
	c.terminate(coord.StateDisconnected)
}
