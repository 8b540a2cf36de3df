package dlock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dlock/lib/common"
	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("dlock")

// --------------------------------------------------------------------------
// Init waiter
// --------------------------------------------------------------------------

// initWaiter connects a running Init with the dispatcher of the session it dials.
type initWaiter struct {
	sess     *session
	signal   chan coord.State // connected, expired or auth-failed, first one wins
	finished chan struct{}    // closed once Init returns
	err      error            // result of Init, valid after finished is closed
}

func (w *initWaiter) notify(state coord.State) {
	select {
	case w.signal <- state:
	default:
	}
}

func (w *initWaiter) finish(err error) {
	w.err = err
	close(w.finished)
}

// --------------------------------------------------------------------------
// Coordinator
// --------------------------------------------------------------------------

// Coordinator is a distributed lock and metadata client. It owns at most one
// session against the coordination service at a time.
type Coordinator struct {
	id     uuid.UUID
	dialer coord.Dialer

	initMu sync.Mutex // serializes Init calls
	waiter atomic.Pointer[initWaiter]

	mu       sync.Mutex // guards the fields below
	sess     *session
	listener IListener
	state    State
	closed   bool // Close was called and no Init succeeded since
	servers  string
}

var _ ICoordinator = (*Coordinator)(nil)

// New creates a Coordinator that opens its sessions through dialer.
func New(dialer coord.Dialer) *Coordinator {
	return &Coordinator{
		id:     uuid.New(),
		dialer: dialer,
		state:  StateUninitialized,
	}
}

// ID returns the instance id used to tell coordinators apart in logs.
func (c *Coordinator) ID() uuid.UUID {
	return c.id
}

func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.id
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// handle returns the current session or the error an operation fails with
// when there is none.
func (c *Coordinator) handle() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		if c.state == StateClosed {
			return nil, coord.ErrClosed
		}
		return nil, coord.ErrUnavailable
	}
	return c.sess, nil
}

// listenerFor returns the listener if s is still the current session.
func (c *Coordinator) listenerFor(s *session) (IListener, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != s {
		return nil, false
	}
	if c.listener == nil {
		return nopListener{}, true
	}
	return c.listener, true
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func (c *Coordinator) Init(servers string, listener IListener, timeout time.Duration, opts ...InitOption) error {
	o := &initOptions{}
	for _, opt := range opts {
		opt(o)
	}

	c.initMu.Lock()
	defer c.initMu.Unlock()

	c.mu.Lock()
	prev := c.sess
	wasConnected := prev != nil && c.state == StateConnected
	c.sess = nil
	c.state = StateConnecting
	c.servers = servers
	c.mu.Unlock()

	if prev != nil {
		Logger.Infof("[%s] replacing session %s", c.id, prev.id)
		prev.close()
		if wasConnected {
			sessionsActive.Dec()
		}
	}

	start := time.Now()
	client, err := c.dialer(common.ParseServers(servers), time.Duration(float64(timeout)*sessionTimeoutFactor))
	dialed := time.Now()
	if err != nil {
		Logger.Errorf("[%s] zookeeper init failed: %v", c.id, err)
		c.initFailed()
		if coord.IsStatus(err, coord.StatusSystemError) {
			return err
		}
		return coord.Errorf(coord.StatusSystemError, "dial %s: %v", servers, err)
	}

	s := newSession(client)
	w := &initWaiter{sess: s, signal: make(chan coord.State, 1), finished: make(chan struct{})}
	c.waiter.Store(w)

	go s.forwardSessionEvents()
	go c.dispatch(s)

	Logger.Debugf("[%s] waiting for session on %s", c.id, servers)

	var state coord.State
	timer := time.NewTimer(timeout)
	select {
	case state = <-w.signal:
		timer.Stop()
	case <-timer.C:
		c.waiter.CompareAndSwap(w, nil)
		Logger.Warningf("[%s] init failed: timed out after %s", c.id, timeout)
		return c.abortInit(w, s, coord.Errorf(coord.StatusOperationTimeout, "no session after %s", timeout))
	}
	c.waiter.CompareAndSwap(w, nil)
	waited := time.Now()

	if state != coord.StateConnected || client.State() != coord.StateConnected {
		Logger.Errorf("[%s] init failed with wrong session state %s", c.id, state)
		return c.abortInit(w, s, coord.Errorf(coord.StatusInvalidState, "session state %s", state))
	}

	s.id = fmt.Sprintf("%016x", uint64(client.SessionID()))

	if o.auth != "" {
		if err := client.AddAuth("digest", []byte(o.auth)); err != nil {
			Logger.Errorf("[%s] add auth failed: %v", c.id, err)
			return c.abortInit(w, s, err)
		}
		Logger.Debugf("[%s] digest credentials added", c.id)
	}

	c.mu.Lock()
	c.sess = s
	if listener != nil {
		c.listener = listener
	}
	c.state = StateConnected
	c.closed = false
	c.mu.Unlock()

	sessionsActive.Inc()
	w.finish(nil)

	Logger.Infof("[%s] zookeeper init success. session = %s, time_out = %s", c.id, s.id, timeout)
	if waited.Sub(start) > timeout {
		Logger.Warningf("[%s] slow zookeeper init, %s to dial, %s to wait for the session",
			c.id, dialed.Sub(start), waited.Sub(dialed))
	}
	return nil
}

// abortInit discards the handle of a failed Init.
func (c *Coordinator) abortInit(w *initWaiter, s *session, err error) error {
	w.finish(err)
	s.close()
	c.initFailed()
	return err
}

func (c *Coordinator) initFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.state = StateClosed
	} else {
		c.state = StateUninitialized
	}
}

func (c *Coordinator) Close() {
	c.mu.Lock()
	s := c.sess
	wasConnected := s != nil && c.state == StateConnected
	c.sess = nil
	c.listener = nil
	c.closed = true
	c.state = StateClosed
	c.mu.Unlock()

	if s == nil {
		return
	}
	Logger.Infof("[%s] closing handle for session %s", c.id, s.id)
	s.close()
	if wasConnected {
		sessionsActive.Dec()
	}
}

// --------------------------------------------------------------------------
// Session transitions (called by the dispatcher)
// --------------------------------------------------------------------------

func (c *Coordinator) onSessionEvent(s *session, ev coord.Event) {
	sessionEventsTotal.WithLabelValues(ev.State.String()).Inc()
	w := c.waiter.Load()
	waiting := w != nil && w.sess == s

	switch ev.State {
	case coord.StateConnected:
		if !waiting {
			Logger.Debugf("[%s] session connected", c.id)
			return
		}
		c.mu.Lock()
		wasClosed := c.closed
		c.mu.Unlock()

		w.notify(coord.StateConnected)

		select {
		case <-w.finished:
		case <-time.After(initFinishGrace):
			Logger.Errorf("[%s] timeout for finishing init, wrong behavior?", c.id)
			return
		}
		if wasClosed && w.err == nil {
			Logger.Debugf("[%s] previous handle was closed, init finished", c.id)
			c.onSessionReconnected(s)
		}

	case coord.StateExpired:
		if waiting {
			Logger.Debugf("[%s] session expired during init", c.id)
			w.notify(coord.StateExpired)
			return
		}
		c.onSessionExpired(s)

	case coord.StateAuthFailed:
		Logger.Errorf("[%s] session authentication failed", c.id)
		if waiting {
			w.notify(coord.StateAuthFailed)
		}

	default:
		Logger.Debugf("[%s] session state %s", c.id, ev.State)
	}
}

func (c *Coordinator) onSessionExpired(s *session) {
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	wasConnected := c.state == StateConnected
	c.state = StateExpired
	c.mu.Unlock()

	if wasConnected {
		sessionsActive.Dec()
	}
	Logger.Warningf("[%s] session %s expired", c.id, s.id)
	if l, ok := c.listenerFor(s); ok {
		l.SessionExpired()
	}
}

func (c *Coordinator) onSessionReconnected(s *session) {
	l, ok := c.listenerFor(s)
	if !ok {
		return
	}
	Logger.Infof("[%s] report session reconnected. session = %s", c.id, s.id)
	l.SessionReConnected()
}

func (c *Coordinator) String() string {
	c.mu.Lock()
	servers := c.servers
	c.mu.Unlock()
	return fmt.Sprintf("Coordinator(%s, %s, servers=%s, session=%s)", c.id, c.State(), servers, c.SessionID())
}
