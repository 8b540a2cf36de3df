package zkclient

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/go-zookeeper/zk"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("zk")

// zkLogger routes the library's Printf output into the "zk" logger.
type zkLogger struct{}

func (zkLogger) Printf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// client implements coord.IClient on top of a *zk.Conn.
type client struct {
	conn   *zk.Conn
	events chan coord.Event
	acl    []zk.ACL

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens a session against a ZooKeeper ensemble. It does not wait for the
// session to be established.
func Dial(servers []string, sessionTimeout time.Duration) (coord.IClient, error) {
	conn, zkEvents, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{}))
	if err != nil {
		return nil, coord.Errorf(coord.StatusSystemError, "connect %v: %v", servers, err)
	}

	c := &client{
		conn:   conn,
		events: make(chan coord.Event, 16),
		acl:    zk.WorldACL(zk.PermAll),
		done:   make(chan struct{}),
	}
	go c.forward(zkEvents)
	return c, nil
}

// NewDialer returns Dial as a coord.Dialer.
func NewDialer() coord.Dialer {
	return Dial
}

// forward translates session events until the connection is closed.
func (c *client) forward(zkEvents <-chan zk.Event) {
	defer close(c.events)
	for {
		select {
		case ev, ok := <-zkEvents:
			if !ok {
				return
			}
			if ev.Type != zk.EventSession {
				continue
			}
			select {
			case c.events <- convertEvent(ev):
			case <-c.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

func convertState(s zk.State) coord.State {
	switch s {
	case zk.StateHasSession:
		return coord.StateConnected
	case zk.StateConnected, zk.StateConnecting:
		return coord.StateConnecting
	case zk.StateExpired:
		return coord.StateExpired
	case zk.StateAuthFailed:
		return coord.StateAuthFailed
	case zk.StateDisconnected:
		return coord.StateDisconnected
	default:
		return coord.StateUnknown
	}
}

func convertEvent(ev zk.Event) coord.Event {
	out := coord.Event{
		Type:  coord.EventType(ev.Type),
		State: convertState(ev.State),
		Path:  ev.Path,
	}
	if ev.Err != nil {
		out.Err = convertError(ev.Err, ev.Path)
	}
	return out
}

func convertStat(st *zk.Stat) *coord.Stat {
	if st == nil {
		return nil
	}
	return &coord.Stat{
		Version:        st.Version,
		Cversion:       st.Cversion,
		EphemeralOwner: st.EphemeralOwner,
		DataLength:     st.DataLength,
		NumChildren:    st.NumChildren,
		Ctime:          st.Ctime,
		Mtime:          st.Mtime,
	}
}

var errorCodes = []struct {
	err  error
	code coord.Status
}{
	{zk.ErrNoNode, coord.StatusNoNode},
	{zk.ErrNodeExists, coord.StatusNodeExists},
	{zk.ErrNoAuth, coord.StatusNoAuth},
	{zk.ErrBadVersion, coord.StatusBadVersion},
	{zk.ErrNotEmpty, coord.StatusNotEmpty},
	{zk.ErrNoChildrenForEphemerals, coord.StatusNoChildrenForEph},
	{zk.ErrSessionExpired, coord.StatusSessionExpired},
	{zk.ErrAuthFailed, coord.StatusAuthFailed},
	{zk.ErrClosing, coord.StatusClosing},
	{zk.ErrConnectionClosed, coord.StatusConnectionLoss},
	{zk.ErrNoServer, coord.StatusConnectionLoss},
	{zk.ErrInvalidPath, coord.StatusBadArguments},
}

// convertError maps a go-zookeeper error onto the coord status space.
func convertError(err error, p string) error {
	if err == nil {
		return nil
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return coord.NewError(e.code, p)
		}
	}
	return coord.Errorf(coord.StatusSystemError, "%s: %v", p, err)
}

// watch translates a single-event go-zookeeper watch channel.
func watch(in <-chan zk.Event) <-chan coord.Event {
	out := make(chan coord.Event, 1)
	go func() {
		defer close(out)
		if ev, ok := <-in; ok {
			out <- convertEvent(ev)
		}
	}()
	return out
}

// --------------------------------------------------------------------------
// Interface Methods (docu see coord/interface.go)
// --------------------------------------------------------------------------

func (c *client) SessionID() int64 {
	return c.conn.SessionID()
}

func (c *client) State() coord.State {
	return convertState(c.conn.State())
}

func (c *client) Events() <-chan coord.Event {
	return c.events
}

func (c *client) AddAuth(scheme string, auth []byte) error {
	return convertError(c.conn.AddAuth(scheme, auth), scheme)
}

func (c *client) Create(p string, data []byte, flags coord.CreateFlag) (string, error) {
	actual, err := c.conn.Create(p, data, int32(flags), c.acl)
	if err != nil {
		return "", convertError(err, p)
	}
	return actual, nil
}

func (c *client) Delete(p string, version int32) error {
	return convertError(c.conn.Delete(p, version), p)
}

func (c *client) Exists(p string) (bool, *coord.Stat, error) {
	ok, st, err := c.conn.Exists(p)
	if err != nil {
		return false, nil, convertError(err, p)
	}
	return ok, convertStat(st), nil
}

func (c *client) ExistsW(p string) (bool, *coord.Stat, <-chan coord.Event, error) {
	ok, st, ch, err := c.conn.ExistsW(p)
	if err != nil {
		return false, nil, nil, convertError(err, p)
	}
	return ok, convertStat(st), watch(ch), nil
}

func (c *client) Get(p string) ([]byte, *coord.Stat, error) {
	data, st, err := c.conn.Get(p)
	if err != nil {
		return nil, nil, convertError(err, p)
	}
	return data, convertStat(st), nil
}

func (c *client) GetW(p string) ([]byte, *coord.Stat, <-chan coord.Event, error) {
	data, st, ch, err := c.conn.GetW(p)
	if err != nil {
		return nil, nil, nil, convertError(err, p)
	}
	return data, convertStat(st), watch(ch), nil
}

func (c *client) Set(p string, data []byte, version int32) (*coord.Stat, error) {
	st, err := c.conn.Set(p, data, version)
	if err != nil {
		return nil, convertError(err, p)
	}
	return convertStat(st), nil
}

func (c *client) Children(p string) ([]string, *coord.Stat, error) {
	children, st, err := c.conn.Children(p)
	if err != nil {
		return nil, nil, convertError(err, p)
	}
	return children, convertStat(st), nil
}

func (c *client) ChildrenW(p string) ([]string, *coord.Stat, <-chan coord.Event, error) {
	children, st, ch, err := c.conn.ChildrenW(p)
	if err != nil {
		return nil, nil, nil, convertError(err, p)
	}
	return children, convertStat(st), watch(ch), nil
}

func (c *client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) String() string {
	return fmt.Sprintf("zk session %016x (%s)", c.SessionID(), c.State())
}
