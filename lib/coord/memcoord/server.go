package memcoord

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("memcoord")

// firstSessionID makes in-process session ids look like the ids a real
// ensemble hands out (a server id in the high bits).
const firstSessionID int64 = 0x0100000000000000

// --------------------------------------------------------------------------
// Tree
// --------------------------------------------------------------------------

type znode struct {
	data     []byte
	stat     coord.Stat
	children map[string]struct{}
	nextSeq  int32
}

type watchKind uint8

const (
	watchExist watchKind = iota // ExistsW
	watchData                   // GetW
	watchChild                  // ChildrenW
)

type watcher struct {
	owner *session
	ch    chan coord.Event
}

// fire delivers ev and closes the channel. Each watcher is fired at most once
// because it is always removed from its table before being fired.
func (w *watcher) fire(ev coord.Event) {
	w.ch <- ev
	close(w.ch)
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Server is an in-process coordination service. All sessions created through
// its Dialer share one tree.
type Server struct {
	mu    sync.Mutex // guards the tree and all watch tables
	nodes map[string]*znode

	watches  [3]*xsync.MapOf[string, []*watcher]
	sessions *xsync.MapOf[int64, *session]
	nextID   atomic.Int64

	connectDelay atomic.Int64 // nanoseconds, negative means never connect

	faultMu    sync.Mutex
	faultCount int
	faultCode  coord.Status
}

// NewServer creates a server holding only the root node.
func NewServer() *Server {
	s := &Server{
		nodes:    map[string]*znode{"/": newZnode(nil, 0)},
		sessions: xsync.NewMapOf[int64, *session](),
	}
	for i := range s.watches {
		s.watches[i] = xsync.NewMapOf[string, []*watcher]()
	}
	s.nextID.Store(firstSessionID)
	return s
}

func newZnode(data []byte, owner int64) *znode {
	now := time.Now().UnixMilli()
	return &znode{
		data:     data,
		children: make(map[string]struct{}),
		stat: coord.Stat{
			EphemeralOwner: owner,
			DataLength:     int32(len(data)),
			Ctime:          now,
			Mtime:          now,
		},
	}
}

// Dialer returns a coord.Dialer opening sessions against this server.
func (s *Server) Dialer() coord.Dialer {
	return func(servers []string, sessionTimeout time.Duration) (coord.IClient, error) {
		return s.Connect(sessionTimeout), nil
	}
}

// SetConnectDelay delays the connected event of sessions dialed afterwards.
// A negative delay leaves new sessions connecting forever.
func (s *Server) SetConnectDelay(d time.Duration) {
	s.connectDelay.Store(int64(d))
}

// FailNext makes the next n operations (of any session) fail with code.
func (s *Server) FailNext(n int, code coord.Status) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faultCount = n
	s.faultCode = code
}

func (s *Server) injectedFault(op, p string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if s.faultCount <= 0 {
		return nil
	}
	s.faultCount--
	log.Debugf("injecting %s into %s %s", s.faultCode, op, p)
	return coord.NewError(s.faultCode, fmt.Sprintf("injected %s %s", op, p))
}

// Connect opens a new session. The session reports StateConnecting right away
// and StateConnected asynchronously.
func (s *Server) Connect(sessionTimeout time.Duration) coord.IClient {
	sess := &session{
		srv:     s,
		id:      s.nextID.Add(1),
		timeout: sessionTimeout,
		events:  make(chan coord.Event, 16),
		done:    make(chan struct{}),
	}
	sess.state.Store(int32(coord.StateConnecting))
	s.sessions.Store(sess.id, sess)

	delay := time.Duration(s.connectDelay.Load())
	go sess.establish(delay)
	return sess
}

// Expire forcibly expires a session the way the ensemble does after the
// session timeout: its ephemeral nodes are removed, its watches are dropped
// and the session receives StateExpired. It reports whether the session existed.
func (s *Server) Expire(sessionID int64) bool {
	sess, ok := s.sessions.LoadAndDelete(sessionID)
	if !ok {
		return false
	}
	sess.terminate(coord.StateExpired)
	return true
}

// Sessions returns the ids of all live sessions in ascending order.
func (s *Server) Sessions() []int64 {
	var ids []int64
	s.sessions.Range(func(id int64, _ *session) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --------------------------------------------------------------------------
// Tree operations, all called with s.mu held
// --------------------------------------------------------------------------

func validatePath(p string, allowSeqSuffix bool) error {
	if p == "" || p[0] != '/' {
		return coord.Errorf(coord.StatusBadArguments, "path must start with /: %q", p)
	}
	if p == "/" {
		return nil
	}
	if strings.HasSuffix(p, "/") && !allowSeqSuffix {
		return coord.Errorf(coord.StatusBadArguments, "path must not end with /: %q", p)
	}
	if strings.Contains(p, "//") {
		return coord.Errorf(coord.StatusBadArguments, "empty path component: %q", p)
	}
	return nil
}

func (s *Server) create(owner *session, p string, data []byte, flags coord.CreateFlag) (string, error) {
	sequential := flags&coord.FlagSequence != 0
	if err := validatePath(p, sequential); err != nil {
		return "", err
	}
	if p == "/" {
		return "", coord.NewError(coord.StatusNodeExists, p)
	}

	parentPath := path.Dir(strings.TrimSuffix(p, "/"))
	if strings.HasSuffix(p, "/") {
		parentPath = strings.TrimSuffix(p, "/")
	}
	parent, ok := s.nodes[parentPath]
	if !ok {
		return "", coord.NewError(coord.StatusNoNode, parentPath)
	}
	if parent.stat.EphemeralOwner != 0 {
		return "", coord.NewError(coord.StatusNoChildrenForEph, parentPath)
	}

	actual := p
	if sequential {
		actual = fmt.Sprintf("%s%010d", p, parent.nextSeq)
	}
	if _, exists := s.nodes[actual]; exists {
		return "", coord.NewError(coord.StatusNodeExists, actual)
	}
	if sequential {
		parent.nextSeq++
	}

	var ownerID int64
	if flags&coord.FlagEphemeral != 0 {
		ownerID = owner.id
	}
	s.nodes[actual] = newZnode(append([]byte(nil), data...), ownerID)

	parent.children[path.Base(actual)] = struct{}{}
	parent.stat.Cversion++
	parent.stat.NumChildren = int32(len(parent.children))

	s.trigger(watchExist, actual, coord.EventNodeCreated)
	s.trigger(watchChild, parentPath, coord.EventNodeChildrenChanged)
	return actual, nil
}

func (s *Server) delete(p string, version int32) error {
	if err := validatePath(p, false); err != nil {
		return err
	}
	if p == "/" {
		return coord.Errorf(coord.StatusBadArguments, "cannot delete root")
	}
	n, ok := s.nodes[p]
	if !ok {
		return coord.NewError(coord.StatusNoNode, p)
	}
	if version != coord.AnyVersion && version != n.stat.Version {
		return coord.NewError(coord.StatusBadVersion, p)
	}
	if len(n.children) > 0 {
		return coord.NewError(coord.StatusNotEmpty, p)
	}
	s.remove(p)
	return nil
}

// remove unlinks a childless node and fires the affected watches.
func (s *Server) remove(p string) {
	delete(s.nodes, p)
	parentPath := path.Dir(p)
	if parent, ok := s.nodes[parentPath]; ok {
		delete(parent.children, path.Base(p))
		parent.stat.Cversion++
		parent.stat.NumChildren = int32(len(parent.children))
	}

	s.trigger(watchExist, p, coord.EventNodeDeleted)
	s.trigger(watchData, p, coord.EventNodeDeleted)
	s.trigger(watchChild, p, coord.EventNodeDeleted)
	s.trigger(watchChild, parentPath, coord.EventNodeChildrenChanged)
}

func (s *Server) set(p string, data []byte, version int32) (*coord.Stat, error) {
	if err := validatePath(p, false); err != nil {
		return nil, err
	}
	n, ok := s.nodes[p]
	if !ok {
		return nil, coord.NewError(coord.StatusNoNode, p)
	}
	if version != coord.AnyVersion && version != n.stat.Version {
		return nil, coord.NewError(coord.StatusBadVersion, p)
	}
	n.data = append([]byte(nil), data...)
	n.stat.Version++
	n.stat.DataLength = int32(len(data))
	n.stat.Mtime = time.Now().UnixMilli()

	s.trigger(watchExist, p, coord.EventNodeDataChanged)
	s.trigger(watchData, p, coord.EventNodeDataChanged)
	st := n.stat
	return &st, nil
}

func (s *Server) get(p string) (*znode, error) {
	if err := validatePath(p, false); err != nil {
		return nil, err
	}
	n, ok := s.nodes[p]
	if !ok {
		return nil, coord.NewError(coord.StatusNoNode, p)
	}
	return n, nil
}

func (n *znode) childNames() []string {
	names := make([]string, 0, len(n.children))
	for c := range n.children {
		names = append(names, c)
	}
	return names
}

// --------------------------------------------------------------------------
// Watch tables
// --------------------------------------------------------------------------

func (s *Server) addWatch(kind watchKind, owner *session, p string) <-chan coord.Event {
	w := &watcher{owner: owner, ch: make(chan coord.Event, 1)}
	s.watches[kind].Compute(p, func(old []*watcher, _ bool) ([]*watcher, bool) {
		return append(old, w), false
	})
	return w.ch
}

func (s *Server) trigger(kind watchKind, p string, typ coord.EventType) {
	ws, ok := s.watches[kind].LoadAndDelete(p)
	if !ok {
		return
	}
	for _, w := range ws {
		w.fire(coord.Event{Type: typ, State: coord.StateConnected, Path: p})
	}
}

// dropWatches removes every watch owned by sess and fires it with a
// not-watching event.
func (s *Server) dropWatches(sess *session, err error) {
	for _, table := range s.watches {
		var dropped []*watcher
		var paths []string
		table.Range(func(p string, _ []*watcher) bool {
			paths = append(paths, p)
			return true
		})
		for _, p := range paths {
			table.Compute(p, func(old []*watcher, loaded bool) ([]*watcher, bool) {
				kept := old[:0:0]
				for _, w := range old {
					if w.owner == sess {
						dropped = append(dropped, w)
					} else {
						kept = append(kept, w)
					}
				}
				return kept, len(kept) == 0
			})
		}
		for _, w := range dropped {
			w.fire(coord.Event{Type: coord.EventNotWatching, State: coord.StateDisconnected, Err: err})
		}
	}
}

// removeEphemerals deletes every node owned by the session, deepest first.
func (s *Server) removeEphemerals(owner int64) {
	var owned []string
	for p, n := range s.nodes {
		if n.stat.EphemeralOwner == owner {
			owned = append(owned, p)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return len(owned[i]) > len(owned[j]) })
	for _, p := range owned {
		s.remove(p)
	}
}
