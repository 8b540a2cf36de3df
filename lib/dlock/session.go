package dlock

import (
	"sync"

	"github.com/ValentinKolb/dlock/lib/coord"
	"github.com/ValentinKolb/dlock/lib/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Dispatcher tasks
// --------------------------------------------------------------------------

type taskKind uint8

const (
	taskSession      taskKind = iota // session state transition
	taskWatch                        // a fired watch
	taskLockAcquired                 // Lock found itself to be the holder
)

type task struct {
	kind  taskKind
	event coord.Event
	node  string
}

// --------------------------------------------------------------------------
// Armed watches
// --------------------------------------------------------------------------

type watchSlot uint8

const (
	slotNode  watchSlot = iota // exists and data watches, both fire on change and deletion
	slotChild                  // child watches
)

type watchKey struct {
	path string
	slot watchSlot
}

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// session bundles one service handle with its dispatcher. A Coordinator owns
// at most one current session, a replaced session keeps draining its queue
// but its events are ignored.
type session struct {
	client coord.IClient
	id     string // 16 hex digits, set before the session becomes current
	queue  *util.Queue[task]

	armed    *xsync.MapOf[watchKey, struct{}]
	deleted  *xsync.MapOf[string, struct{}]            // deletions reported by one slot, awaited by the other
	listings *xsync.MapOf[string, map[string]struct{}] // last child listing per watched node

	closeOnce sync.Once
	done      chan struct{} // closed when the dispatcher returned
}

func newSession(client coord.IClient) *session {
	return &session{
		client:   client,
		queue:    util.NewQueue[task](),
		armed:    xsync.NewMapOf[watchKey, struct{}](),
		deleted:  xsync.NewMapOf[string, struct{}](),
		listings: xsync.NewMapOf[string, map[string]struct{}](),
		done:     make(chan struct{}),
	}
}

// forwardSessionEvents moves session transitions of the client into the queue.
func (s *session) forwardSessionEvents() {
	for ev := range s.client.Events() {
		if !s.queue.Push(task{kind: taskSession, event: ev}) {
			return
		}
	}
}

// post queues a task for the dispatcher. It reports false once the session is closed.
func (s *session) post(t task) bool {
	return s.queue.Push(t)
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.queue.Close()
		s.client.Close()
	})
}

// route waits for the single event of a watch channel, disarms the watch and
// hands the event to the dispatcher.
func (s *session) route(key watchKey, ch <-chan coord.Event) {
	go func() {
		ev, ok := <-ch
		if ok && ev.Type == coord.EventNodeDeleted && !s.claimDeletion(key) {
			s.armed.Delete(key)
			return
		}
		s.armed.Delete(key)
		if !ok || ev.Type == coord.EventNotWatching {
			return
		}
		watchEventsTotal.WithLabelValues(ev.Type.String()).Inc()
		s.post(task{kind: taskWatch, event: ev})
	}()
}

// claimDeletion decides which slot reports the deletion of key.path. A deletion
// fires the node and the child slot of a path if both are armed; the first one
// to arrive reports it and leaves a claim that the other one consumes. Must be
// called while key is still armed.
func (s *session) claimDeletion(key watchKey) bool {
	other := watchKey{path: key.path, slot: slotChild}
	if key.slot == slotChild {
		other.slot = slotNode
	}
	report := true
	s.deleted.Compute(key.path, func(_ struct{}, loaded bool) (struct{}, bool) {
		if loaded {
			report = false
			return struct{}{}, true
		}
		_, partner := s.armed.Load(other)
		return struct{}{}, !partner
	})
	return report
}

// arm reserves the watch slot. It returns false if a watch is already armed there.
func (s *session) arm(key watchKey) bool {
	_, armed := s.armed.LoadOrStore(key, struct{}{})
	return !armed
}

// existsW checks for p and makes sure an exists or data watch is armed on it.
func (s *session) existsW(p string) (bool, error) {
	key := watchKey{path: p, slot: slotNode}
	if !s.arm(key) {
		ok, _, err := s.client.Exists(p)
		return ok, err
	}
	ok, _, ch, err := s.client.ExistsW(p)
	if err != nil {
		s.armed.Delete(key)
		return false, err
	}
	s.route(key, ch)
	return ok, nil
}

// getW reads p and makes sure an exists or data watch is armed on it.
func (s *session) getW(p string) ([]byte, *coord.Stat, error) {
	key := watchKey{path: p, slot: slotNode}
	if !s.arm(key) {
		return s.client.Get(p)
	}
	data, st, ch, err := s.client.GetW(p)
	if err != nil {
		s.armed.Delete(key)
		return nil, nil, err
	}
	s.route(key, ch)
	return data, st, nil
}

// childrenW lists p and makes sure a child watch is armed on it.
func (s *session) childrenW(p string) ([]string, error) {
	key := watchKey{path: p, slot: slotChild}
	if !s.arm(key) {
		children, _, err := s.client.Children(p)
		return children, err
	}
	children, _, ch, err := s.client.ChildrenW(p)
	if err != nil {
		s.armed.Delete(key)
		return nil, err
	}
	s.route(key, ch)
	return children, nil
}

// added records the listing of p and returns the children that were not in
// the previous listing.
func (s *session) added(p string, children []string) []string {
	next := make(map[string]struct{}, len(children))
	for _, c := range children {
		next[c] = struct{}{}
	}
	prev, loaded := s.listings.LoadAndStore(p, next)
	if !loaded {
		prev = nil
	}

	var out []string
	for _, c := range children {
		if _, ok := prev[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
