package dlock

import (
	"strings"

	"github.com/ValentinKolb/dlock/lib/coord"
)

// dispatch is the single consumer of a session's queue. Handlers run here one
// at a time and may call back into the Coordinator.
func (c *Coordinator) dispatch(s *session) {
	defer close(s.done)
	for t := range s.queue.Recv() {
		switch t.kind {
		case taskSession:
			c.onSessionEvent(s, t.event)
		case taskLockAcquired:
			c.onLockHeld(s, t.node)
		case taskWatch:
			c.onWatch(s, t.event)
		}
	}
}

func (c *Coordinator) onWatch(s *session, ev coord.Event) {
	l, current := c.listenerFor(s)
	if !current {
		return
	}
	Logger.Debugf("watcher %s event, path = %s", ev.Type, ev.Path)

	switch ev.Type {
	case coord.EventNodeDataChanged:
		c.onNodeChanged(s, l, ev.Path)
	case coord.EventNodeDeleted:
		c.onNodeDeleted(s, l, ev.Path)
	case coord.EventNodeChildrenChanged:
		c.onChildNode(s, l, ev.Path)
	case coord.EventNodeCreated:
		Logger.Debugf("report node create. node = %s", ev.Path)
		l.NodeCreate(ev.Path)
	}
}

func (c *Coordinator) onNodeChanged(s *session, l IListener, node string) {
	if value, _, err := s.getW(node); err != nil {
		Logger.Debugf("set data change watch on node failed. node = %s: %v", node, err)
	} else if len(value) <= coord.MaxDataSize {
		l.DataChange(node, value)
	}

	if isAttrNode(node) {
		parent, err := parentPath(node)
		if err != nil {
			return
		}
		attr := pureAttrName(node)
		Logger.Debugf("report attr change, node = %s, attr = %s", parent, attr)
		l.AttrChange(parent, attr)
	}
}

func (c *Coordinator) onNodeDeleted(s *session, l IListener, node string) {
	if owner, ok := lockOwnerOf(node); ok && !isLockDir(node) {
		if name, err := baseName(node); err == nil && strings.HasPrefix(name, s.id+"-") {
			// own entry removed, a later acquisition is a new one
			c.clearProcessed(s, owner)
		}
		Logger.Debugf("node release lock. node = %s", owner)
		l.LockReleased(owner)
		return
	}
	Logger.Debugf("report node delete. node = %s", node)
	l.NodeDel(node)
}

func (c *Coordinator) onChildNode(s *session, l IListener, node string) {
	children, err := s.childrenW(node)
	if err != nil {
		Logger.Debugf("set children watch on node %s failed: %v", node, err)
	}
	l.ChildEvent(node)

	if isLockDir(node) {
		c.onLockDirChanged(s, l, node, children)
		return
	}

	for _, child := range s.added(node, children) {
		l.ChildChange(node, child)
	}

	for _, child := range children {
		p := node + "/" + child
		if !isAttrNode(child) {
			if c.processedFlag(s, p) != notProcessed {
				Logger.Debugf("node %s has been delt", p)
				continue
			}
			if err := c.setWatcher(s, p, EventMaskChildChanged); err != nil {
				Logger.Debugf("set child watch on node %s failed: %v", p, err)
			}
			if locked, _ := c.isLocked(s, p); locked {
				c.setProcessed(s, p)
				Logger.Debugf("report lock acquired. node = %s", p)
				l.LockAcquired(p)
			}
			continue
		}

		if !isLockDir(child) {
			continue
		}
		if err := c.setWatcher(s, p, EventMaskChildChanged); err != nil {
			Logger.Debugf("set child watch on node %s failed: %v", p, err)
		}
		if c.processedFlag(s, node) != notProcessed {
			continue
		}
		if locked, _ := c.isLocked(s, node); locked {
			c.setProcessed(s, node)
			Logger.Debugf("report lock acquire, node = %s", node)
			l.LockAcquired(node)
		}
	}
}

// onLockDirChanged handles a change of the contenders of a lock directory.
// Only the session holding the lock reports it.
func (c *Coordinator) onLockDirChanged(s *session, l IListener, dir string, children []string) {
	owner, ok := lockOwnerOf(dir)
	if !ok {
		return
	}
	if len(children) == 0 {
		Logger.Debugf("node = %s, maybe lose lock", dir)
		return
	}

	sortContenders(children)
	holder := dir + "/" + children[0]
	if _, err := s.existsW(holder); err != nil {
		Logger.Errorf("zoo exist set lock failed. node = %s: %v", holder, err)
		return
	}
	if !strings.HasPrefix(children[0], s.id+"-") {
		return
	}
	c.reportLockAcquired(s, l, owner)
}

// onLockHeld is posted by Lock once this session holds the lock of node.
func (c *Coordinator) onLockHeld(s *session, node string) {
	l, current := c.listenerFor(s)
	if !current {
		return
	}
	c.reportLockAcquired(s, l, node)
}

// reportLockAcquired reports the lock of node once per acquisition, the
// processed marker on the node remembers that it was reported.
func (c *Coordinator) reportLockAcquired(s *session, l IListener, node string) {
	switch c.processedFlag(s, node) {
	case processed:
		duplicateSuppressedTotal.Inc()
		Logger.Debugf("lock of %s already reported", node)
		return
	case processedError:
		return
	}
	c.setProcessed(s, node)
	Logger.Debugf("report lock acquired. path = %s", node)
	l.LockAcquired(node)
}
