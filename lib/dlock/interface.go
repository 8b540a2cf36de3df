package dlock

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Event Mask
// --------------------------------------------------------------------------

// EventMask selects the watches SetWatcher installs on a node.
type EventMask uint32

const (
	EventMaskNone               EventMask = 0x00
	EventMaskAttrChanged        EventMask = 0x01 // data watch on every attribute child
	EventMaskChildChanged       EventMask = 0x02 // child watch on the node
	EventMaskLockRelease        EventMask = 0x04 // exists watch on the current lock holder
	EventMaskDataChanged        EventMask = 0x08 // data watch on the node
	EventMaskLockAcquired       EventMask = 0x10 // child watch on the lock directory, only the holding session is notified
	EventMaskSessionExpired     EventMask = 0x20
	EventMaskSessionReconnected EventMask = 0x40
	EventMaskNodeEvent          EventMask = 0x80 // exists watch on the node
)

var maskNames = []struct {
	mask EventMask
	name string
}{
	{EventMaskAttrChanged, "attr"},
	{EventMaskChildChanged, "child"},
	{EventMaskLockRelease, "release"},
	{EventMaskDataChanged, "data"},
	{EventMaskLockAcquired, "acquired"},
	{EventMaskSessionExpired, "expired"},
	{EventMaskSessionReconnected, "reconnected"},
	{EventMaskNodeEvent, "node"},
}

func (m EventMask) String() string {
	if m == EventMaskNone {
		return "none"
	}
	var parts []string
	for _, n := range maskNames {
		if m&n.mask != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseEventMask parses a comma separated list of mask names
// (attr, child, release, data, acquired, expired, reconnected, node, none, all).
func ParseEventMask(s string) (EventMask, error) {
	var m EventMask
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "", "none":
			continue
		case "all":
			for _, n := range maskNames {
				m |= n.mask
			}
			continue
		}
		found := false
		for _, n := range maskNames {
			if n.name == part {
				m |= n.mask
				found = true
				break
			}
		}
		if !found {
			return EventMaskNone, fmt.Errorf("unknown event mask %q", part)
		}
	}
	return m, nil
}

// --------------------------------------------------------------------------
// Data Types
// --------------------------------------------------------------------------

// Attr is a named attribute of a node.
type Attr struct {
	Name  string
	Value []byte
}

// State is the lifecycle state of a Coordinator.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateExpired
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateExpired:
		return "expired"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// --------------------------------------------------------------------------
// Listener Interface
// --------------------------------------------------------------------------

// IListener receives the semantic events of a Coordinator. All methods are
// called from the session's dispatcher goroutine, one at a time. A listener may
// call back into the Coordinator.
type IListener interface {
	// AttrChange is called when attribute attr of node changed.
	AttrChange(node, attr string)
	// NodeDel is called when a watched node was deleted.
	NodeDel(node string)
	// DataChange is called with the new value of a watched node.
	DataChange(node string, value []byte)
	// ChildEvent is called when the set of children of node changed.
	ChildEvent(node string)
	// ChildChange is called for every child that was added to node.
	ChildChange(node, child string)
	// LockAcquired is called when node became locked.
	LockAcquired(node string)
	// LockReleased is called when the lock holder of node went away.
	LockReleased(node string)
	// NodeCreate is called when a watched node was created.
	NodeCreate(node string)
	// SessionExpired is called when the session expired outside of Init.
	SessionExpired()
	// SessionReConnected is called when a closed instance connected again.
	SessionReConnected()
}

// --------------------------------------------------------------------------
// Coordinator Interface
// --------------------------------------------------------------------------

// ICoordinator is the operation surface of a Coordinator.
//
// All paths are absolute ("/a/b"). Every operation returns a *coord.Error on
// failure (or a context error for a cancelled Lock), use coord.StatusOf or
// errors.Is with the coord sentinels to inspect it.
type ICoordinator interface {
	// Init opens a new session and blocks until it is connected, the
	// timeout elapses or the session fails. An existing session is replaced.
	Init(servers string, listener IListener, timeout time.Duration, opts ...InitOption) error
	// Close ends the session. Further operations fail with coord.ErrClosed.
	Close()

	// Lock acquires the lock on node. A non-blocking call fails with
	// coord.ErrLockBusy if another session holds the lock, a blocking call
	// waits until the lock is acquired or ctx is done.
	Lock(ctx context.Context, node string, blocking bool) error
	// UnLock releases the lock on node. It fails with coord.ErrNoAuth if the
	// session is not the holder and succeeds if node is not locked.
	UnLock(node string) error
	// IsLocked reports whether any session holds the lock on node.
	IsLocked(node string) (bool, error)

	// SetAttr creates or updates attribute name of node. version -1 disables the version check.
	SetAttr(node, name string, value []byte, version int32, mask EventMask) error
	// GetAttr returns the value and version of attribute name of node.
	GetAttr(node, name string) ([]byte, int32, error)
	// ListAttr returns all attributes of dir.
	ListAttr(dir string) ([]Attr, error)
	// ListNode returns the names of all non-attribute children of dir.
	ListNode(dir string) ([]string, error)
	// SetData replaces the data of node. version -1 disables the version check.
	SetData(node string, value []byte, version int32) error
	// GetData returns the data and version of node.
	GetData(node string) ([]byte, int32, error)

	// MkDir creates a persistent node without data.
	MkDir(dir string, mask EventMask) error
	// CreateNode creates a node without data.
	CreateNode(path string, mask EventMask, ephemeral bool) error
	// CreateNodeWithVal creates a node holding val. An existing node counts as success.
	CreateNodeWithVal(path string, mask EventMask, val []byte, ephemeral bool) error
	// Unlink deletes node and everything below it.
	Unlink(node string) error
	// Exists reports whether node exists.
	Exists(node string) (bool, error)
	// SetWatcher installs the watches selected by mask on node.
	SetWatcher(node string, mask EventMask) error

	// SessionID returns the session id as 16 hex digits, "" without a session.
	SessionID() string
	// State returns the lifecycle state.
	State() State
}
