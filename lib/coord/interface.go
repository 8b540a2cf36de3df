package coord

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// MaxDataSize is the largest payload a node may carry that clients are willing to read (1 MiB).
const MaxDataSize = 1 << 20

// AnyVersion disables the optimistic version check of Set and Delete.
const AnyVersion int32 = -1

// --------------------------------------------------------------------------
// Node Metadata
// --------------------------------------------------------------------------

// CreateFlag controls the lifetime and naming of a created node.
type CreateFlag int32

const (
	FlagPersistent CreateFlag = 0
	FlagEphemeral  CreateFlag = 1 << 0 // removed when the owning session ends
	FlagSequence   CreateFlag = 1 << 1 // the service appends a monotonically increasing suffix
)

// Stat holds the versioned metadata the service keeps for every node.
type Stat struct {
	Version        int32 // data version, incremented on every Set
	Cversion       int32 // child version, incremented on every child create/delete
	EphemeralOwner int64 // session id of the owner, 0 for persistent nodes
	DataLength     int32
	NumChildren    int32
	Ctime          int64 // creation time in milliseconds since epoch
	Mtime          int64 // last modification time in milliseconds since epoch
}

// --------------------------------------------------------------------------
// Events
// --------------------------------------------------------------------------

// EventType classifies an event delivered on a watch or session channel.
// The numeric values match the ZooKeeper wire protocol.
type EventType int32

const (
	EventNodeCreated         EventType = 1
	EventNodeDeleted         EventType = 2
	EventNodeDataChanged     EventType = 3
	EventNodeChildrenChanged EventType = 4
	EventSession             EventType = -1
	EventNotWatching         EventType = -2
)

func (t EventType) String() string {
	switch t {
	case EventNodeCreated:
		return "created"
	case EventNodeDeleted:
		return "deleted"
	case EventNodeDataChanged:
		return "changed"
	case EventNodeChildrenChanged:
		return "child"
	case EventSession:
		return "session"
	case EventNotWatching:
		return "notwatching"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

// State is the state of a session as reported on the session event channel.
type State int32

const (
	StateUnknown      State = -1
	StateDisconnected State = 0
	StateConnecting   State = 1
	StateAuthFailed   State = 4
	StateExpired      State = -112
	StateConnected    State = 100 // a session has been established
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthFailed:
		return "auth-failed"
	case StateExpired:
		return "expired"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Event is a single notification. Session events carry Type EventSession and
// the new State, watch events carry the watched Path.
type Event struct {
	Type  EventType
	State State
	Path  string
	Err   error
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Dialer opens a new session against the coordination service. The session is
// established asynchronously, progress is reported on IClient.Events().
type Dialer func(servers []string, sessionTimeout time.Duration) (IClient, error)

// IClient is the contract of a ZooKeeper-style coordination service client.
// All returned errors are of type *Error so callers can switch on the Status.
//
// Watches are one-shot: the returned channel receives exactly one event and
// is then closed. If the session is closed before the watch fires, the
// channel receives an EventNotWatching event.
type IClient interface {
	// SessionID returns the service-assigned session id, 0 while no session is established.
	SessionID() int64
	// State returns the current session state.
	State() State
	// Events returns the channel on which session state transitions are delivered.
	Events() <-chan Event
	// AddAuth adds credentials (e.g. scheme "digest", auth "user:password") to the session.
	AddAuth(scheme string, auth []byte) error

	// Create creates a node and returns its actual path (which differs from path for sequential nodes).
	Create(path string, data []byte, flags CreateFlag) (string, error)
	// Delete deletes a node if it has the given version (AnyVersion disables the check).
	Delete(path string, version int32) error
	// Exists reports whether the node exists.
	Exists(path string) (bool, *Stat, error)
	// ExistsW is Exists and arms a watch that fires on creation, deletion or data change of the node.
	ExistsW(path string) (bool, *Stat, <-chan Event, error)
	// Get returns the data of a node.
	Get(path string) ([]byte, *Stat, error)
	// GetW is Get and arms a watch that fires on data change or deletion of the node.
	GetW(path string) ([]byte, *Stat, <-chan Event, error)
	// Set replaces the data of a node if it has the given version (AnyVersion disables the check).
	Set(path string, data []byte, version int32) (*Stat, error)
	// Children returns the names of the children of a node (unordered).
	Children(path string) ([]string, *Stat, error)
	// ChildrenW is Children and arms a watch that fires on child creation/deletion or deletion of the node.
	ChildrenW(path string) ([]string, *Stat, <-chan Event, error)

	// Close ends the session. Ephemeral nodes of the session are removed by the service.
	Close()
}
