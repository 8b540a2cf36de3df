// Package coord defines the contract between the locking layer and a
// ZooKeeper-style coordination service: a hierarchical tree of nodes with
// ephemeral and sequential node support, versioned data and one-shot watches.
//
// The package is intentionally small. It contains no implementation, only:
//
//   - IClient: the operations the locking layer consumes (create, delete,
//     exists, get, set, children, add-auth) together with their watching
//     variants and the session event channel.
//
//   - Dialer: a factory that opens a new session. Everything above this
//     package receives a Dialer instead of a concrete client, which keeps the
//     real service and the in-process service interchangeable.
//
//   - Status / Error: the status space of the ZooKeeper C client. Every error
//     returned by an IClient is an *Error carrying a Status, so callers can
//     treat benign protocol errors (no-node, node-exists) as success in
//     idempotent paths and surface everything else.
//
// Implementations:
//
//   - zkclient: backed by github.com/go-zookeeper/zk, talks to a real
//     ZooKeeper ensemble. Available in "github.com/ValentinKolb/dlock/lib/coord/zkclient".
//
//   - memcoord: an in-process service holding the tree in memory. It supports
//     multiple sessions, ephemeral and sequential nodes, one-shot watches and
//     forced session expiry, which makes it suitable for tests and for
//     single-process deployments. Available in "github.com/ValentinKolb/dlock/lib/coord/memcoord".
//
// Watch Semantics:
//
//	A watch is armed by the W-variant of a read (ExistsW, GetW, ChildrenW)
//	and delivers exactly one Event on the returned channel. Closing the
//	session delivers an EventNotWatching event to every outstanding watch.
//	Session transitions are never delivered on watch channels, only on
//	IClient.Events().
package coord
