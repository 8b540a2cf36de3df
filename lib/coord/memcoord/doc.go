// Package memcoord implements coord.IClient with an in-process coordination
// service. A Server holds a single node tree in memory and hands out any number
// of sessions through its Dialer, so several lock clients in one process see
// each other exactly as they would through a real ensemble.
//
// Supported semantics:
//
//   - Persistent, ephemeral and sequential nodes. Sequence suffixes are ten
//     zero-padded digits taken from a per-parent counter.
//   - Versioned data with optimistic Set and Delete.
//   - One-shot exists, data and child watches. Node creation fires exists
//     watches on the node and child watches on the parent. Deletion fires all
//     watches on the node and child watches on the parent. Data changes fire
//     exists and data watches.
//   - Session expiry via Server.Expire: ephemeral nodes of the session are
//     removed (firing the watches of other sessions), the session's own watches
//     receive EventNotWatching and the session reports StateExpired.
//
// Test hooks:
//
//	Server.SetConnectDelay delays (or with a negative value suppresses) the
//	connected event of newly dialed sessions. Server.FailNext makes the next
//	operations fail with a chosen status, e.g. coord.StatusConnectionLoss.
//
// ACLs are not enforced; AddAuth accepts any digest credential.
//
// Usage Example:
//
//	srv := memcoord.NewServer()
//	c := dlock.New(srv.Dialer())
//	err := c.Init("local", listener, 5*time.Second)
package memcoord
