// Package zkclient implements coord.IClient against a real ZooKeeper ensemble
// using github.com/go-zookeeper/zk.
//
// The adapter is a thin translation layer:
//
//   - Session events of the underlying connection are forwarded to
//     IClient.Events() with the go-zookeeper states mapped onto coord.State
//     (a connection with an established session reports StateConnected).
//   - Every go-zookeeper error is mapped onto a coord.Error, unknown errors
//     become StatusSystemError.
//   - Watch channels are wrapped so that callers only see coord.Event values.
//   - Nodes are created with the open world ACL, credentials added through
//     AddAuth are carried by the session.
//
// Library log output is routed to the "zk" logger at debug level.
package zkclient
