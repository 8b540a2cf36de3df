// Package cmd implements the command-line interface of dlock. Every command
// opens its own session against the configured ZooKeeper ensemble, so locks
// and ephemeral nodes created by a command live as long as that command runs.
//
// The package is organized into several subpackages:
//
//   - lock: acquire a lock (optionally waiting and holding it) and check a lock
//   - attr: get, set and list node attributes
//   - node: create, list, read, write and delete nodes
//   - watch: print the listener events of a node until interrupted
//   - util: shared flags, configuration and session setup (internal use)
//
// Configuration:
//
//	--servers          DLOCK_SERVERS           127.0.0.1:2181
//	--session-timeout  DLOCK_SESSION_TIMEOUT   5000 (ms)
//	--auth             DLOCK_AUTH              user:password
//	--log-level        DLOCK_LOG_LEVEL         warn
//	--metrics-addr     DLOCK_METRICS_ADDR      e.g. :9090
//
// See dlock -help for a list of all commands.
package cmd
