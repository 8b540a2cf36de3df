// Package dlock implements distributed locks and node attributes on top of a
// ZooKeeper-style coordination service (see package coord).
//
// A Coordinator owns one session against the service. Callers use it to take
// and release locks on nodes, to attach small versioned attributes to nodes
// and to subscribe to changes through an IListener.
//
// Tree Layout:
//
//	/r                          any node can be locked or carry attributes
//	/r/zoo_attr_<name>          attribute <name> of /r
//	/r/zoo_attr_lock            lock directory of /r
//	/r/zoo_attr_lock/<sid>-<n>  ephemeral sequential contender of session <sid>
//	/r/zoo_attr_delt            session id that already reported the lock of /r
//
// The names are shared with existing deployments and must not change.
//
// Lock Protocol:
//
//	Lock makes sure the lock directory exists, looks up the contender of its
//	session (creating an ephemeral sequential one if there is none), and sorts
//	all contenders by their sequence suffix. The smallest contender holds the
//	lock. Every other contender watches only its direct predecessor, so a
//	release wakes exactly one waiter. A blocking Lock waits for that watch or
//	for its context, a non-blocking Lock fails with coord.ErrLockBusy and
//	leaves its contender in place. The directory and contender steps are
//	retried up to three times on connection loss.
//
//	UnLock deletes the contender of the session if it is the holder and fails
//	with coord.ErrNoAuth otherwise. A node without contenders counts as unlocked.
//
// Event Dispatch:
//
//	Watches of a session deliver their events into a lock-free queue that a
//	single dispatcher goroutine drains (one per session). The dispatcher re-arms
//	watches, classifies the event and calls the listener. Listener methods may
//	therefore call any Coordinator method. Each (path, kind) watch is armed at
//	most once per session.
//
//	LockAcquired is reported once per acquisition. The processed marker
//	(zoo_attr_delt) records the session that reported it and survives a client
//	restart, UnLock clears it when it carries the unlocking session.
//
// Session Lifecycle:
//
//	uninitialized -> connecting -> connected -> expired | closed
//
//	Init dials a new session (session timeout 0.8 * timeout) and waits until it
//	is connected. It fails with StatusSystemError if the dial fails, with
//	StatusOperationTimeout if no session is established in time and with
//	StatusInvalidState if the session expired or failed authentication while
//	waiting. An Init after Close reports SessionReConnected to the listener.
//	Session expiry outside of Init is reported through SessionExpired.
//
// Usage Example:
//
//	c := dlock.New(zkclient.NewDialer())
//	if err := c.Init("zk1:2181,zk2:2181", dlock.BaseListener{}, 5*time.Second); err != nil {
//		return err
//	}
//	defer c.Close()
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	if err := c.Lock(ctx, "/jobs/nightly", true); err != nil {
//		return err
//	}
//	defer c.UnLock("/jobs/nightly")
package dlock
