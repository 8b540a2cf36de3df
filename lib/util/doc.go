// Package util provides small concurrency helpers shared by the dlock packages.
//
// Queue is an unbounded multi-producer single-consumer queue built on an
// atomic linked list. Producers (watch forwarders, session event readers and
// the lock path posting synthetic events) never block on Push, while a single
// dispatcher goroutine consumes values from the Recv channel. This keeps all
// listener callbacks on one goroutine without holding any lock of the caller.
//
// Guarantees:
//
//   - Push is safe for concurrent use and never blocks on the consumer.
//   - Values pushed by one goroutine are received in push order.
//   - After Close, Push returns false and already queued values are still
//     delivered before Recv is closed.
package util
