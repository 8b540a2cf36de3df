package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Linked list
// --------------------------------------------------------------------------

type qnode[T any] struct {
	value T
	next  atomic.Pointer[qnode[T]]
}

// --------------------------------------------------------------------------
// Queue
// --------------------------------------------------------------------------

// Queue is an unbounded multi-producer single-consumer queue. Producers never
// block, values are handed to the consumer through the Recv channel in the
// order in which their Push completed.
type Queue[T any] struct {
	head   atomic.Pointer[qnode[T]] // owned by the pump goroutine
	tail   atomic.Pointer[qnode[T]]
	out    chan T
	closed atomic.Bool
	pushed atomic.Int64
	popped atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
}

// NewQueue creates a queue and starts the goroutine feeding Recv.
func NewQueue[T any]() *Queue[T] {
	sentinel := &qnode[T]{}

	q := &Queue[T]{out: make(chan T)}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.pump()
	return q
}

// Push appends value. It returns false if the queue has been closed.
// Push is safe for concurrent use.
func (q *Queue[T]) Push(value T) bool {
	if q.closed.Load() {
		return false
	}

	n := &qnode[T]{value: value}
	var spins uint8

	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next != nil {
			// another producer linked a node but has not moved the tail yet
			q.tail.CompareAndSwap(tail, next)
		} else if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.pushed.Add(1)

			q.mu.Lock()
			q.cond.Signal()
			q.mu.Unlock()
			return true
		}

		// spin briefly under contention, then yield
		if spins < 8 {
			spins++
			for i := 0; i < 1<<spins; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// pump moves values from the list to the out channel until the queue is
// closed and drained.
func (q *Queue[T]) pump() {
	defer close(q.out)

	var zero T
	for {
		head := q.head.Load()
		next := head.next.Load()

		if next != nil {
			value := next.value
			q.head.Store(next)
			q.out <- value
			q.popped.Add(1)
			next.value = zero
			continue
		}

		q.mu.Lock()
		if q.head.Load().next.Load() == nil {
			if q.closed.Load() {
				q.mu.Unlock()
				return
			}
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}

// Recv returns the channel the consumer reads from. The channel is closed
// once the queue is closed and every pushed value has been received.
func (q *Queue[T]) Recv() <-chan T {
	return q.out
}

// Close rejects further pushes. Values already queued are still delivered.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed.Store(true)
	q.cond.Signal()
	q.mu.Unlock()
}

// IsClosed reports whether Close has been called.
func (q *Queue[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of values pushed but not yet received.
func (q *Queue[T]) Len() int {
	return int(q.pushed.Load() - q.popped.Load())
}
