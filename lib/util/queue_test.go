package util

import (
	"sync"
	"testing"
	"time"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d rejected", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case v := <-q.Recv():
			if v != i {
				t.Errorf("expected %d, got %d", i, v)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %d", i)
		}
	}

	select {
	case v := <-q.Recv():
		t.Errorf("queue should be empty, got %d", v)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()
	defer q.Close()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(p*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool, producers*perProducer)
	lastPerProducer := make([]int, producers)
	for i := range lastPerProducer {
		lastPerProducer[i] = -1
	}

	for len(seen) < producers*perProducer {
		select {
		case v := <-q.Recv():
			if seen[v] {
				t.Fatalf("duplicate value %d", v)
			}
			seen[v] = true
			p, i := v/perProducer, v%perProducer
			if i <= lastPerProducer[p] {
				t.Fatalf("producer %d out of order: %d after %d", p, i, lastPerProducer[p])
			}
			lastPerProducer[p] = i
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout after %d values", len(seen))
		}
	}
	wg.Wait()
}

func TestQueueClose(t *testing.T) {
	q := NewQueue[string]()

	q.Push("a")
	q.Push("b")
	q.Close()

	if !q.IsClosed() {
		t.Error("queue should report closed")
	}
	if q.Push("c") {
		t.Error("push after close should be rejected")
	}

	var got []string
	timeout := time.After(time.Second)
	for done := false; !done; {
		select {
		case v, ok := <-q.Recv():
			if !ok {
				done = true
				continue
			}
			got = append(got, v)
		case <-timeout:
			t.Fatal("recv channel was not closed")
		}
	}

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected queued values to drain, got %v", got)
	}
}

func TestQueueLen(t *testing.T) {
	q := NewQueue[int]()
	defer q.Close()

	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
	q.Push(1)
	q.Push(2)
	q.Push(3)

	<-q.Recv()
	<-q.Recv()
	<-q.Recv()

	// popped is counted after the send returns
	deadline := time.Now().Add(time.Second)
	for q.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if q.Len() != 0 {
		t.Errorf("expected drained queue, got %d", q.Len())
	}
}

func BenchmarkQueuePush(b *testing.B) {
	q := NewQueue[int]()
	defer q.Close()

	go func() {
		for range q.Recv() {
		}
	}()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(i)
			i++
		}
	})
}
