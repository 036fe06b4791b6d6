package wake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueueOrderIsDeliveryOrder(t *testing.T) {
	q := NewQueue()
	q.Post(SourceTimer)
	q.Post(SourceVoltage)

	ctx := context.Background()
	first, err := q.Wait(ctx)
	if err != nil || first != SourceTimer {
		t.Fatalf("first = %v, %v", first, err)
	}
	second, err := q.Wait(ctx)
	if err != nil || second != SourceVoltage {
		t.Fatalf("second = %v, %v", second, err)
	}
	if q.Pending() {
		t.Fatal("queue should be empty")
	}
}

func TestQueueCoalescesPerSource(t *testing.T) {
	q := NewQueue()
	q.Post(SourceVoltage)
	q.Post(SourceVoltage)
	q.Post(SourceVoltage)

	if q.Coalesced() != 2 {
		t.Fatalf("coalesced = %d, want 2", q.Coalesced())
	}
	if s, ok := q.TryNext(); !ok || s != SourceVoltage {
		t.Fatalf("TryNext = %v, %v", s, ok)
	}
	if _, ok := q.TryNext(); ok {
		t.Fatal("only one voltage event may be pending")
	}
	// Once consumed the source can be posted again.
	q.Post(SourceVoltage)
	if !q.IsPending(SourceVoltage) {
		t.Fatal("voltage should be pending again")
	}
}

func TestQueueIgnoresUnknownSources(t *testing.T) {
	q := NewQueue()
	q.Post(SourceNone)
	q.Post(Source(42))
	if q.Pending() {
		t.Fatal("unknown sources must not be queued")
	}
	if q.IsPending(Source(42)) {
		t.Fatal("IsPending on unknown source")
	}
}

func TestQueueWaitHonoursContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestQueueConcurrentPosters(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				q.Post(SourceTimer)
			} else {
				q.Post(SourceVoltage)
			}
		}(i)
	}
	wg.Wait()

	seen := map[Source]int{}
	for {
		s, ok := q.TryNext()
		if !ok {
			break
		}
		seen[s]++
	}
	if seen[SourceTimer] != 1 || seen[SourceVoltage] != 1 {
		t.Fatalf("seen = %v", seen)
	}
	if q.Coalesced() != 14 {
		t.Fatalf("coalesced = %d", q.Coalesced())
	}
}
