package buffer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/okian/beacon/internal/domain/event"
)

func testEvent(id string) event.Event {
	return event.Event{
		ID:     id,
		Entity: event.EntityPage,
		Action: event.ActionView,
		AppID:  "test",
	}
}

func TestBuffer_BasicOperations(t *testing.T) {
	b := New(WithInitialCapacity(4))
	ctx := context.Background()

	if l := b.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	b.Push(ctx, testEvent("a"))
	b.Push(ctx, testEvent("b"))

	if l := b.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}

	batch := b.Drain(ctx)
	if len(batch) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(batch))
	}
	if batch[0].ID != "a" || batch[1].ID != "b" {
		t.Errorf("expected insertion order [a b], got [%s %s]", batch[0].ID, batch[1].ID)
	}

	if l := b.Len(ctx); l != 0 {
		t.Errorf("expected length 0 after drain, got %d", l)
	}
}

func TestBuffer_EmptyDrain(t *testing.T) {
	b := New()
	ctx := context.Background()

	batch := b.Drain(ctx)
	if len(batch) != 0 {
		t.Errorf("expected empty batch, got %d events", len(batch))
	}

	// Draining twice in a row must stay a no-op.
	batch = b.Drain(ctx)
	if len(batch) != 0 {
		t.Errorf("expected empty batch on repeat drain, got %d events", len(batch))
	}
}

func TestBuffer_DrainedBatchIsDetached(t *testing.T) {
	b := New()
	ctx := context.Background()

	b.Push(ctx, testEvent("before"))
	batch := b.Drain(ctx)

	// Pushes after the drain must not show up in the already-drained batch.
	b.Push(ctx, testEvent("after"))

	if len(batch) != 1 || batch[0].ID != "before" {
		t.Fatalf("drained batch mutated after drain: %+v", batch)
	}
	if l := b.Len(ctx); l != 1 {
		t.Errorf("expected 1 event accumulating, got %d", l)
	}
}

// TestBuffer_NoLossNoDuplication drives concurrent pushers against repeated
// drains with randomized goroutine counts and checks that the multiset union
// of all drained batches equals exactly the set of pushed events.
func TestBuffer_NoLossNoDuplication(t *testing.T) {
	for round := 0; round < 5; round++ {
		b := New()
		ctx := context.Background()

		numPushers := 2 + rand.Intn(8)
		eventsPerPusher := 200 + rand.Intn(800)

		var wg sync.WaitGroup
		for i := 0; i < numPushers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < eventsPerPusher; j++ {
					b.Push(ctx, testEvent(fmt.Sprintf("p%d_%d", id, j)))
				}
			}(i)
		}

		// One concurrent drainer, as in production: the scheduler is the
		// single caller of Drain.
		seen := make(map[string]int)
		drained := make(chan event.Batch, 64)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for batch := range drained {
				for _, e := range batch {
					seen[e.ID]++
				}
			}
		}()

		stop := make(chan struct{})
		var drainWG sync.WaitGroup
		drainWG.Add(1)
		go func() {
			defer drainWG.Done()
			for {
				select {
				case <-stop:
					return
				default:
					drained <- b.Drain(ctx)
				}
			}
		}()

		wg.Wait()
		close(stop)
		drainWG.Wait()

		// Final drain picks up anything still accumulating.
		drained <- b.Drain(ctx)
		close(drained)
		<-done

		want := numPushers * eventsPerPusher
		if len(seen) != want {
			t.Fatalf("round %d: expected %d distinct events, got %d", round, want, len(seen))
		}
		for id, n := range seen {
			if n != 1 {
				t.Fatalf("round %d: event %s drained %d times", round, id, n)
			}
		}
	}
}

func TestBuffer_ConcurrentPushOrderWithinGoroutine(t *testing.T) {
	b := New()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		b.Push(ctx, testEvent(fmt.Sprintf("e%03d", i)))
	}

	batch := b.Drain(ctx)
	for i := 1; i < len(batch); i++ {
		if batch[i-1].ID >= batch[i].ID {
			t.Fatalf("insertion order violated at %d: %s >= %s", i, batch[i-1].ID, batch[i].ID)
		}
	}
}
