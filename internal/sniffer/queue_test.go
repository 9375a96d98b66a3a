package sniffer

import (
	"context"
	"testing"
	"time"
)

func TestDropHeadKeepsLastItemsInOrder(t *testing.T) {
	q := NewDropHeadQueue[int](4)
	for i := 1; i <= 4; i++ {
		q.Put(i)
	}
	// Overflow by three; the three oldest must be discarded.
	for i := 5; i <= 7; i++ {
		q.Put(i)
	}
	if q.Len() != 4 {
		t.Fatalf("len=%d want 4", q.Len())
	}
	if q.Dropped() != 3 {
		t.Fatalf("dropped=%d want 3", q.Dropped())
	}

	ctx := context.Background()
	for want := 4; want <= 7; want++ {
		got, ok := q.Get(ctx)
		if !ok || got != want {
			t.Fatalf("got %d ok=%v want %d", got, ok, want)
		}
	}
}

func TestGetSuspendsUntilPut(t *testing.T) {
	q := NewDropHeadQueue[string](2)
	done := make(chan string, 1)
	go func() {
		v, _ := q.Get(context.Background())
		done <- v
	}()

	select {
	case v := <-done:
		t.Fatalf("get returned early: %q", v)
	case <-time.After(20 * time.Millisecond):
	}

	q.Put("hello")
	select {
	case v := <-done:
		if v != "hello" {
			t.Fatalf("got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("get did not wake up")
	}
}

func TestGetReturnsFalseOnCancel(t *testing.T) {
	q := NewDropHeadQueue[int](2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.Get(ctx); ok {
		t.Fatal("expected false on cancelled context")
	}
}

func TestMultipleConsumersDrainAllItems(t *testing.T) {
	q := NewDropHeadQueue[int](64)
	for i := 0; i < 32; i++ {
		q.Put(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan int, 32)
	for w := 0; w < 4; w++ {
		go func() {
			for {
				v, ok := q.Get(ctx)
				if !ok {
					return
				}
				got <- v
			}
		}()
	}

	seen := make(map[int]bool, 32)
	for i := 0; i < 32; i++ {
		select {
		case v := <-got:
			seen[v] = true
		case <-ctx.Done():
			t.Fatalf("timed out after %d items", i)
		}
	}
	if len(seen) != 32 {
		t.Fatalf("saw %d distinct items", len(seen))
	}
}
