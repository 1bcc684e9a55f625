package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/scorecard/internal/domain/model"
)

func note(key string) model.Notification {
	return model.Notification{Key: key, Destination: "#accountability", Text: "reminder"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if !q.Enqueue(ctx, note("n1")) {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Key != "n1" {
		t.Errorf("expected n1, got %v", got.Key)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, note("n1")) || !q.Enqueue(ctx, note("n2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, note("n3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}
}

func TestInMemoryQueue_CanceledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(ctx, note("n1")) {
		t.Error("expected enqueue to fail with canceled context")
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		q.Enqueue(ctx, note(fmt.Sprintf("n%d", i)))
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, note("late")) {
		t.Error("expected enqueue after close to fail")
	}

	var got []string
	for n := range q.Dequeue(ctx) {
		got = append(got, n.Key)
	}
	if len(got) != 3 || got[0] != "n0" || got[2] != "n2" {
		t.Errorf("expected queued items in order, got %v", got)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if !q.Enqueue(ctx, note(fmt.Sprintf("n%d_%d", id, j))) {
					t.Errorf("unexpected enqueue failure")
				}
			}
		}(i)
	}
	wg.Wait()
	_ = q.Close()

	count := 0
	for range q.Dequeue(ctx) {
		count++
	}
	if count != 500 {
		t.Errorf("expected 500 items, got %d", count)
	}
}
