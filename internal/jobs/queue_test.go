package jobs

import (
	"context"
	"testing"
	"time"
)

func TestJobsRunInOrder(t *testing.T) {
	q := NewQueue(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	results := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		if !q.Enqueue(func(context.Context) { results <- i }) {
			t.Fatalf("enqueue %d dropped", i)
		}
	}

	for want := 1; want <= 3; want++ {
		select {
		case got := <-results:
			if got != want {
				t.Fatalf("job order: got %d, want %d", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("job %d never ran", want)
		}
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	q := NewQueue(1)
	// No worker running: the second enqueue must drop, not block.
	if !q.Enqueue(func(context.Context) {}) {
		t.Fatal("first enqueue dropped")
	}
	if q.Enqueue(func(context.Context) {}) {
		t.Fatal("second enqueue accepted beyond capacity")
	}
	if q.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", q.Pending())
	}
}
