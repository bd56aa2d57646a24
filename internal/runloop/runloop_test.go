package runloop

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPostRunsInOrder(t *testing.T) {
	l := New()
	defer l.Close()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		if err := l.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	if err := l.Post(func() { close(done) }); err != nil {
		t.Fatalf("post: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", got)
		}
	}
}

func TestRepostFromTask(t *testing.T) {
	l := New()
	defer l.Close()

	var count atomic.Int32
	done := make(chan struct{})
	var step func()
	step = func() {
		if count.Add(1) == 10 {
			close(done)
			return
		}
		if err := l.Post(step); err != nil {
			t.Errorf("repost: %v", err)
		}
	}
	if err := l.Post(step); err != nil {
		t.Fatalf("post: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("self-reposting task stalled")
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	l := New()

	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		if err := l.Post(func() { ran.Add(1) }); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	l.Close()

	if ran.Load() != 20 {
		t.Fatalf("expected all queued tasks to run before close, got %d", ran.Load())
	}
	if err := l.Post(func() {}); err != ErrClosed {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}
