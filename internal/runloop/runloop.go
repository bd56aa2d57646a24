// Package runloop provides a single-goroutine serial task executor. Tasks
// posted to a Loop run one at a time in FIFO order, so state touched only
// from loop tasks needs no locking. A task that wants to keep running while
// letting other tasks interleave re-posts its continuation instead of
// looping, which is the cooperative yield point.
package runloop

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Post after Close has been called.
var ErrClosed = errors.New("runloop: loop is closed")

// Loop executes posted tasks sequentially on one goroutine. The queue is
// unbounded, so Post never blocks and is safe to call from a running task.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool

	done chan struct{}
	once sync.Once
}

// New starts a loop goroutine and returns the loop.
func New() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			if l.closed {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			continue
		}
		task := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
	}
}

// Post enqueues fn for execution on the loop goroutine.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops accepting tasks, runs everything already queued, and waits for
// the loop goroutine to exit. Must not be called from a loop task.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		select {
		case l.wake <- struct{}{}:
		default:
		}
	})
	<-l.done
}
