// Package loop provides the single-threaded task runner the detector lives on.
package loop

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// Loop runs posted tasks one at a time, in posting order.
type Loop struct {
	clock clock.Clock

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	// owner is the id of the goroutine draining the queue, 0 when none.
	owner atomic.Uint64
}

// New creates a loop whose timers use clk. A nil clk means the wall clock.
func New(clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		clock: clk,
		wake:  make(chan struct{}, 1),
	}
}

// Clock returns the loop's clock.
func (l *Loop) Clock() clock.Clock {
	return l.clock
}

// Post queues task. It is safe from any goroutine and never blocks.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes tasks until ctx is done. Only one goroutine may run the loop.
func (l *Loop) Run(ctx context.Context) {
	l.owner.Store(goroutineID())
	defer l.owner.Store(0)
	for {
		l.drain()
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// RunUntilIdle executes queued tasks on the calling goroutine, including
// tasks posted while draining, and returns once the queue is empty.
func (l *Loop) RunUntilIdle() {
	prev := l.owner.Swap(goroutineID())
	defer l.owner.Store(prev)
	l.drain()
}

func (l *Loop) drain() {
	for {
		task, ok := l.next()
		if !ok {
			return
		}
		task()
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// OnLoop reports whether the caller is the goroutine running the loop's
// tasks.
func (l *Loop) OnLoop() bool {
	owner := l.owner.Load()
	return owner != 0 && owner == goroutineID()
}

// Call runs fn on the loop and blocks until it ran or ctx is done. It reports
// whether fn ran. Called from a task, fn runs inline.
func (l *Loop) Call(ctx context.Context, fn func()) bool {
	if l.OnLoop() {
		fn()
		return true
	}
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// goroutineID parses the calling goroutine's id from its stack header,
// "goroutine 42 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Timer is a cancellable delayed task.
type Timer struct {
	loop    *Loop
	timer   *clock.Timer
	stopped bool
	fired   bool
}

// AfterFunc runs task on the loop after d. A non-positive d queues the task
// right away.
func (l *Loop) AfterFunc(d time.Duration, task func()) *Timer {
	t := &Timer{loop: l}
	run := func() {
		if t.stopped {
			return
		}
		t.fired = true
		task()
	}
	if d <= 0 {
		l.Post(run)
		return t
	}
	t.timer = l.clock.AfterFunc(d, func() {
		l.Post(run)
	})
	return t
}

// Stop cancels the timer. After Stop returns the task will not run, even if
// the clock already fired. Stopping twice, or after the task ran, is a no-op.
// Stop must be called on the loop.
func (t *Timer) Stop() {
	if t == nil || t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Fired reports whether the task ran.
func (t *Timer) Fired() bool {
	return t != nil && t.fired
}
