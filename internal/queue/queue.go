package queue

import (
	"fmt"
	"sync"
	"time"
)

// Task is one unit of work. Its returned error is delivered on the settle
// channel handed out by Submit.
type Task func() error

// Config bounds the queue. MaxConcurrent caps tasks running at once;
// MaxStarts caps task starts inside any rolling Window, independent of how
// fast tasks complete. Zero or negative values are raised to 1.
type Config struct {
	MaxConcurrent int
	Window        time.Duration
	MaxStarts     int
}

type entry struct {
	task Task
	done chan error
}

// Queue admits tasks in FIFO order subject to a concurrency cap and a
// rolling start-rate window. A task's failure (or panic) settles only that
// task; siblings and the queue itself are unaffected.
type Queue struct {
	cfg Config

	mu          sync.Mutex
	cond        *sync.Cond
	pending     []*entry
	running     int
	starts      []time.Time // starts still inside the current window
	dispatching bool

	wg sync.WaitGroup
}

// New creates a queue with the given bounds.
func New(cfg Config) *Queue {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxStarts < 1 {
		cfg.MaxStarts = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}

	q := &Queue{cfg: cfg}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit enqueues a task and returns a channel that receives the task's
// terminal error (nil on success) exactly once, then closes.
func (q *Queue) Submit(task Task) <-chan error {
	e := &entry{task: task, done: make(chan error, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.wg.Add(1)
	if !q.dispatching {
		q.dispatching = true
		go q.dispatch()
	}
	q.mu.Unlock()

	return e.done
}

// Drain blocks until every submitted task has settled. It says nothing
// about task outcomes, only that nothing is pending or running.
func (q *Queue) Drain() {
	q.wg.Wait()
}

// Pending returns the number of tasks admitted but not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running returns the number of tasks currently in flight.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// dispatch is the single admission loop. It exits when the pending list is
// empty and restarts on the next Submit.
func (q *Queue) dispatch() {
	for {
		q.mu.Lock()
		for {
			if len(q.pending) == 0 {
				q.dispatching = false
				q.mu.Unlock()
				return
			}
			if q.running >= q.cfg.MaxConcurrent {
				q.cond.Wait()
				continue
			}
			wait := q.windowWait(time.Now())
			if wait > 0 {
				q.mu.Unlock()
				time.Sleep(wait)
				q.mu.Lock()
				continue
			}
			break
		}

		e := q.pending[0]
		q.pending = q.pending[1:]
		q.running++
		q.starts = append(q.starts, time.Now())
		q.mu.Unlock()

		go q.run(e)
	}
}

// windowWait returns how long admission must wait for a start slot in the
// rolling window, pruning starts that have aged out. Callers hold q.mu.
func (q *Queue) windowWait(now time.Time) time.Duration {
	cutoff := now.Add(-q.cfg.Window)
	idx := 0
	for idx < len(q.starts) && !q.starts[idx].After(cutoff) {
		idx++
	}
	q.starts = q.starts[idx:]

	if len(q.starts) < q.cfg.MaxStarts {
		return 0
	}
	// Admission is blocked until the oldest remaining start leaves the window.
	return q.starts[0].Add(q.cfg.Window).Sub(now)
}

func (q *Queue) run(e *entry) {
	defer q.wg.Done()

	err := runSafely(e.task)
	e.done <- err
	close(e.done)

	q.mu.Lock()
	q.running--
	q.cond.Signal()
	q.mu.Unlock()
}

// runSafely contains a panicking task so it settles like any other failure.
func runSafely(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task()
}
