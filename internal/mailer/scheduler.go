package mailer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCancelled is the result of a task cancelled before it ran.
var ErrCancelled = errors.New("scheduled task cancelled")

// Task is a pending or finished scheduled call.
type Task struct {
	timer  *time.Timer
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
	onDone func()
}

// Cancel stops the task. A task that has not fired never runs and finishes
// with ErrCancelled. A running task sees its context cancelled. Cancel
// reports whether the task was stopped before it fired.
func (t *Task) Cancel() bool {
	stopped := t.timer.Stop()
	t.cancel()
	if stopped {
		t.finish(ErrCancelled)
	}
	return stopped
}

// Wait blocks until the task finishes or ctx is done and returns the task's
// error or ctx's.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the task finishes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finish(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
		if t.onDone != nil {
			t.onDone()
		}
	})
}

// Scheduler runs delayed calls and can cancel every pending one at once.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[*Task]struct{}
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[*Task]struct{})}
}

// After runs fn once delay has elapsed. A non-positive delay runs it
// immediately on its own goroutine.
func (s *Scheduler) After(delay time.Duration, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{cancel: cancel, done: make(chan struct{})}
	task.onDone = func() { s.forget(task) }

	// The timer is armed under the lock so CancelAll never sees a task
	// without one and forget cannot run before the task is registered.
	s.mu.Lock()
	task.timer = time.AfterFunc(max(delay, 0), func() {
		defer cancel()
		task.finish(fn(ctx))
	})
	s.tasks[task] = struct{}{}
	s.mu.Unlock()
	return task
}

// Pending returns the number of tasks that have not finished.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// CancelAll cancels every unfinished task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.Unlock()
	for _, task := range tasks {
		task.Cancel()
	}
}

func (s *Scheduler) forget(task *Task) {
	s.mu.Lock()
	delete(s.tasks, task)
	s.mu.Unlock()
}
