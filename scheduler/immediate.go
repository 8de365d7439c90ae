package scheduler

import (
	"time"

	"github.com/benbjohnson/clock"
)

// ImmediateScheduler runs tasks on the goroutine that submits them.
// Delayed tasks run on the goroutine of the clock's timer.
//
// Tasks submitted through a Worker built on an ImmediateScheduler are
// trampolined: a task scheduled from within a running task is queued and runs
// after the current one returns instead of recursing.
type ImmediateScheduler struct {
	cfg config
}

// NewImmediate creates a scheduler running tasks on the calling goroutine.
func NewImmediate(opts ...Option) *ImmediateScheduler {
	return &ImmediateScheduler{cfg: applyOptions("immediate", opts)}
}

// Clock implements Scheduler.
func (s *ImmediateScheduler) Clock() clock.Clock {
	return s.cfg.clock
}

// Schedule implements Scheduler.
func (s *ImmediateScheduler) Schedule(delay time.Duration, fn Task) Handle {
	t := newTask(fn, s.cfg.name)

	if delay > 0 {
		t.after(s.cfg.clock, delay, s.run)
		return t
	}

	s.run(t)

	return t
}

func (s *ImmediateScheduler) run(t *task) {
	t.run(s.cfg.name)
}
