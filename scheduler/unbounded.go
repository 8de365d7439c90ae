package scheduler

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Unbounded is a scheduler that runs every task on a new goroutine.
type Unbounded struct {
	cfg config
}

// NewUnbounded creates a goroutine-per-task scheduler.
func NewUnbounded(opts ...Option) *Unbounded {
	return &Unbounded{cfg: applyOptions("unbounded", opts)}
}

// Clock implements Scheduler.
func (u *Unbounded) Clock() clock.Clock {
	return u.cfg.clock
}

// Schedule implements Scheduler.
func (u *Unbounded) Schedule(delay time.Duration, fn Task) Handle {
	t := newTask(fn, u.cfg.name)

	if delay > 0 {
		t.after(u.cfg.clock, delay, u.spawn)
		return t
	}

	u.spawn(t)

	return t
}

func (u *Unbounded) spawn(t *task) {
	go t.run(u.cfg.name)
}
