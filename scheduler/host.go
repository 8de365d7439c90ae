package scheduler

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/deadlyengineer/rx-with-go/internal/metrics"
	"github.com/deadlyengineer/rx-with-go/internal/queue"
)

// Host is a single-threaded scheduler whose tasks run on a goroutine owned by
// the host application, such as the goroutine that owns a user interface.
// Tasks are queued until the host calls Run or RunPending.
type Host struct {
	cfg   config
	tasks *queue.Queue[*task]
	wake  chan struct{}
}

// NewHost creates a host scheduler.
func NewHost(opts ...Option) *Host {
	return &Host{
		cfg:   applyOptions("host", opts),
		tasks: queue.Unbounded[*task](),
		wake:  make(chan struct{}, 1),
	}
}

// Clock implements Scheduler.
func (h *Host) Clock() clock.Clock {
	return h.cfg.clock
}

// Schedule implements Scheduler.
func (h *Host) Schedule(delay time.Duration, fn Task) Handle {
	t := newTask(fn, h.cfg.name)

	if delay > 0 {
		t.after(h.cfg.clock, delay, h.enqueue)
		return t
	}

	h.enqueue(t)

	return t
}

// Pending returns the number of queued tasks.
func (h *Host) Pending() int {
	return h.tasks.Len()
}

// RunPending runs queued tasks on the calling goroutine until the queue is
// empty, and returns the number of tasks taken from the queue.
func (h *Host) RunPending() int {
	n := 0

	for {
		t, ok := h.tasks.Pop()
		if !ok {
			metrics.QueueDepth.WithLabelValues(h.cfg.name).Set(0)
			return n
		}

		t.run(h.cfg.name)
		n++
	}
}

// Run runs tasks on the calling goroutine as they are submitted, until ctx is
// done. It returns ctx.Err().
func (h *Host) Run(ctx context.Context) error {
	for {
		h.RunPending()

		select {
		case <-h.wake:

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Host) enqueue(t *task) {
	h.tasks.Push(t)
	metrics.QueueDepth.WithLabelValues(h.cfg.name).Set(float64(h.tasks.Len()))

	select {
	case h.wake <- struct{}{}:
	default:
	}
}
