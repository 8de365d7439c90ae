package scheduler

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/deadlyengineer/rx-with-go/internal/queue"
)

// Worker runs tasks one at a time on top of a Scheduler.
// Tasks never overlap, and tasks that become due in a given order run in that order.
// A Worker is itself a Scheduler.
type Worker struct {
	sched Scheduler

	tasks *queue.Queue[*task]

	lk      sync.Mutex
	running bool
	stopped bool
}

// NewWorker returns a serial worker running its tasks on s.
func NewWorker(s Scheduler) *Worker {
	return &Worker{sched: s, tasks: queue.Unbounded[*task]()}
}

// Clock implements Scheduler.
func (w *Worker) Clock() clock.Clock {
	return w.sched.Clock()
}

// Schedule implements Scheduler.
func (w *Worker) Schedule(delay time.Duration, fn Task) Handle {
	t := newTask(fn, "worker")

	if delay > 0 {
		t.after(w.sched.Clock(), delay, w.enqueue)
		return t
	}

	w.enqueue(t)

	return t
}

// Stop cancels every queued task. Tasks submitted after Stop never run.
func (w *Worker) Stop() {
	w.lk.Lock()
	defer w.lk.Unlock()

	w.stopped = true
	for _, t := range w.tasks.Drain() {
		t.Cancel()
	}
}

func (w *Worker) enqueue(t *task) {
	w.lk.Lock()

	if w.stopped {
		w.lk.Unlock()
		return
	}

	w.tasks.Push(t)

	if w.running {
		w.lk.Unlock()
		return
	}

	w.running = true
	w.lk.Unlock()

	w.sched.Schedule(0, w.drain)
}

func (w *Worker) drain() {
	for {
		w.lk.Lock()

		t, ok := w.tasks.Pop()
		if w.stopped || !ok {
			w.running = false
			w.lk.Unlock()
			return
		}

		w.lk.Unlock()

		t.run("worker")
	}
}
