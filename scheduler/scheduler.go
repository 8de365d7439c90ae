// Package scheduler provides the execution contexts streams are produced and
// observed on.
//
// A Scheduler runs tasks on one of its workers, either immediately or after a
// delay measured by the scheduler's clock. Pools, goroutine-per-task
// schedulers, a host loop driven by the application's own goroutine, and an
// immediate scheduler that runs on the calling goroutine are provided.
//
// A Worker serializes tasks on top of any Scheduler: tasks submitted to one
// Worker never overlap and run in submission order.
package scheduler

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/deadlyengineer/rx-with-go/internal/metrics"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("rx/scheduler")

// Task is a unit of work submitted to a Scheduler.
type Task func()

// Handle cancels a scheduled task.
type Handle interface {
	// Cancel prevents the task from running if it has not started yet.
	// Cancel is idempotent.
	Cancel()
}

// Scheduler runs tasks on its workers.
type Scheduler interface {
	// Schedule runs task on one of the scheduler's workers once delay has elapsed.
	// A delay <= 0 submits the task immediately.
	Schedule(delay time.Duration, task Task) Handle

	// Clock returns the time source used for delayed tasks.
	Clock() clock.Clock
}

type config struct {
	clock clock.Clock
	name  string
}

// Option configures a scheduler.
type Option func(*config)

// WithClock sets the time source used for delayed tasks.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// WithName sets the name used to label the scheduler's metrics and logs.
func WithName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.name = name
		}
	}
}

func applyOptions(name string, opts []Option) config {
	cfg := config{
		clock: clock.New(),
		name:  name,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// task is the Handle returned for every scheduled Task.
type task struct {
	fn        Task
	cancelled atomic.Bool

	lk    sync.Mutex
	timer *clock.Timer
}

func newTask(fn Task, name string) *task {
	metrics.TasksScheduled.WithLabelValues(name).Inc()
	return &task{fn: fn}
}

func (t *task) Cancel() {
	if t.cancelled.Swap(true) {
		return
	}

	t.lk.Lock()
	defer t.lk.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
}

// after submits t through enqueue once delay has elapsed on clk.
func (t *task) after(clk clock.Clock, delay time.Duration, enqueue func(*task)) {
	timer := clk.AfterFunc(delay, func() {
		if t.cancelled.Load() {
			return
		}
		enqueue(t)
	})

	t.lk.Lock()
	t.timer = timer
	t.lk.Unlock()

	if t.cancelled.Load() {
		timer.Stop()
	}
}

// run executes the task unless it was canceled. Panics are recovered so that a
// failing task never takes its worker down.
func (t *task) run(name string) {
	if t.cancelled.Load() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.TaskPanics.WithLabelValues(name).Inc()
			log.Errorw("scheduled task panicked", "scheduler", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	t.fn()

	metrics.TasksExecuted.WithLabelValues(name).Inc()
}

var (
	computationOnce sync.Once
	computation     *Pool

	ioOnce sync.Once
	io     *Unbounded

	immediate = NewImmediate(WithName("immediate"))
)

// Computation returns the shared pool sized to GOMAXPROCS, meant for CPU-bound work.
// It is the default scheduler of time-based operators.
func Computation() Scheduler {
	computationOnce.Do(func() {
		computation = NewPool(0, WithName("computation"))
	})
	return computation
}

// IO returns the shared goroutine-per-task scheduler, meant for blocking work.
func IO() Scheduler {
	ioOnce.Do(func() {
		io = NewUnbounded(WithName("io"))
	})
	return io
}

// Immediate returns the shared scheduler that runs tasks on the calling goroutine.
func Immediate() Scheduler {
	return immediate
}
