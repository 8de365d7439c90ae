package scheduler

import (
	"container/list"
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/deadlyengineer/rx-with-go/internal/metrics"
)

// Pool is a scheduler with a fixed number of worker goroutines.
// Tasks are executed in submission order by the first idle worker.
type Pool struct {
	cfg     config
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	lk      sync.Mutex
	cond    *sync.Cond
	work    *list.List
}

// NewPool creates and starts a pool with the given number of workers.
// A non-positive count uses GOMAXPROCS workers.
func NewPool(workers int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		cfg:     applyOptions("pool", opts),
		workers: workers,
		work:    list.New(),
	}
	p.cond = sync.NewCond(&p.lk)
	p.ctx, p.cancel = context.WithCancel(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			wg.Done()
			p.worker()
		}()
	}
	wg.Add(1)
	go func() {
		wg.Done()
		<-p.ctx.Done()
		p.lk.Lock()
		p.cond.Broadcast()
		p.lk.Unlock()
	}()
	wg.Wait()

	return p
}

// NewSingle creates a pool with a single worker, so that every task runs on
// the same goroutine, one at a time.
func NewSingle(opts ...Option) *Pool {
	return NewPool(1, append([]Option{WithName("single")}, opts...)...)
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Clock implements Scheduler.
func (p *Pool) Clock() clock.Clock {
	return p.cfg.clock
}

// Schedule implements Scheduler.
func (p *Pool) Schedule(delay time.Duration, fn Task) Handle {
	t := newTask(fn, p.cfg.name)

	if delay > 0 {
		t.after(p.cfg.clock, delay, p.enqueue)
		return t
	}

	p.enqueue(t)

	return t
}

// Stop stops the workers. Queued tasks are discarded.
func (p *Pool) Stop() {
	p.cancel()

	p.lk.Lock()
	defer p.lk.Unlock()

	p.work.Init()
	metrics.QueueDepth.WithLabelValues(p.cfg.name).Set(0)
}

func (p *Pool) worker() {
	p.lk.Lock()
	defer p.lk.Unlock()

	for p.ctx.Err() == nil {
		next := p.work.Front()
		if next != nil {
			p.work.Remove(next)
			metrics.QueueDepth.WithLabelValues(p.cfg.name).Set(float64(p.work.Len()))
			p.lk.Unlock()

			next.Value.(*task).run(p.cfg.name)

			p.lk.Lock()
			continue
		}

		p.cond.Wait()
	}
}

func (p *Pool) enqueue(t *task) {
	p.lk.Lock()
	defer p.lk.Unlock()

	if p.ctx.Err() != nil {
		log.Debugw("dropping task submitted to stopped pool", "scheduler", p.cfg.name)
		return
	}

	p.work.PushBack(t)
	metrics.QueueDepth.WithLabelValues(p.cfg.name).Set(float64(p.work.Len()))
	p.cond.Signal()
}
