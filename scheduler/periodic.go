package scheduler

import (
	"sync"
	"time"
)

type periodic struct {
	sched  Scheduler
	period time.Duration
	fn     Task
	start  time.Time

	lk        sync.Mutex
	runs      int64
	current   Handle
	cancelled bool
}

// SchedulePeriodic runs task on s once initial has elapsed, and then once per
// period until the returned Handle is canceled. Due times are computed from
// the first run, so slow tasks do not make the schedule drift.
// The next run is submitted before the current one starts.
//
// SchedulePeriodic panics if period is not positive.
func SchedulePeriodic(s Scheduler, initial time.Duration, period time.Duration, task Task) Handle {
	if period <= 0 {
		panic("scheduler: non-positive period for SchedulePeriodic")
	}

	p := &periodic{
		sched:  s,
		period: period,
		fn:     task,
		start:  s.Clock().Now().Add(initial),
	}

	p.submit(initial)

	return p
}

func (p *periodic) submit(delay time.Duration) {
	p.lk.Lock()
	gen := p.runs
	p.lk.Unlock()

	h := p.sched.Schedule(delay, p.run)

	p.lk.Lock()
	defer p.lk.Unlock()

	if p.cancelled {
		h.Cancel()
		return
	}

	// a run that already started has submitted a newer handle
	if p.runs == gen {
		p.current = h
	}
}

func (p *periodic) run() {
	p.lk.Lock()

	if p.cancelled {
		p.lk.Unlock()
		return
	}

	p.runs++
	due := p.start.Add(time.Duration(p.runs) * p.period)

	p.lk.Unlock()

	p.submit(due.Sub(p.sched.Clock().Now()))

	p.fn()
}

func (p *periodic) Cancel() {
	p.lk.Lock()
	defer p.lk.Unlock()

	if p.cancelled {
		return
	}

	p.cancelled = true
	if p.current != nil {
		p.current.Cancel()
	}
}
