package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	rx "github.com/deadlyengineer/rx-with-go"
	"github.com/deadlyengineer/rx-with-go/scheduler"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

var errFinished = errors.New("all pipelines terminated")

var (
	names    = []string{"Alexey", "Vladimir", "Georgy", "Dmitry", "Evgeny", "Nepopal"}
	surnames = []string{"Ivanov", "Petrov", "Sidorov", "Gromov", "Filinov"}
)

// pipeline is a named stream whose elements are printed as lines.
type pipeline struct {
	name string
	src  rx.Observable[string]
}

// demo runs pipelines the way a host application does: notifications are observed on a host
// scheduler driven by the calling goroutine, and every subscription is kept in a
// CompositeDisposable that is disposed on teardown.
type demo struct {
	name  string
	runID string
	out   io.Writer
	tick  time.Duration
	host  *scheduler.Host
	bag   *rx.CompositeDisposable
	lines int64
}

func newDemo(cctx *cli.Context, name string) *demo {
	tick := cctx.Duration(FlagTick.Name)
	if tick <= 0 {
		tick = defaultTick
	}

	return &demo{
		name:  name,
		runID: uuid.New().String(),
		out:   cctx.App.Writer,
		tick:  tick,
		host:  scheduler.NewHost(scheduler.WithName("rxdemo")),
		bag:   &rx.CompositeDisposable{},
	}
}

// run subscribes all pipelines, and runs the host loop on the calling goroutine until every
// pipeline terminated, or ctx is done.
func (d *demo) run(ctx context.Context, pipelines ...pipeline) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	defer d.bag.Dispose()

	logger.Infow("running demo", "demo", d.name, "run", d.runID, "pipelines", len(pipelines), "tick", d.tick)

	start := time.Now()
	running := len(pipelines)

	// terminal notifications are observed on the host goroutine
	terminated := func() {
		running--
		if running == 0 {
			cancel(errFinished)
		}
	}

	if running == 0 {
		return nil
	}

	for _, p := range pipelines {
		p := p

		sub := p.src.ObserveOn(d.host).SubscribeFuncs(ctx,
			func(line string) {
				d.printf(p.name, "%s", line)
			},
			func(err error) {
				logger.Debugw("pipeline failed", "demo", d.name, "pipeline", p.name, "err", err)
				d.printf(p.name, "error: %v", err)
				terminated()
			},
			func() {
				d.printf(p.name, "completed")
				terminated()
			},
		)

		d.bag.Add(sub)
	}

	err := d.host.Run(ctx)
	if errors.Is(context.Cause(ctx), errFinished) {
		err = nil
	}

	logger.Infow("demo finished", "demo", d.name, "run", d.runID, "err", err)

	fmt.Fprintf(d.out, "printed %s lines in %s\n", humanize.Comma(d.lines), time.Since(start).Round(time.Millisecond))

	return err
}

func (d *demo) printf(pipeline string, format string, args ...any) {
	d.lines++
	fmt.Fprintf(d.out, "[%s] %s\n", pipeline, fmt.Sprintf(format, args...))
}

// lines maps the elements of src to their default string representation.
func lines[T any](src rx.Observable[T]) rx.Observable[string] {
	return rx.Map(src, rx.FuncMapper(func(elem T) string {
		return fmt.Sprint(elem)
	}))
}

// paced emits elems one per period.
func paced[T any](period time.Duration, elems ...T) rx.Observable[T] {
	return rx.Zip(rx.Just(elems...), rx.Interval(period), func(elem T, _ int64) (T, error) {
		return elem, nil
	})
}
