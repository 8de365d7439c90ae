package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rx "github.com/deadlyengineer/rx-with-go"
	"github.com/deadlyengineer/rx-with-go/scheduler"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var policies = []rx.OverflowPolicy{
	rx.OverflowFail,
	rx.OverflowLatest,
	rx.OverflowDrop,
	rx.OverflowBuffer,
	rx.OverflowBlock,
}

var backpressureCmd = &cli.Command{
	Name:   "backpressure",
	Usage:  "Runs a fast producer against a slower consumer once per overflow policy",
	Action: Backpressure,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "the number of elements each producer emits",
			Value:   100000,
		},
		&cli.IntFlag{
			Name:  "prefetch",
			Usage: "the number of elements the consumer requests ahead",
			Value: rx.DefaultPrefetch,
		},
		&cli.StringSliceFlag{
			Name:        "policy",
			Usage:       "the overflow policies to run, one of " + policyNames(),
			DefaultText: "all policies",
		},
	},
}

// policyRun is the outcome of running one overflow policy.
type policyRun struct {
	policy   rx.OverflowPolicy
	received uint64
	elapsed  time.Duration
	err      error
}

func Backpressure(cctx *cli.Context) error {
	selected := policies
	if requested := cctx.StringSlice("policy"); len(requested) > 0 {
		selected = nil
		for _, name := range requested {
			policy, err := parsePolicy(name)
			if err != nil {
				return err
			}
			selected = append(selected, policy)
		}
	}

	reg := prometheus.NewRegistry()
	if err := rx.RegisterMetrics(reg); err != nil {
		return err
	}

	before, err := droppedByPolicy(reg)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	count := cctx.Int("count")
	prefetch := cctx.Int("prefetch")

	logger.Infow("running backpressure demo", "run", runID, "count", count, "prefetch", prefetch, "policies", len(selected))

	consumer := scheduler.NewSingle(scheduler.WithName("consumer"))
	defer consumer.Stop()

	runs := make([]policyRun, len(selected))

	grp, ctx := errgroup.WithContext(cctx.Context)
	for i, policy := range selected {
		i, policy := i, policy

		grp.Go(func() error {
			runs[i] = runPolicy(ctx, policy, count, prefetch, consumer)

			// an interrupted run stops the others
			if errors.Is(runs[i].err, context.Canceled) {
				return runs[i].err
			}

			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return err
	}

	after, err := droppedByPolicy(reg)
	if err != nil {
		return err
	}

	out := cctx.App.Writer
	for _, run := range runs {
		dropped := after[run.policy.String()] - before[run.policy.String()]

		status := "completed"
		if run.err != nil {
			status = "failed: " + run.err.Error()
		}

		fmt.Fprintf(out, "[%s] received %s of %s, dropped %s in %s, %s\n",
			run.policy,
			humanize.Comma(int64(run.received)),
			humanize.Comma(int64(count)),
			humanize.Comma(int64(dropped)),
			run.elapsed.Round(time.Millisecond),
			status,
		)
	}

	return nil
}

// runPolicy emits count elements as fast as possible, and consumes them on consumer, requesting
// prefetch elements ahead.
func runPolicy(ctx context.Context, policy rx.OverflowPolicy, count int, prefetch int, consumer scheduler.Scheduler) policyRun {
	source := rx.CreateFlowable(func(ctx context.Context, emit rx.Observer[int]) {
		for i := 1; i <= count && ctx.Err() == nil; i++ {
			emit.OnNext(i)
		}

		emit.OnComplete()
	}, policy)

	start := time.Now()

	received, err := rx.Count(ctx, source.ObserveOn(consumer, prefetch).ToObservable())

	logger.Debugw("policy finished", "policy", policy.String(), "received", received, "err", err)

	return policyRun{
		policy:   policy,
		received: received,
		elapsed:  time.Since(start),
		err:      err,
	}
}

// droppedByPolicy returns the number of elements dropped so far, per overflow policy.
func droppedByPolicy(reg prometheus.Gatherer) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}

	dropped := map[string]float64{}

	for _, family := range families {
		if family.GetName() != "rx_backpressure_dropped_total" {
			continue
		}

		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "policy" {
					dropped[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}

	return dropped, nil
}

func parsePolicy(name string) (rx.OverflowPolicy, error) {
	for _, policy := range policies {
		if strings.EqualFold(policy.String(), name) {
			return policy, nil
		}
	}

	return 0, fmt.Errorf("unknown overflow policy %q, expected one of %s", name, policyNames())
}

func policyNames() string {
	names := make([]string, len(policies))
	for i, policy := range policies {
		names[i] = policy.String()
	}
	return strings.Join(names, ", ")
}
