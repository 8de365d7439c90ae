package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	rx "github.com/deadlyengineer/rx-with-go"
	"github.com/deadlyengineer/rx-with-go/scheduler"
	"github.com/urfave/cli/v2"
)

var otherCmd = &cli.Command{
	Name:   "other",
	Usage:  "Runs the utility operators: all, count, defaultIfEmpty, delay, timeInterval, timestamp, timeout and the do family",
	Action: Other,
}

func Other(cctx *cli.Context) error {
	d := newDemo(cctx, "other")
	return d.run(cctx.Context, d.otherPipelines()...)
}

func (d *demo) otherPipelines() []pipeline {
	containsI := rx.FuncPredicate(func(name string) bool {
		return strings.Contains(name, "I")
	})

	intervals := rx.Map(rx.TimeInterval(paced(d.tick*3/2, names...)), rx.FuncMapper(func(t rx.Timed[string]) string {
		return fmt.Sprintf("%s after %s", t.Value, t.Elapsed.Round(time.Millisecond))
	}))

	timestamps := rx.Map(rx.Timestamp(paced(d.tick*3/2, names...)), rx.FuncMapper(func(t rx.Timed[string]) string {
		return fmt.Sprintf("%s at %s", t.Value, t.Time.Format("15:04:05.000"))
	}))

	does := rx.Just(names...).
		DoOnNext(func(name string) {
			d.printf("do", "next %s", name)
		}).
		DoOnSubscribe(func() {
			d.printf("do", "subscribe")
		}).
		DoOnError(func(err error) {
			d.printf("do", "error %v", err)
		}).
		DoOnComplete(func() {
			d.printf("do", "complete")
		}).
		Filter(rx.FuncPredicate(func(name string) bool {
			return strings.Contains(strings.ToLower(name), "i")
		}))

	// emits on a goroutine of its own, like a blocking data source
	created := rx.Create(func(ctx context.Context, emit rx.Observer[int]) {
		for i := 1; i <= 5; i++ {
			select {
			case <-time.After(d.tick):
			case <-ctx.Done():
				return
			}

			emit.OnNext(i)
		}

		emit.OnComplete()
	}).SubscribeOn(scheduler.IO())

	return []pipeline{
		{name: "all", src: lines(rx.Just(names...).All(containsI))},
		{name: "allRange", src: lines(rx.Range(1, 8).All(rx.FuncPredicate(func(n int) bool {
			return n < 10
		})))},
		{name: "any", src: lines(rx.Just(names...).Any(containsI))},
		{name: "delay", src: rx.Just(names...).Delay(5 * d.tick)},
		{name: "count", src: lines(rx.Just(names...).Count())},
		{name: "defaultIfEmpty", src: rx.Just(names...).Skip(6).DefaultIfEmpty("names are empty")},
		{name: "startWith", src: rx.Just(surnames...).StartWith("Surnames:")},
		{name: "timeInterval", src: intervals},
		{name: "timestamp", src: timestamps},
		{name: "timeout", src: paced(5*d.tick, names...).Timeout(3 * d.tick)},
		{name: "do", src: does},
		{name: "create", src: lines(created)},
	}
}
