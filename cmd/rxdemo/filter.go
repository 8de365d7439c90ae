package main

import (
	"context"
	"strings"

	rx "github.com/deadlyengineer/rx-with-go"
	"github.com/urfave/cli/v2"
)

var filterCmd = &cli.Command{
	Name:   "filter",
	Usage:  "Runs the filtering operators: debounce, distinct, elementAt, filter, ignoreElements, sample, skip and take",
	Action: Filter,
}

func Filter(cctx *cli.Context) error {
	d := newDemo(cctx, "filter")
	return d.run(cctx.Context, d.filterPipelines()...)
}

var prices = []int{120, 199, 250, 299, 310, 1200}

func (d *demo) filterPipelines() []pipeline {
	// names arrive in pairs, with a long pause after each pair
	bursts := rx.ConcatMap(rx.Just(names...), func(_ context.Context, name string, index uint64) (rx.Observable[string], error) {
		pause := d.tick
		if index%2 == 1 {
			pause = 4 * d.tick
		}
		return rx.Just(name).Delay(pause), nil
	})

	withDuplicates := append([]string{"Mamka"}, names...)
	withDuplicates = append(withDuplicates, "Mamka", "Alexey")

	hundreds := rx.FuncMapper(func(price int) int {
		return price / 100
	})

	hasI := rx.FuncPredicate(func(name string) bool {
		return strings.ContainsAny(name, "iI")
	})

	return []pipeline{
		{name: "debounce", src: bursts.Debounce(2 * d.tick)},
		{name: "distinct", src: rx.Distinct(rx.Just(withDuplicates...))},
		{name: "distinctBy", src: lines(rx.DistinctBy(rx.Just(prices...), hundreds))},
		{name: "elementAt", src: rx.Just(names...).ElementAt(2)},
		{name: "filter", src: rx.Just(names...).Filter(hasI)},
		{name: "ignoreElements", src: rx.Just(names...).IgnoreElements()},
		{name: "sample", src: lines(paced(d.tick, 1, 2, 3, 4, 5, 6, 7).Sample(2*d.tick + d.tick/2))},
		{name: "skip", src: rx.Just(names...).Skip(2)},
		{name: "skipLast", src: rx.Just(names...).SkipLast(2)},
		{name: "take", src: rx.Just(names...).Take(2)},
		{name: "takeLast", src: rx.Just(names...).TakeLast(2)},
		{name: "first", src: paced(d.tick, names...).First()},
		{name: "last", src: rx.Just(names...).Last()},
	}
}
