package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	rx "github.com/deadlyengineer/rx-with-go"
	"github.com/urfave/cli/v2"
)

var transformCmd = &cli.Command{
	Name:   "transform",
	Usage:  "Runs the transformation operators: map, flatMap, switchMap, concatMap, buffer, groupBy and scan",
	Action: Transform,
}

func Transform(cctx *cli.Context) error {
	d := newDemo(cctx, "transform")
	return d.run(cctx.Context, d.transformPipelines()...)
}

func (d *demo) transformPipelines() []pipeline {
	// later names arrive sooner, which reorders them unless the operator keeps order
	delayed := func(_ context.Context, name string, index uint64) (rx.Observable[string], error) {
		delay := time.Duration(len(names)-int(index)) * d.tick
		return rx.Just(name).Delay(delay), nil
	}

	hasE := rx.FuncMapper(func(name string) bool {
		return strings.ContainsAny(name, "eE")
	})

	groups := rx.FlatMap(rx.GroupBy(rx.Just(names...), hasE), func(_ context.Context, g *rx.GroupedObservable[bool, string], _ uint64) (rx.Observable[string], error) {
		return rx.Map(g.Observable, rx.FuncMapper(func(name string) string {
			return fmt.Sprintf("%t: %s", g.Key, name)
		})), nil
	})

	return []pipeline{
		{name: "map", src: rx.Map(rx.Just(names...), rx.FuncMapper(strings.ToUpper))},
		{name: "flatMap", src: rx.FlatMap(rx.Just(names...), delayed)},
		{name: "switchMap", src: rx.SwitchMap(rx.Just(names...), delayed)},
		{name: "concatMap", src: rx.ConcatMap(rx.Just(names...), delayed)},
		{name: "buffer", src: lines(rx.Buffer(rx.Just(names...), 2))},
		{name: "groupBy", src: groups},
		{name: "scan", src: rx.Just(names...).Scan(func(acc string, name string) (string, error) {
			return acc + " " + name, nil
		})},
		{name: "factorials", src: lines(rx.Range(1, 6).Scan(func(acc int, n int) (int, error) {
			return acc * n, nil
		}))},
	}
}
