package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	rx "github.com/deadlyengineer/rx-with-go"
	"github.com/urfave/cli/v2"
)

var combineCmd = &cli.Command{
	Name:   "combine",
	Usage:  "Runs the combining operators: zip, merge, combineLatest, concat, switchOnNext and join",
	Action: Combine,
}

func Combine(cctx *cli.Context) error {
	d := newDemo(cctx, "combine")
	return d.run(cctx.Context, d.combinePipelines()...)
}

var (
	goods      = []string{"Toaster", "Oven", "Fan"}
	goodPrices = []string{"199usd", "ErrorUsd", "255usd"}

	firstFactory  = []int{11, 90, 102, 100, 88}
	secondFactory = []int{-5, -10, -58, -80, -90}
)

func (d *demo) combinePipelines() []pipeline {
	fullNames := rx.Zip(rx.Just(names...), rx.Just(surnames...), func(name string, surname string) (string, error) {
		return name + " " + surname, nil
	})

	priced := rx.Zip(rx.Just(goods...), rx.Just(goodPrices...), func(good string, price string) (string, error) {
		usd, err := strconv.Atoi(strings.TrimSuffix(price, "usd"))
		if err != nil {
			return "", fmt.Errorf("bad price for %s: %w", good, err)
		}
		return fmt.Sprintf("%s costs $%d", good, usd), nil
	})

	temperatures := rx.CombineLatest2(paced(3*d.tick, firstFactory...), paced(5*d.tick, secondFactory...), func(first int, second int) (string, error) {
		return fmt.Sprintf("first=%d second=%d", first, second), nil
	})

	after := func(delay time.Duration, src rx.Observable[string]) rx.Observable[rx.Observable[string]] {
		return rx.Map(rx.Timer(delay), rx.FuncMapper(func(int64) rx.Observable[string] {
			return src
		}))
	}

	switched := rx.SwitchOnNext(rx.Concat(
		after(d.tick*3/2, paced(d.tick, names...)),
		after(3*d.tick, paced(d.tick, surnames...)),
	))

	joined := rx.Join(rx.Interval(d.tick), rx.Interval(3*d.tick),
		func(int64) time.Duration {
			return 3 * d.tick
		},
		func(int64) time.Duration {
			return d.tick
		},
		func(left int64, right int64) (string, error) {
			return fmt.Sprintf("left %d, right %d", left, right), nil
		},
	)

	return []pipeline{
		{name: "zip", src: fullNames},
		{name: "zipError", src: priced},
		{name: "merge", src: paced(3*d.tick, names...).MergeWith(paced(5*d.tick, surnames...))},
		{name: "combineLatest", src: temperatures},
		{name: "concat", src: paced(3*d.tick, names...).ConcatWith(paced(5*d.tick, surnames...))},
		{name: "switchOnNext", src: switched},
		{name: "join", src: joined.Take(10)},
	}
}
