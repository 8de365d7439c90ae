package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
)

var logger = log.Logger("rxdemo")

func main() {
	// set up a context that is canceled when a command is interrupted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up a signal handler to cancel the context
	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			logger.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}

		// Allow any further SIGTERM or SIGINT to kill process
		signal.Stop(interrupt)
	}()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "rxdemo",
		Usage:   "Runs reactive stream pipelines and prints their notifications",
		Suggest: true,
		Flags: []cli.Flag{
			FlagVerbose,
			FlagVeryVerbose,
			FlagTick,
		},
		Commands: []*cli.Command{
			transformCmd,
			filterCmd,
			combineCmd,
			otherCmd,
			backpressureCmd,
		},
	}
}
