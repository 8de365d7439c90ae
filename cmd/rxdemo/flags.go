package main

import (
	"os"
	"time"

	"github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
)

// verbose logging is enabled for these subsystems when using the verbose or very-verbose flags
var verboseLoggingSubsystems = []string{
	"rxdemo",
	"rx",
	"rx/scheduler",
}

const defaultTick = 100 * time.Millisecond

// FlagVerbose enables verbose mode, which shows info information about
// operations invoked in the CLI.
var FlagVerbose = &cli.BoolFlag{
	Name:    "verbose",
	Aliases: []string{"v"},
	Usage:   "enable verbose mode for logging",
	Action:  setLogLevel("INFO"),
}

// FlagVeryVerbose enables very verbose mode, which shows debug information about
// operations invoked in the CLI.
var FlagVeryVerbose = &cli.BoolFlag{
	Name:    "very-verbose",
	Aliases: []string{"vv"},
	Usage:   "enable very verbose mode for debugging",
	Action:  setLogLevel("DEBUG"),
}

// FlagTick sets the time unit the timed pipelines are paced with.
var FlagTick = &cli.DurationFlag{
	Name:    "tick",
	Aliases: []string{"t"},
	Usage:   "the time unit timed pipelines are paced with",
	Value:   defaultTick,
	EnvVars: []string{"RXDEMO_TICK"},
}

// setLogLevel returns a CLI Action function that sets the
// logging level for the given subsystems to the given level.
func setLogLevel(level string) func(*cli.Context, bool) error {
	return func(cctx *cli.Context, _ bool) error {
		// don't override logging if set in the environment.
		if os.Getenv("GOLOG_LOG_LEVEL") != "" {
			return nil
		}
		for _, name := range verboseLoggingSubsystems {
			_ = log.SetLogLevel(name, level)
		}
		return nil
	}
}
