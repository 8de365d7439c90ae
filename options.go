package rx

import "github.com/deadlyengineer/rx-with-go/scheduler"

// DefaultPrefetch is the number of elements a Flowable hand-off requests ahead of its subscriber.
const DefaultPrefetch = 128

type config struct {
	scheduler scheduler.Scheduler
	prefetch  int64
}

// Option configures an operator.
type Option func(*config)

// WithScheduler sets the scheduler an operator uses for timers and asynchronous work.
// The default is scheduler.Computation().
func WithScheduler(s scheduler.Scheduler) Option {
	return func(cfg *config) {
		cfg.scheduler = s
	}
}

// WithPrefetch sets the number of elements requested ahead of demand.
func WithPrefetch(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.prefetch = int64(n)
		}
	}
}

func applyOptions(opts []Option) config {
	cfg := config{
		prefetch: DefaultPrefetch,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.scheduler == nil {
		cfg.scheduler = scheduler.Computation()
	}

	return cfg
}
