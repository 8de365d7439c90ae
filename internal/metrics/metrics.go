// Package metrics holds the Prometheus collectors shared by the stream engine
// and its schedulers.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rx"

var (
	TasksScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tasks_scheduled_total",
		Help:      "The number of tasks submitted to a scheduler",
	}, []string{"scheduler"})

	TasksExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "tasks_executed_total",
		Help:      "The number of tasks a scheduler ran to completion",
	}, []string{"scheduler"})

	TaskPanics = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "task_panics_total",
		Help:      "The number of scheduled tasks that panicked",
	}, []string{"scheduler"})

	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "queue_depth",
		Help:      "The number of tasks waiting for a worker",
	}, []string{"scheduler"})

	BackpressureDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backpressure",
		Name:      "dropped_total",
		Help:      "The number of elements discarded by a backpressure overflow policy",
	}, []string{"policy"})

	UndeliverableErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "undeliverable_errors_total",
		Help:      "The number of errors raised after their subscription had already terminated",
	})
)

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		TasksScheduled,
		TasksExecuted,
		TaskPanics,
		QueueDepth,
		BackpressureDropped,
		UndeliverableErrors,
	}
}

// Register registers every collector with reg. Collectors that are already
// registered are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
