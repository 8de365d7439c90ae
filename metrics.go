package rx

import (
	"github.com/deadlyengineer/rx-with-go/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterMetrics registers the collectors of the stream engine and its schedulers with reg.
// Registering with the same registry twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	return metrics.Register(reg)
}
