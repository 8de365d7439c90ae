package metrics_test

import (
	"testing"

	"github.com/deadlyengineer/rx-with-go/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, metrics.Register(reg))
	require.NoError(t, metrics.Register(reg))

	metrics.TasksScheduled.WithLabelValues("test").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["rx_scheduler_tasks_scheduled_total"])
}
