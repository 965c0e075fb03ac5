/*
Package observability turns engine lifecycle hooks into Prometheus metrics and
structured log lines.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng, _ := bookflow.New(
		bookflow.WithLifecycleHooks(metrics.Hooks()),
		bookflow.WithLifecycleHooks(observability.LoggingHooks(logger)),
	)
*/
package observability
