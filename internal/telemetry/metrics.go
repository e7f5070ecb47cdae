package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/bundlr"
)

// Metrics holds the instruments recorded by build passes and the dev server.
type Metrics struct {
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram

	AssetsInlinedTotal metric.Int64Counter
	AssetsEmittedTotal metric.Int64Counter

	ReloadClients metric.Int64UpDownCounter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments come from the global meter provider, a no-op until InitTelemetry runs.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"bundlr.builds.total",
		metric.WithDescription("Total number of build passes"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"bundlr.builds.errors.total",
		metric.WithDescription("Total number of failed build passes"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"bundlr.builds.duration",
		metric.WithDescription("Duration of build passes"),
		metric.WithUnit("ms"),
	)

	m.AssetsInlinedTotal, _ = meter.Int64Counter(
		"bundlr.assets.inlined.total",
		metric.WithDescription("Total number of assets inlined as data URIs"),
		metric.WithUnit("{asset}"),
	)

	m.AssetsEmittedTotal, _ = meter.Int64Counter(
		"bundlr.assets.emitted.total",
		metric.WithDescription("Total number of files written to the output directory"),
		metric.WithUnit("{file}"),
	)

	m.ReloadClients, _ = meter.Int64UpDownCounter(
		"bundlr.devserver.reload_clients",
		metric.WithDescription("Number of connected live reload clients"),
		metric.WithUnit("{client}"),
	)

	return m
}
