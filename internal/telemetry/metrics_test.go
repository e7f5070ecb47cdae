package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestGetMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	m := GetMetrics()
	require.Same(t, m, GetMetrics())

	ctx := context.Background()
	mode := metric.WithAttributes(attribute.String("mode", "production"))
	m.BuildsTotal.Add(ctx, 1, mode)
	m.AssetsInlinedTotal.Add(ctx, 3, mode)
	m.ReloadClients.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		require.Equal(t, meterName, sm.Scope.Name)
		for _, md := range sm.Metrics {
			names[md.Name] = true
		}
	}

	require.True(t, names["bundlr.builds.total"])
	require.True(t, names["bundlr.assets.inlined.total"])
	require.True(t, names["bundlr.devserver.reload_clients"])
}
