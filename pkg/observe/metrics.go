// Package observe holds the OpenTelemetry instruments recorded while
// assembling timelines. Tests should build their own Metrics from a
// ManualReader-backed provider; production code can use Default.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "riddlecut"

// Metrics holds the instruments. Safe for concurrent use.
type Metrics struct {
	// AssemblyDuration tracks wall time of one Assemble call, by status.
	AssemblyDuration metric.Float64Histogram

	// Assemblies counts finished assemblies. Attribute: status (ok, error, canceled).
	Assemblies metric.Int64Counter

	// FootageFallbacks counts segments rendered over a placeholder. Attribute: reason.
	FootageFallbacks metric.Int64Counter

	// AlignmentDegraded counts segments shown without word highlighting.
	AlignmentDegraded metric.Int64Counter

	// TimelineSeconds tracks the total length of produced timelines.
	TimelineSeconds metric.Float64Histogram
}

var durationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

var lengthBuckets = []float64{10, 15, 20, 30, 45, 60}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AssemblyDuration, err = m.Float64Histogram("riddlecut.assembly.duration",
		metric.WithDescription("Latency of timeline assembly."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TimelineSeconds, err = m.Float64Histogram("riddlecut.timeline.length",
		metric.WithDescription("Total length of assembled timelines."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(lengthBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Assemblies, err = m.Int64Counter("riddlecut.assemblies",
		metric.WithDescription("Finished assemblies by status."),
	); err != nil {
		return nil, err
	}
	if met.FootageFallbacks, err = m.Int64Counter("riddlecut.footage.fallbacks",
		metric.WithDescription("Segments that fell back to placeholder footage."),
	); err != nil {
		return nil, err
	}
	if met.AlignmentDegraded, err = m.Int64Counter("riddlecut.alignment.degraded",
		metric.WithDescription("Segments captioned without word timing."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns a process-wide Metrics built on the global provider.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAssembly records one finished assembly.
func (m *Metrics) RecordAssembly(ctx context.Context, status string, elapsed time.Duration, total float64) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.Assemblies.Add(ctx, 1, attrs)
	m.AssemblyDuration.Record(ctx, elapsed.Seconds(), attrs)
	if total > 0 {
		m.TimelineSeconds.Record(ctx, total)
	}
}

// RecordFallback records a placeholder substitution.
func (m *Metrics) RecordFallback(ctx context.Context, reason string) {
	m.FootageFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordDegraded records a segment captioned without highlighting.
func (m *Metrics) RecordDegraded(ctx context.Context, kind string) {
	m.AlignmentDegraded.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
