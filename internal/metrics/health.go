package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HealthMetrics tracks the readiness probe's view of each dependency.
type HealthMetrics struct {
	dependencyUp           metric.Int64Gauge
	dependencyResponseTime metric.Float64Histogram
}

func NewHealthMetrics(meter metric.Meter) (*HealthMetrics, error) {
	hm := &HealthMetrics{}

	var err error

	// 1 = up, 0 = down
	hm.dependencyUp, err = meter.Int64Gauge(
		"dependency.up",
		metric.WithDescription("Dependency availability status (1=up, 0=down)"),
		metric.WithUnit("{status}"),
	)
	if err != nil {
		return nil, err
	}

	hm.dependencyResponseTime, err = meter.Float64Histogram(
		"dependency.response_time",
		metric.WithDescription("Dependency health check response time"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return nil, err
	}

	return hm, nil
}

// RecordCheck records one probe of dependency. A nil HealthMetrics ignores the call.
func (hm *HealthMetrics) RecordCheck(ctx context.Context, dependency string, duration time.Duration, err error) {
	if hm == nil || hm.dependencyUp == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("dependency", dependency))
	hm.dependencyResponseTime.Record(ctx, duration.Seconds(), attrs)

	up := int64(1)
	if err != nil {
		up = 0
	}
	hm.dependencyUp.Record(ctx, up, attrs)
}
