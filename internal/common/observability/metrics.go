package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability exposes submission and job instruments through the otel SDK.
// A zero value is usable and records nothing.
type Observability struct {
	meterProvider      *metric.MeterProvider
	submissionCounter  otelmetric.Int64Counter
	submissionDuration otelmetric.Float64Histogram
	jobCounter         otelmetric.Int64Counter
}

func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	submissionCounter, _ := meter.Int64Counter(
		"deals.submitted",
		otelmetric.WithDescription("Number of deal submissions by outcome"),
	)
	submissionDuration, _ := meter.Float64Histogram(
		"deals.submission.duration",
		otelmetric.WithDescription("Deal submission duration"),
		otelmetric.WithUnit("ms"),
	)
	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)

	return &Observability{
		meterProvider:      provider,
		submissionCounter:  submissionCounter,
		submissionDuration: submissionDuration,
		jobCounter:         jobCounter,
	}, nil
}

// RecordSubmission records one submission attempt.
func (o *Observability) RecordSubmission(ctx context.Context, branch, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("branch", branch),
		attribute.String("status", status),
	)
	if o.submissionCounter != nil {
		o.submissionCounter.Add(ctx, 1, attrs)
	}
	if o.submissionDuration != nil {
		o.submissionDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, jobType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("job_type", jobType),
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
