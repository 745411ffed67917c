// Package observe provides the service's observability primitives:
// OpenTelemetry metrics with a Prometheus scrape bridge, and HTTP middleware
// that records request latency and logs completions.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all service metrics.
const meterName = "github.com/meetmemo/meetmemo"

// Metrics holds all metric instruments. All fields are safe for concurrent
// use — the underlying OTel types handle their own synchronisation.
type Metrics struct {
	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram

	// StageDuration tracks background stage execution latency. Use with
	// attributes: stage, status.
	StageDuration metric.Float64Histogram

	// UploadsTotal counts ingested uploads by outcome (created, duplicate,
	// rejected).
	UploadsTotal metric.Int64Counter

	// LLMRequests counts LLM calls by operation (summarize, identify) and
	// status.
	LLMRequests metric.Int64Counter

	// ProviderErrors counts external collaborator failures by provider
	// (whisper, diarization, llm, ffmpeg).
	ProviderErrors metric.Int64Counter

	// ExportsTotal counts export jobs by format and status.
	ExportsTotal metric.Int64Counter

	// ActiveStageTasks tracks currently running background stage and export
	// tasks.
	ActiveStageTasks metric.Int64UpDownCounter
}

// latencyBuckets covers both sub-second HTTP handling and multi-minute
// inference stages.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.HTTPRequestDuration, err = m.Float64Histogram("meetmemo.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("meetmemo.stage.duration",
		metric.WithDescription("Background stage execution latency by stage and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UploadsTotal, err = m.Int64Counter("meetmemo.uploads.total",
		metric.WithDescription("Ingested uploads by outcome."),
	); err != nil {
		return nil, err
	}
	if met.LLMRequests, err = m.Int64Counter("meetmemo.llm.requests",
		metric.WithDescription("LLM calls by operation and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("meetmemo.provider.errors",
		metric.WithDescription("External collaborator failures by provider."),
	); err != nil {
		return nil, err
	}
	if met.ExportsTotal, err = m.Int64Counter("meetmemo.exports.total",
		metric.WithDescription("Export jobs by format and status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStageTasks, err = m.Int64UpDownCounter("meetmemo.stage.active",
		metric.WithDescription("Currently running background tasks."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from the global meter provider. Tests should use [NewMetrics] with
// their own provider to avoid cross-test pollution.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStage records one background stage completion.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, seconds float64) {
	m.StageDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

// RecordUpload records one ingest outcome.
func (m *Metrics) RecordUpload(ctx context.Context, outcome string) {
	m.UploadsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordLLM records one LLM call by operation (summarize, identify) and
// status.
func (m *Metrics) RecordLLM(ctx context.Context, operation, status string) {
	m.LLMRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordExport records one finished export render by format and status.
func (m *Metrics) RecordExport(ctx context.Context, format, status string) {
	m.ExportsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("format", format),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records one external collaborator failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
