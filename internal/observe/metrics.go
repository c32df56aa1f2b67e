// Package observe provides the service's OpenTelemetry metrics, the
// Prometheus exporter bridge that serves them on /metrics, and HTTP
// middleware that records request latency.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/nudiguru/nudiguru-api"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// EvaluationDuration tracks end-to-end evaluation latency. Use with
	// attribute.String("outcome", ...).
	EvaluationDuration metric.Float64Histogram

	// PipelineDuration tracks per-pipeline latency. Use with
	// attribute.String("pipeline", ...).
	PipelineDuration metric.Float64Histogram

	// PipelineRuns counts pipeline executions. Use with attributes:
	//   attribute.String("pipeline", ...), attribute.String("status", ...)
	PipelineRuns metric.Int64Counter

	// PrefilterVerdicts counts gross-distance check outcomes. Use with
	// attribute.String("verdict", ...).
	PrefilterVerdicts metric.Int64Counter

	// ReferenceResolutions counts reference audio lookups. Use with
	// attribute.String("source", ...).
	ReferenceResolutions metric.Int64Counter

	// BattleSubmissions counts battle score submissions. Use with
	// attribute.String("status", ...).
	BattleSubmissions metric.Int64Counter

	// BattleRooms tracks rooms created since start.
	BattleRooms metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("route", ...),
	// attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// scoring latencies, which run from tens of milliseconds to several seconds.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised Metrics struct using the given
// MeterProvider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EvaluationDuration, err = m.Float64Histogram("nudiguru.evaluation.duration",
		metric.WithDescription("Latency of a complete pronunciation evaluation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("nudiguru.pipeline.duration",
		metric.WithDescription("Latency of one scoring pipeline."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineRuns, err = m.Int64Counter("nudiguru.pipeline.runs",
		metric.WithDescription("Scoring pipeline runs by pipeline and status."),
	); err != nil {
		return nil, err
	}
	if met.PrefilterVerdicts, err = m.Int64Counter("nudiguru.prefilter.verdicts",
		metric.WithDescription("Gross-distance check outcomes by verdict."),
	); err != nil {
		return nil, err
	}
	if met.ReferenceResolutions, err = m.Int64Counter("nudiguru.reference.resolutions",
		metric.WithDescription("Reference audio resolutions by source."),
	); err != nil {
		return nil, err
	}
	if met.BattleSubmissions, err = m.Int64Counter("nudiguru.battle.submissions",
		metric.WithDescription("Battle score submissions by resulting room status."),
	); err != nil {
		return nil, err
	}
	if met.BattleRooms, err = m.Int64UpDownCounter("nudiguru.battle.rooms",
		metric.WithDescription("Battle rooms held in memory."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("nudiguru.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Noop returns Metrics whose instruments discard every measurement.
func Noop() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// RecordEvaluation records one evaluation's latency.
func (m *Metrics) RecordEvaluation(ctx context.Context, outcome string, d time.Duration) {
	m.EvaluationDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordPipeline records one pipeline run.
func (m *Metrics) RecordPipeline(ctx context.Context, pipeline, status string, d time.Duration) {
	m.PipelineRuns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("pipeline", pipeline),
			attribute.String("status", status),
		),
	)
	m.PipelineDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("pipeline", pipeline)),
	)
}

// RecordPrefilter records a gross-distance check verdict.
func (m *Metrics) RecordPrefilter(ctx context.Context, verdict string) {
	m.PrefilterVerdicts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("verdict", verdict)),
	)
}

// RecordReference records where a reference recording came from.
func (m *Metrics) RecordReference(ctx context.Context, source string) {
	m.ReferenceResolutions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordBattleSubmission records a battle submission.
func (m *Metrics) RecordBattleSubmission(ctx context.Context, status string) {
	m.BattleSubmissions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
