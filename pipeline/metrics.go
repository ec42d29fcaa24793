package pipeline

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	metricRoundsTotal       = "pipeline.rounds_total"
	metricSolutionsFound    = "pipeline.solutions_found_total"
	metricStageComputeCalls = "pipeline.stage_compute_calls_total"
	metricStageFailures     = "pipeline.stage_failures_total"
	metricPendingWorkItems  = "pipeline.pending_work_items"
)

// Metrics records a Pipeline's operational counters/gauges through an
// OpenTelemetry Meter, lazily creating each instrument on first use and
// caching it for reuse (grounded on the teacher's
// OpenTelemetryMetricsRecorder.getOrCreateCounter/getOrCreateGauge,
// internal/observability/metrics.go). Unlike a promauto-style package-level
// registerer, a Meter is owned per MeterProvider, so constructing several
// Pipelines never collides over a single shared registry: each gets its own
// Metrics bound to whatever Meter (or MeterProvider) it was given.
type Metrics struct {
	meter metric.Meter

	mu       sync.RWMutex
	counters map[string]metric.Int64Counter
	gauges   map[string]metric.Float64Gauge
}

// NewMetrics constructs a Metrics instance recording through meter. A nil
// meter falls back to OpenTelemetry's no-op meter, matching InitMetrics'
// "Enabled: false" no-op path in the teacher: metrics calls are safe no-ops
// until a real Meter is wired in via WithMeter.
func NewMetrics(meter metric.Meter) *Metrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("pipeline")
	}
	return &Metrics{
		meter:    meter,
		counters: make(map[string]metric.Int64Counter),
		gauges:   make(map[string]metric.Float64Gauge),
	}
}

// RecordRound increments the scheduling-round counter by one.
func (m *Metrics) RecordRound() {
	if c := m.getOrCreateCounter(metricRoundsTotal, "Total number of scheduling rounds executed across all Plan calls."); c != nil {
		c.Add(context.Background(), 1)
	}
}

// RecordSolutionsFound adds n to the feasible-solutions counter.
func (m *Metrics) RecordSolutionsFound(n int) {
	if n <= 0 {
		return
	}
	if c := m.getOrCreateCounter(metricSolutionsFound, "Total number of feasible end-to-end solutions enumerated."); c != nil {
		c.Add(context.Background(), int64(n))
	}
}

// RecordStageCall adds n to the per-stage ComputeNext call counter.
func (m *Metrics) RecordStageCall(stageID, stageName string, n int) {
	if n <= 0 {
		return
	}
	if c := m.getOrCreateCounter(metricStageComputeCalls, "Total number of ComputeNext invocations per stage."); c != nil {
		c.Add(context.Background(), int64(n), metric.WithAttributes(
			attribute.String("stage_id", stageID),
			attribute.String("stage_name", stageName),
		))
	}
}

// RecordStageFailures adds n to the per-stage infeasible-solution counter.
func (m *Metrics) RecordStageFailures(stageID, stageName string, n int) {
	if n <= 0 {
		return
	}
	if c := m.getOrCreateCounter(metricStageFailures, "Total number of infeasible (+Inf cost) solutions recorded per stage."); c != nil {
		c.Add(context.Background(), int64(n), metric.WithAttributes(
			attribute.String("stage_id", stageID),
			attribute.String("stage_name", stageName),
		))
	}
}

// SetPendingWorkItems records the current number of InterfaceStates a
// Pruner has marked dead.
func (m *Metrics) SetPendingWorkItems(n int) {
	if g := m.getOrCreateGauge(metricPendingWorkItems, "Number of InterfaceStates currently marked dead by the Pruner."); g != nil {
		g.Record(context.Background(), float64(n))
	}
}

func (m *Metrics) getOrCreateCounter(name, help string) metric.Int64Counter {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	c, err := m.meter.Int64Counter(name, metric.WithDescription(help))
	if err != nil {
		return nil
	}
	m.counters[name] = c
	return c
}

func (m *Metrics) getOrCreateGauge(name, help string) metric.Float64Gauge {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if ok {
		return g
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g
	}
	g, err := m.meter.Float64Gauge(name, metric.WithDescription(help))
	if err != nil {
		return nil
	}
	m.gauges[name] = g
	return g
}
