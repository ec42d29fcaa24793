// Package pipeline assembles stage.Stage implementations into a runnable
// plan: it owns the top-level SerialContainer, wires a fresh pruner.Pruner
// into every pruning-aware stage, and drives the single-threaded
// cooperative scheduling loop described in spec.md §4.7.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/weavemotion/pipeline/pruner"
	"github.com/weavemotion/pipeline/stage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline is the top-level entry point: a Task in spec.md's terms. It
// wraps a single root SerialContainer so the whole stage tree is itself
// one Stage, letting Plan reuse the exact same "pick the globally best
// pending priority" rule a nested container uses for its own children
// (spec.md §4.1).
type Pipeline struct {
	name   string
	root   *stage.SerialContainer
	pruner *pruner.Pruner

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithLogger sets the structured logger the Pipeline and its root container
// use.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer used for the Pipeline's own
// pipeline.plan span and for its root container. It is not passed on to the
// stages given to Add: each of those uses the tracer (if any) it was
// constructed with via stage.WithTracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = tracer }
}

// WithMetrics supplies a pre-constructed Metrics instance, letting callers
// share one set of instruments across several Pipelines.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithMeter sets the OpenTelemetry Meter the Pipeline's Metrics records
// through, equivalent to WithMetrics(NewMetrics(meter)). If neither option
// is given, New falls back to the no-op meter, so metrics calls are
// harmless no-ops until a real Meter is wired in.
func WithMeter(meter metric.Meter) Option {
	return func(p *Pipeline) { p.metrics = NewMetrics(meter) }
}

// New constructs an empty Pipeline named name. Add stages with Add, then
// call Init before Plan.
func New(name string, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:    name,
		logger:  slog.Default(),
		metrics: NewMetrics(nil),
		pruner:  pruner.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.root = stage.NewSerialContainer(name, stage.WithLogger(p.logger), stage.WithTracer(p.tracer))
	p.root.SetPruner(p.pruner)
	return p
}

// Add appends a top-level stage to the pipeline's chain, in left-to-right
// order. Stages may themselves be containers, nesting arbitrarily deep
// (spec.md §4.6).
func (p *Pipeline) Add(s stage.Stage) {
	p.root.Add(s)
}

// Init wires every adjacent pair of stages together and propagates model
// top-down into every stage's Init (spec.md §3 lifecycle).
func (p *Pipeline) Init(ctx context.Context, model stage.RobotModel) error {
	return p.root.Init(ctx, model)
}

// Result summarizes one Plan call.
type Result struct {
	// Rounds is the number of ComputeNext invocations the scheduler ran.
	Rounds int
	// Solutions is every feasible end-to-end chain found, sorted by
	// ascending cost.
	Solutions []stage.Solution
	// DeadlineExceeded reports whether Plan stopped because the timeout
	// elapsed rather than because the pipeline was exhausted.
	DeadlineExceeded bool
}

// Plan drives the scheduling loop until either no stage has pending work,
// the context is cancelled, or timeout elapses — whichever comes first
// (spec.md §4.7). timeout <= 0 means no soft deadline; the loop still stops
// once the pipeline is exhausted or ctx is done.
func (p *Pipeline) Plan(ctx context.Context, timeout time.Duration) (Result, error) {
	ctx, span := p.startSpan(ctx, "pipeline.plan")
	defer span.End()
	span.SetAttributes(attribute.String("pipeline.name", p.name))

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	var rounds int
	exceeded := false
	for {
		select {
		case <-ctx.Done():
			return p.result(rounds, exceeded), ctx.Err()
		default:
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			exceeded = true
			break
		}

		if !p.root.CanCompute() {
			break
		}

		sols, err := p.root.ComputeNext(ctx)
		if err != nil {
			return p.result(rounds, exceeded), err
		}
		rounds++
		p.metrics.RecordRound()

		for _, sol := range sols {
			p.track(sol)
		}
	}

	p.metrics.SetPendingWorkItems(p.pruner.DeadStateCount())
	p.reportStageMetrics(p.root)

	res := p.result(rounds, exceeded)
	p.metrics.RecordSolutionsFound(len(res.Solutions))
	p.logger.InfoContext(ctx, "plan finished",
		"pipeline", p.name, "rounds", rounds,
		"solutions", len(res.Solutions), "deadline_exceeded", exceeded)
	return res, nil
}

func (p *Pipeline) result(rounds int, exceeded bool) Result {
	var sols []stage.Solution
	for _, sol := range p.root.Solutions() {
		if !sol.IsFailure() {
			sols = append(sols, sol)
		}
	}
	sort.Slice(sols, func(i, j int) bool { return sols[i].Cost() < sols[j].Cost() })
	return Result{Rounds: rounds, Solutions: sols, DeadlineExceeded: exceeded}
}

// track registers a solution's endpoints with the Pruner so future
// MarkDead calls can cascade through them (spec.md §4.8).
func (p *Pipeline) track(sol stage.Solution) {
	if s := sol.Start(); s != nil {
		p.pruner.Track(s)
	}
	if e := sol.End(); e != nil {
		p.pruner.Track(e)
	}
}

// reportStageMetrics walks the stage tree, recording per-stage call and
// failure counters. SerialContainer children are visited recursively so
// nested containers contribute their own leaf stages' counts rather than
// just the container's own aggregate.
func (p *Pipeline) reportStageMetrics(s stage.Stage) {
	p.metrics.RecordStageCall(s.ID().String(), s.Name(), s.Calls())
	p.metrics.RecordStageFailures(s.ID().String(), s.Name(), s.Failures())

	if container, ok := s.(*stage.SerialContainer); ok {
		for _, child := range container.Children() {
			p.reportStageMetrics(child)
		}
	}
}

func (p *Pipeline) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	if p.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return p.tracer.Start(ctx, op)
}
