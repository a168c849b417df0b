// Package compiler runs the compilation pipeline over a finalized graph:
// validation, feedback analysis, simplification, both phases of network
// synthesis, and emission.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/flowc/internal/deploy"
	"github.com/roach88/flowc/internal/emit"
	"github.com/roach88/flowc/internal/ir"
)

// InstrumentationName names the tracer and meter of the compiler.
const InstrumentationName = "flowc.compiler"

// Deployment is the provider and endpoints a graph's network edges are
// synthesized against.
type Deployment struct {
	Provider  deploy.Provider
	Endpoints deploy.Endpoints
}

// Result is the output of one compilation.
type Result struct {
	BuildID     string
	Fingerprint string
	Programs    emit.Programs
	Warnings    []FeedbackWarning
	Networks    int
	Simplified  int
}

// Compiler runs the pipeline. It holds no per-graph state and is safe for
// concurrent use on distinct graphs.
type Compiler struct {
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
	ids    IDGenerator

	networks   metric.Int64Counter
	statements metric.Int64Counter
	duration   metric.Float64Histogram
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithTracer sets the tracer. Default: the global tracer provider's
// "flowc.compiler" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Compiler) { c.tracer = t }
}

// WithMeter sets the meter. Default: the global meter provider's
// "flowc.compiler" meter.
func WithMeter(m metric.Meter) Option {
	return func(c *Compiler) { c.meter = m }
}

// WithIDGenerator sets the build id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Compiler) { c.ids = g }
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		logger: slog.Default(),
		tracer: otel.Tracer(InstrumentationName),
		meter:  otel.Meter(InstrumentationName),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initMetrics()
	return c
}

// initMetrics creates the instruments. Failures are logged and the
// compiler keeps running without the failed instrument.
func (c *Compiler) initMetrics() {
	var initErrors []string
	var err error

	c.networks, err = c.meter.Int64Counter("flowc_networks_finalized_total",
		metric.WithDescription("Number of network edges finalized by a provider"),
	)
	if err != nil {
		initErrors = append(initErrors, "networks: "+err.Error())
	}

	c.statements, err = c.meter.Int64Counter("flowc_statements_emitted_total",
		metric.WithDescription("Number of statements emitted across all locations"),
	)
	if err != nil {
		initErrors = append(initErrors, "statements: "+err.Error())
	}

	c.duration, err = c.meter.Float64Histogram("flowc_compile_duration_seconds",
		metric.WithDescription("Time spent compiling one graph"),
		metric.WithUnit("s"),
	)
	if err != nil {
		initErrors = append(initErrors, "duration: "+err.Error())
	}

	if len(initErrors) > 0 {
		c.logger.Error("failed to initialize some compiler metrics",
			slog.Int("failed_count", len(initErrors)),
			slog.Any("errors", initErrors),
		)
	}
}

// Compile validates g, synthesizes its network edges against d and emits
// one program per location. d may be nil for a graph without network
// edges.
//
// A graph that fails validation returns ValidationErrors. A contract
// violation detected by a pass returns the *ir.Error it aborted with.
// g is consumed: its network edges are connected and cannot be compiled
// again.
func (c *Compiler) Compile(ctx context.Context, g *ir.Graph, d *Deployment) (res *Result, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "flowc.Compile",
		trace.WithAttributes(
			attribute.Int("graph.leaves", len(g.Leaves)),
			attribute.Int("graph.nodes", g.CountNodes()),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			res = nil
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Error("compile failed", "error", err)
			return
		}
		span.SetStatus(codes.Ok, "")
		if c.duration != nil {
			c.duration.Record(ctx, time.Since(start).Seconds())
		}
	}()
	defer ir.Recover(&err)

	var verrs []ValidationError
	c.phase(ctx, "validate", func() { verrs = Validate(g) })
	if len(verrs) > 0 {
		return nil, ValidationErrors(verrs)
	}

	res = &Result{BuildID: c.ids.Generate()}
	span.SetAttributes(attribute.String("build.id", res.BuildID))
	logger := c.logger.With("build_id", res.BuildID)

	if res.Fingerprint, err = ir.Fingerprint(g); err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	c.phase(ctx, "feedback", func() { res.Warnings = AnalyzeFeedback(g) })
	for _, w := range res.Warnings {
		if w.Level == LevelWarning {
			logger.Warn(w.Message, "path", w.Path)
		} else {
			logger.Info(w.Message, "path", w.Path)
		}
	}

	c.phase(ctx, "simplify", func() {
		res.Simplified = Simplify(g)
		g.Compact()
	})

	res.Networks = len(g.Networks())
	if res.Networks > 0 {
		if d == nil || d.Provider == nil {
			return nil, fmt.Errorf("graph has %d network edges but no deployment", res.Networks)
		}
		c.phase(ctx, "compile_network", func() {
			deploy.CompileNetwork(g, d.Provider, d.Endpoints)
			g.Compact()
		})
		if c.networks != nil {
			c.networks.Add(ctx, int64(res.Networks))
		}
		c.phase(ctx, "connect_network", func() {
			deploy.ConnectNetwork(g)
			g.Compact()
		})
	}

	c.phase(ctx, "emit", func() { res.Programs = emit.MustEmit(g) })
	if c.statements != nil {
		c.statements.Add(ctx, int64(res.Programs.Statements()))
	}

	logger.Info("graph compiled",
		"fingerprint", res.Fingerprint,
		"locations", len(res.Programs),
		"statements", res.Programs.Statements(),
		"networks", res.Networks,
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// phase runs fn under a child span. An abort inside fn marks the span
// failed and keeps unwinding.
func (c *Compiler) phase(ctx context.Context, name string, fn func()) {
	_, span := c.tracer.Start(ctx, "flowc."+name)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, fmt.Sprint(r))
			panic(r)
		}
	}()
	fn()
	c.logger.Debug("phase complete", "phase", name)
}
