package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/flowc/internal/compiler"
	"github.com/roach88/flowc/internal/deploy/localhost"
	"github.com/roach88/flowc/internal/emit"
	"github.com/roach88/flowc/internal/graphfile"
	"github.com/roach88/flowc/internal/store"
)

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool

	// Errors contains one message per failed assertion.
	Errors []string

	// Validation holds the validation errors of a graph that failed to
	// compile. Programs is nil in that case.
	Validation []compiler.ValidationError

	Programs emit.Programs
	Warnings []compiler.FeedbackWarning
	Networks int

	// Channels are the channels connected for the scenario, in connect
	// order.
	Channels []store.ChannelRecord
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// channelLog is an in-memory localhost.Ledger.
type channelLog struct {
	mu       sync.Mutex
	channels []store.ChannelRecord
}

func (l *channelLog) RecordChannel(_ context.Context, c store.ChannelRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = append(l.channels, c)
	return nil
}

// Run compiles the scenario's graph and evaluates its assertions.
//
// A graph that fails validation is an outcome, not an error: it is
// reported in Result.Validation for the invalid assertion to check. Run
// returns an error only if the graph document cannot be loaded or a
// compiler pass aborts.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := graphfile.Load(scenario.Graph)
	if err != nil {
		return nil, err
	}
	built, err := graphfile.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	members := scenario.Deployment.Members
	if members == 0 {
		members = 2
	}
	logger := slog.New(slog.DiscardHandler)
	ledger := &channelLog{}
	dep := localhost.New(localhost.Config{
		Host:     scenario.Deployment.Host,
		BasePort: scenario.Deployment.BasePort,
		BuildID:  scenario.Name,
		Ledger:   ledger,
		Logger:   logger,
	})
	dep.InstantiateGraph(built.Graph, members)

	c := compiler.New(
		compiler.WithLogger(logger),
		compiler.WithIDGenerator(compiler.NewFixedGenerator(scenario.Name)),
	)

	result := NewResult()
	res, err := c.Compile(ctx, built.Graph, &compiler.Deployment{Provider: dep, Endpoints: dep.Endpoints()})
	var verrs compiler.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		result.Validation = verrs
	case err != nil:
		return nil, fmt.Errorf("failed to compile: %w", err)
	default:
		result.Programs = res.Programs
		result.Warnings = res.Warnings
		result.Networks = res.Networks
		result.Channels = ledger.channels
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
