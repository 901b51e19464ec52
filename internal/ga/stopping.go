package ga

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// SearchState is a snapshot of the search handed to listeners.
type SearchState struct {
	Generation     int
	Evaluations    int64
	BestFitness    float64
	Coverage       float64
	CoveredGoals   int
	PopulationSize int
	Elapsed        time.Duration
}

// SearchListener observes the search.
type SearchListener interface {
	SearchStarted(state SearchState)
	Iteration(state SearchState)
	FitnessEvaluated(fitness float64)
	SearchFinished(state SearchState)
}

// NopListener implements SearchListener with no-ops. Embed it to implement
// only the events of interest.
type NopListener struct{}

// SearchStarted implements SearchListener.
func (NopListener) SearchStarted(SearchState) {}

// Iteration implements SearchListener.
func (NopListener) Iteration(SearchState) {}

// FitnessEvaluated implements SearchListener.
func (NopListener) FitnessEvaluated(float64) {}

// SearchFinished implements SearchListener.
func (NopListener) SearchFinished(SearchState) {}

// StoppingCondition is polled between generations.
type StoppingCondition interface {
	SearchListener
	Name() string
	IsFinished() bool
	Reset()
	CurrentValue() int64
	Limit() int64
	SetLimit(limit int64)
}

// ExecutionStats exposes how much test code was executed.
type ExecutionStats interface {
	TestsExecuted() int64
	StatementsExecuted() int64
}

// StoppingKind selects a budget type.
type StoppingKind string

// Budget types.
const (
	StopMaxTime        StoppingKind = "maxtime"
	StopMaxGenerations StoppingKind = "maxgenerations"
	StopMaxEvaluations StoppingKind = "maxevaluations"
	StopMaxTests       StoppingKind = "maxtests"
	StopMaxStatements  StoppingKind = "maxstatements"
)

// NewStoppingCondition builds the condition for a budget type. stats is
// required by the test and statement budgets.
func NewStoppingCondition(kind StoppingKind, limit int64, stats ExecutionStats) (StoppingCondition, error) {
	switch kind {
	case StopMaxTime:
		return NewMaxTimeCondition(time.Duration(limit) * time.Second), nil
	case StopMaxGenerations:
		return &MaxGenerationsCondition{limit: limit}, nil
	case StopMaxEvaluations:
		return &MaxFitnessEvaluationsCondition{limit: limit}, nil
	case StopMaxTests, StopMaxStatements:
		if stats == nil {
			return nil, fmt.Errorf("stopping condition %q requires execution stats", kind)
		}

		if kind == StopMaxTests {
			return NewMaxTestsCondition(stats, limit), nil
		}

		return NewMaxStatementsCondition(stats, limit), nil
	}

	return nil, fmt.Errorf("unknown stopping condition %q", kind)
}

// MaxGenerationsCondition stops after a number of generations.
type MaxGenerationsCondition struct {
	NopListener
	limit   int64
	current int64
}

// NewMaxGenerationsCondition returns the condition with the given limit.
func NewMaxGenerationsCondition(limit int64) *MaxGenerationsCondition {
	return &MaxGenerationsCondition{limit: limit}
}

func (c *MaxGenerationsCondition) Name() string              { return string(StopMaxGenerations) }
func (c *MaxGenerationsCondition) IsFinished() bool          { return c.current >= c.limit }
func (c *MaxGenerationsCondition) Reset()                    { c.current = 0 }
func (c *MaxGenerationsCondition) CurrentValue() int64       { return c.current }
func (c *MaxGenerationsCondition) Limit() int64              { return c.limit }
func (c *MaxGenerationsCondition) SetLimit(limit int64)      { c.limit = limit }
func (c *MaxGenerationsCondition) Iteration(SearchState)     { c.current++ }
func (c *MaxGenerationsCondition) SearchStarted(SearchState) { c.Reset() }

// MaxFitnessEvaluationsCondition stops after a number of fitness evaluations.
type MaxFitnessEvaluationsCondition struct {
	NopListener
	limit   int64
	current atomic.Int64
}

// NewMaxFitnessEvaluationsCondition returns the condition with the given limit.
func NewMaxFitnessEvaluationsCondition(limit int64) *MaxFitnessEvaluationsCondition {
	return &MaxFitnessEvaluationsCondition{limit: limit}
}

func (c *MaxFitnessEvaluationsCondition) Name() string         { return string(StopMaxEvaluations) }
func (c *MaxFitnessEvaluationsCondition) IsFinished() bool     { return c.current.Load() >= c.limit }
func (c *MaxFitnessEvaluationsCondition) Reset()               { c.current.Store(0) }
func (c *MaxFitnessEvaluationsCondition) CurrentValue() int64  { return c.current.Load() }
func (c *MaxFitnessEvaluationsCondition) Limit() int64         { return c.limit }
func (c *MaxFitnessEvaluationsCondition) SetLimit(limit int64) { c.limit = limit }
func (c *MaxFitnessEvaluationsCondition) FitnessEvaluated(float64) {
	c.current.Add(1)
}
func (c *MaxFitnessEvaluationsCondition) SearchStarted(SearchState) { c.Reset() }

// timeCondition measures wall clock time since the search started. The limit
// is kept in seconds.
type timeCondition struct {
	NopListener
	name    string
	limit   int64
	started time.Time
	now     func() time.Time
}

func (c *timeCondition) Name() string { return c.name }
func (c *timeCondition) IsFinished() bool {
	return c.CurrentValue() >= c.limit
}
func (c *timeCondition) Reset()               { c.started = c.now() }
func (c *timeCondition) Limit() int64         { return c.limit }
func (c *timeCondition) SetLimit(limit int64) { c.limit = limit }
func (c *timeCondition) CurrentValue() int64 {
	if c.started.IsZero() {
		return 0
	}

	return int64(c.now().Sub(c.started) / time.Second)
}
func (c *timeCondition) SearchStarted(SearchState) { c.Reset() }

// MaxTimeCondition is the wall clock search budget.
type MaxTimeCondition struct {
	timeCondition
}

// NewMaxTimeCondition returns a wall clock budget.
func NewMaxTimeCondition(limit time.Duration) *MaxTimeCondition {
	return &MaxTimeCondition{timeCondition{name: string(StopMaxTime), limit: int64(limit / time.Second), now: time.Now}}
}

// GlobalTimeCondition guards every search that has no wall clock budget.
type GlobalTimeCondition struct {
	timeCondition
}

// NewGlobalTimeCondition returns the global guard.
func NewGlobalTimeCondition(limit time.Duration) *GlobalTimeCondition {
	return &GlobalTimeCondition{timeCondition{name: "globaltime", limit: int64(limit / time.Second), now: time.Now}}
}

// executionCondition reads a counter of executed test code.
type executionCondition struct {
	NopListener
	name   string
	limit  int64
	offset int64
	read   func() int64
}

func (c *executionCondition) Name() string         { return c.name }
func (c *executionCondition) IsFinished() bool     { return c.CurrentValue() >= c.limit }
func (c *executionCondition) Reset()               { c.offset = c.read() }
func (c *executionCondition) CurrentValue() int64  { return c.read() - c.offset }
func (c *executionCondition) Limit() int64         { return c.limit }
func (c *executionCondition) SetLimit(limit int64) { c.limit = limit }
func (c *executionCondition) SearchStarted(SearchState) {
	c.Reset()
}

// NewMaxTestsCondition stops after limit executed tests.
func NewMaxTestsCondition(stats ExecutionStats, limit int64) StoppingCondition {
	return &executionCondition{name: string(StopMaxTests), limit: limit, read: stats.TestsExecuted}
}

// NewMaxStatementsCondition stops after limit executed statements.
func NewMaxStatementsCondition(stats ExecutionStats, limit int64) StoppingCondition {
	return &executionCondition{name: string(StopMaxStatements), limit: limit, read: stats.StatementsExecuted}
}

// ZeroFitnessCondition stops once the best individual reaches fitness zero.
type ZeroFitnessCondition struct {
	NopListener
	last    float64
	started bool
}

// NewZeroFitnessCondition returns the condition.
func NewZeroFitnessCondition() *ZeroFitnessCondition {
	return &ZeroFitnessCondition{}
}

func (c *ZeroFitnessCondition) Name() string { return "zerofitness" }
func (c *ZeroFitnessCondition) IsFinished() bool {
	return c.started && c.last == 0
}
func (c *ZeroFitnessCondition) Reset()                    { c.started = false }
func (c *ZeroFitnessCondition) CurrentValue() int64       { return int64(c.last) }
func (c *ZeroFitnessCondition) Limit() int64              { return 0 }
func (c *ZeroFitnessCondition) SetLimit(int64)            {}
func (c *ZeroFitnessCondition) SearchStarted(SearchState) { c.Reset() }
func (c *ZeroFitnessCondition) Iteration(state SearchState) {
	c.last, c.started = state.BestFitness, true
}

// ExternalStopCondition is finished once Stop has been called from outside
// the search, for instance by an HTTP handler.
type ExternalStopCondition struct {
	NopListener
	stopped atomic.Bool
}

// NewExternalStopCondition returns the condition.
func NewExternalStopCondition() *ExternalStopCondition {
	return &ExternalStopCondition{}
}

// Stop requests termination after the current generation.
func (c *ExternalStopCondition) Stop() { c.stopped.Store(true) }

func (c *ExternalStopCondition) Name() string     { return "external" }
func (c *ExternalStopCondition) IsFinished() bool { return c.stopped.Load() }
func (c *ExternalStopCondition) Reset()           { c.stopped.Store(false) }
func (c *ExternalStopCondition) CurrentValue() int64 {
	if c.stopped.Load() {
		return 1
	}

	return 0
}
func (c *ExternalStopCondition) Limit() int64   { return 1 }
func (c *ExternalStopCondition) SetLimit(int64) {}

// ContextStopCondition is finished once ctx is done, e.g. when a shutdown
// signal cancelled it.
type ContextStopCondition struct {
	NopListener
	ctx context.Context
}

// NewContextStopCondition returns the condition bound to ctx.
func NewContextStopCondition(ctx context.Context) *ContextStopCondition {
	return &ContextStopCondition{ctx: ctx}
}

func (c *ContextStopCondition) Name() string     { return "shutdown" }
func (c *ContextStopCondition) IsFinished() bool { return c.ctx.Err() != nil }
func (c *ContextStopCondition) Reset()           {}
func (c *ContextStopCondition) CurrentValue() int64 {
	if c.IsFinished() {
		return 1
	}

	return 0
}
func (c *ContextStopCondition) Limit() int64   { return 1 }
func (c *ContextStopCondition) SetLimit(int64) {}
