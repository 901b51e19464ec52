package adapter

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	m "evogen.dev/pkg/evogen/internal/model"
)

// Exception types raised by the interpreter.
const (
	ExceptionArithmetic     = "ArithmeticException"
	ExceptionNoSuchMethod   = "NoSuchMethodException"
	ExceptionIllegalAccess  = "IllegalAccessException"
	ExceptionIllegalArgs    = "IllegalArgumentException"
	ExceptionTooManyActions = "TooManyStatementsException"
)

// TestRunnerAdapter executes test cases against the unit under test.
type TestRunnerAdapter interface {
	// RunTest executes test and returns its result. Exceptions and timeouts
	// are recorded in the result, not returned as errors.
	RunTest(ctx context.Context, test m.TestCase) (*m.ExecutionResult, error)
}

// ExecutionObserver harvests runtime values while a test runs.
type ExecutionObserver interface {
	BeforeStatement(result *m.ExecutionResult, position int, stmt m.Statement)
	AfterStatement(result *m.ExecutionResult, position int, stmt m.Statement, value int64, exception string)
	TestFinished(result *m.ExecutionResult)
}

// RunnerOptions bounds a single test execution.
type RunnerOptions struct {
	Timeout time.Duration
	// MaxStatements stops a test with an exception once reached.
	MaxStatements int
}

// DefaultRunnerOptions returns a 30s timeout and a 1000 statement limit.
func DefaultRunnerOptions() RunnerOptions {
	return RunnerOptions{Timeout: 30 * time.Second, MaxStatements: 1000}
}

// LocalTestRunnerAdapter interprets tests against a described target. Every
// call is also replayed against the mutants of the called method to record
// touched, infected and killed mutants.
type LocalTestRunnerAdapter struct {
	target    m.Target
	opts      RunnerOptions
	mutants   map[string][]m.Mutation
	observers []ExecutionObserver
}

// NewLocalTestRunnerAdapter constructs a runner for target and mutations.
func NewLocalTestRunnerAdapter(target m.Target, mutations []m.Mutation, opts RunnerOptions, observers ...ExecutionObserver) *LocalTestRunnerAdapter {
	mutants := map[string][]m.Mutation{}
	for _, mu := range mutations {
		key := m.MethodKey(mu.Class, mu.Method)
		mutants[key] = append(mutants[key], mu)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRunnerOptions().Timeout
	}

	if opts.MaxStatements <= 0 {
		opts.MaxStatements = DefaultRunnerOptions().MaxStatements
	}

	return &LocalTestRunnerAdapter{target: target, opts: opts, mutants: mutants, observers: observers}
}

// AddObserver registers an execution observer.
func (a *LocalTestRunnerAdapter) AddObserver(o ExecutionObserver) {
	a.observers = append(a.observers, o)
}

// RunTest executes test statement by statement until the first exception.
func (a *LocalTestRunnerAdapter) RunTest(ctx context.Context, test m.TestCase) (*m.ExecutionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	start := time.Now()
	result := m.NewExecutionResult(test.Clone())

	if test.Class != a.target.Class {
		result.TestException = fmt.Errorf("test targets class %q, runner executes %q", test.Class, a.target.Class)
		return result, nil
	}

	for pos, stmt := range test.Statements {
		if ctx.Err() != nil {
			result.Timeout = true
			break
		}

		if pos >= a.opts.MaxStatements {
			result.Exceptions[pos] = ExceptionTooManyActions
			break
		}

		for _, o := range a.observers {
			o.BeforeStatement(result, pos, stmt)
		}

		value, exception := a.call(result.Trace, stmt)
		result.ExecutedStatements++

		for _, o := range a.observers {
			o.AfterStatement(result, pos, stmt, value, exception)
		}

		if exception != "" {
			result.Exceptions[pos] = exception
			break
		}

		result.ReturnValues[pos] = value
	}

	for _, o := range a.observers {
		o.TestFinished(result)
	}

	result.Duration = time.Since(start)

	return result, nil
}

func (a *LocalTestRunnerAdapter) call(trace *m.ExecutionTrace, stmt m.Statement) (int64, string) {
	method, ok := a.target.Method(stmt.Method)

	switch {
	case !ok:
		return 0, ExceptionNoSuchMethod
	case method.Private && !stmt.PrivateAccess:
		return 0, ExceptionIllegalAccess
	case len(stmt.Args) != len(method.Params):
		return 0, ExceptionIllegalArgs
	}

	env := make(map[string]int64, len(method.Params))
	for i, p := range method.Params {
		env[p.Name] = stmt.Args[i]
	}

	trace.MethodCalls[m.MethodKey(a.target.Class, method.Name)]++

	original := evaluate(method, env, trace, nil)

	for _, mu := range a.mutants[m.MethodKey(a.target.Class, method.Name)] {
		infection, touched := infectionDistance(method, env, original, mu)
		if !touched {
			continue
		}

		trace.TouchMutant(mu.ID, infection)

		mutated := evaluate(method, env, nil, &mu)
		if mutated.value != original.value || mutated.exception != original.exception {
			trace.KilledMutants[mu.ID] = true
		}
	}

	return original.value, original.exception
}

type evaluation struct {
	reached   map[int]bool
	outcome   map[int]bool
	returned  int
	value     int64
	exception string
}

// evaluate runs one call. trace is nil for mutant replays.
func evaluate(method m.MethodSpec, env map[string]int64, trace *m.ExecutionTrace, mutant *m.Mutation) evaluation {
	ev := evaluation{reached: map[int]bool{}, outcome: map[int]bool{}, returned: -1}

	predicates := slices.Clone(method.Predicates)
	slices.SortFunc(predicates, func(a, b m.PredicateSpec) int { return a.ID - b.ID })

	for _, p := range predicates {
		if p.Parent != 0 && (!ev.reached[p.Parent] || ev.outcome[p.Parent] != p.Branch) {
			continue
		}

		l, r := operand(env, p.Left), operand(env, p.Right)

		op := p.Op
		if mutant != nil && mutant.Operator == m.OperatorROR && mutant.Predicate == p.ID {
			op = mutant.Replacement
		}

		if trace != nil {
			t, f := BranchDistances(p.Op, l, r)
			trace.UpdateBranchDistances(p.ID, t, f)
		}

		ev.reached[p.ID] = true
		ev.outcome[p.ID] = compare(op, l, r)
	}

	expr := method.Default

	for i, ret := range method.Returns {
		if ev.reached[ret.Predicate] && ev.outcome[ret.Predicate] == ret.Branch {
			ev.returned = i
			expr = ret.Expr

			break
		}
	}

	e, err := m.ParseExpr(expr)
	if err != nil {
		ev.exception = ExceptionIllegalArgs
		return ev
	}

	if mutant != nil && mutant.Operator == m.OperatorAOR && mutant.Return == ev.returned && e.IsBinary() {
		e.Op = mutant.Replacement
	}

	ev.value, ev.exception = apply(e, env)

	return ev
}

// infectionDistance reports whether the mutant's site was reached by the
// original evaluation and how far the mutated state was from differing.
func infectionDistance(method m.MethodSpec, env map[string]int64, original evaluation, mu m.Mutation) (float64, bool) {
	switch mu.Operator {
	case m.OperatorROR:
		if !original.reached[mu.Predicate] {
			return 0, false
		}

		for _, p := range method.Predicates {
			if p.ID != mu.Predicate {
				continue
			}

			l, r := operand(env, p.Left), operand(env, p.Right)
			if compare(p.Op, l, r) != compare(mu.Replacement, l, r) {
				return 0, true
			}

			return math.Max(1, math.Abs(float64(l)-float64(r))), true
		}

		return 0, false
	case m.OperatorAOR:
		if original.returned != mu.Return {
			return 0, false
		}

		expr := method.Default
		if mu.Return >= 0 {
			expr = method.Returns[mu.Return].Expr
		}

		e, err := m.ParseExpr(expr)
		if err != nil || !e.IsBinary() {
			return 0, false
		}

		e.Op = mu.Replacement

		value, exception := apply(e, env)
		if value != original.value || exception != original.exception {
			return 0, true
		}

		return 1, true
	}

	return 0, false
}

// BranchDistances returns how far l op r was from evaluating to true and to
// false. The distance of the taken outcome is zero.
func BranchDistances(op string, l, r int64) (float64, float64) {
	x, y := float64(l), float64(r)

	switch op {
	case "==":
		return math.Abs(x - y), boolDistance(l == r)
	case "!=":
		return boolDistance(l == r), math.Abs(x - y)
	case "<":
		return positive(x - y + 1), positive(y - x)
	case "<=":
		return positive(x - y), positive(y - x + 1)
	case ">":
		return positive(y - x + 1), positive(x - y)
	case ">=":
		return positive(y - x), positive(x - y + 1)
	}

	return math.Inf(1), math.Inf(1)
}

func boolDistance(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

func positive(d float64) float64 {
	return math.Max(d, 0)
}

func compare(op string, l, r int64) bool {
	switch op {
	case "==":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}

	return false
}

func operand(env map[string]int64, o string) int64 {
	if v, ok := env[o]; ok {
		return v
	}

	v, _ := strconv.ParseInt(o, 10, 64)

	return v
}

func apply(e m.Expr, env map[string]int64) (int64, string) {
	l := operand(env, e.Left)
	if !e.IsBinary() {
		return l, ""
	}

	r := operand(env, e.Right)

	switch e.Op {
	case "+":
		return l + r, ""
	case "-":
		return l - r, ""
	case "*":
		return l * r, ""
	case "/":
		if r == 0 {
			return 0, ExceptionArithmetic
		}

		return l / r, ""
	case "%":
		if r == 0 {
			return 0, ExceptionArithmetic
		}

		return l % r, ""
	}

	return 0, ExceptionIllegalArgs
}

// CountingTestRunner counts executed tests and statements of another
// runner. It is safe for concurrent use.
type CountingTestRunner struct {
	inner      TestRunnerAdapter
	tests      atomic.Int64
	statements atomic.Int64
}

// NewCountingTestRunner wraps inner.
func NewCountingTestRunner(inner TestRunnerAdapter) *CountingTestRunner {
	return &CountingTestRunner{inner: inner}
}

// RunTest implements TestRunnerAdapter.
func (c *CountingTestRunner) RunTest(ctx context.Context, test m.TestCase) (*m.ExecutionResult, error) {
	result, err := c.inner.RunTest(ctx, test)
	if err != nil {
		return nil, err
	}

	c.tests.Add(1)
	c.statements.Add(int64(result.ExecutedStatements))

	return result, nil
}

// TestsExecuted returns the number of tests run so far.
func (c *CountingTestRunner) TestsExecuted() int64 { return c.tests.Load() }

// StatementsExecuted returns the number of statements run so far.
func (c *CountingTestRunner) StatementsExecuted() int64 { return c.statements.Load() }
