package model

import "time"

// ExecutionTrace holds what one test execution covered.
type ExecutionTrace struct {
	// MethodCalls counts calls per MethodKey.
	MethodCalls map[string]int
	// Predicates counts how often each predicate was evaluated.
	Predicates map[int]int
	// TrueDistances and FalseDistances keep the minimal branch distance
	// observed towards each outcome.
	TrueDistances  map[int]float64
	FalseDistances map[int]float64
	// TouchedMutants keeps the minimal infection distance per mutant.
	TouchedMutants map[int]float64
	KilledMutants  map[int]bool
	// InputGoals and OutputGoals are filled by execution observers.
	InputGoals  map[Goal]struct{}
	OutputGoals map[Goal]struct{}
}

// NewExecutionTrace returns an empty trace.
func NewExecutionTrace() *ExecutionTrace {
	return &ExecutionTrace{
		MethodCalls:    map[string]int{},
		Predicates:     map[int]int{},
		TrueDistances:  map[int]float64{},
		FalseDistances: map[int]float64{},
		TouchedMutants: map[int]float64{},
		KilledMutants:  map[int]bool{},
		InputGoals:     map[Goal]struct{}{},
		OutputGoals:    map[Goal]struct{}{},
	}
}

// UpdateBranchDistances records the distances of one predicate evaluation.
func (t *ExecutionTrace) UpdateBranchDistances(predicate int, trueDistance, falseDistance float64) {
	t.Predicates[predicate]++

	if current, ok := t.TrueDistances[predicate]; !ok || trueDistance < current {
		t.TrueDistances[predicate] = trueDistance
	}

	if current, ok := t.FalseDistances[predicate]; !ok || falseDistance < current {
		t.FalseDistances[predicate] = falseDistance
	}
}

// TouchMutant records the infection distance of a reached mutant.
func (t *ExecutionTrace) TouchMutant(id int, infection float64) {
	if current, ok := t.TouchedMutants[id]; !ok || infection < current {
		t.TouchedMutants[id] = infection
	}
}

// ExecutionResult is produced by one test execution.
type ExecutionResult struct {
	Test  TestCase
	Trace *ExecutionTrace
	// Exceptions maps statement positions to the type of the exception
	// thrown there.
	Exceptions map[int]string
	// ReturnValues holds the value returned by each statement that
	// completed normally.
	ReturnValues map[int]int64
	// TestException reports a failure of the test harness itself.
	TestException error
	Timeout       bool
	// ExecutedStatements counts statements run, including the one that threw.
	ExecutedStatements int
	Duration           time.Duration
}

// NewExecutionResult returns an empty result for test.
func NewExecutionResult(test TestCase) *ExecutionResult {
	return &ExecutionResult{
		Test:         test,
		Trace:        NewExecutionTrace(),
		Exceptions:   map[int]string{},
		ReturnValues: map[int]int64{},
	}
}

// FirstExceptionPosition returns the position of the first thrown exception
// or -1 if none.
func (r *ExecutionResult) FirstExceptionPosition() int {
	first := -1

	for pos := range r.Exceptions {
		if first == -1 || pos < first {
			first = pos
		}
	}

	return first
}

// IsDegenerate reports whether the execution cannot be scored.
func (r *ExecutionResult) IsDegenerate() bool {
	return r.Timeout || r.TestException != nil
}
