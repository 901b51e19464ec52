package coverage

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"evogen.dev/pkg/evogen/internal/archive"
	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/internal/testcase"
)

// Diameter is the constant added to the distance of an untouched mutant.
const Diameter = 1.0

// ErrUnknownGoal is returned for goals that reference nothing registered.
var ErrUnknownGoal = errors.New("unknown goal")

// Evaluator computes the distance of an execution to a goal.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator returns an evaluator over registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Covers reports whether the last execution of test covers goal. Tests
// without a usable result cover nothing.
func (e *Evaluator) Covers(goal m.Goal, test *testcase.TestChromosome) bool {
	result := test.LastResult()
	if result == nil || result.IsDegenerate() {
		return false
	}

	d, err := e.Distance(goal, result)

	return err == nil && d == 0
}

// Distance returns the distance in [0, +Inf) of result to goal. Zero means
// the goal is covered.
func (e *Evaluator) Distance(goal m.Goal, result *m.ExecutionResult) (float64, error) {
	trace := result.Trace

	switch goal.Kind {
	case m.GoalBranch:
		d, err := e.ControlFlowDistance(goal.Predicate, goal.Value, trace)
		if err != nil {
			return 0, err
		}

		return d.ResultingBranchFitness(), nil
	case m.GoalMethod:
		return called(trace, goal.Class, goal.Method), nil
	case m.GoalWeakMutation:
		mu, ok := e.registry.Mutation(goal.MutationID)
		if !ok {
			return 0, fmt.Errorf("%s: %w", goal, ErrUnknownGoal)
		}

		return e.weakMutationDistance(mu, trace)
	case m.GoalStrongMutation:
		mu, ok := e.registry.Mutation(goal.MutationID)
		if !ok {
			return 0, fmt.Errorf("%s: %w", goal, ErrUnknownGoal)
		}

		return e.strongMutationDistance(mu, trace)
	case m.GoalInput:
		return observed(trace.InputGoals, goal), nil
	case m.GoalOutput:
		return observed(trace.OutputGoals, goal), nil
	}

	return 0, fmt.Errorf("%s: %w", goal, ErrUnknownGoal)
}

// ControlFlowDistance returns how far trace was from predicate taking value.
// Unreached predicates climb the parent chain, adding one approach level per
// missed dependency; when no ancestor was reached the method was never called
// and the branch distance is infinite.
func (e *Evaluator) ControlFlowDistance(predicate int, value bool, trace *m.ExecutionTrace) (ControlFlowDistance, error) {
	target, ok := e.registry.Branch(predicate)
	if !ok {
		return ControlFlowDistance{}, fmt.Errorf("predicate %d: %w", predicate, ErrUnknownGoal)
	}

	if trace.Predicates[predicate] > 0 {
		return NewControlFlowDistance(0, outcomeDistance(trace, predicate, value))
	}

	d := ControlFlowDistance{approachLevel: 1}
	current := target

	for current.Parent != 0 {
		parent, ok := e.registry.Branch(current.Parent)
		if !ok {
			return ControlFlowDistance{}, fmt.Errorf("predicate %d: %w", current.Parent, ErrUnknownGoal)
		}

		if trace.Predicates[parent.ID] > 0 {
			if err := d.SetBranchDistance(outcomeDistance(trace, parent.ID, current.Branch)); err != nil {
				return ControlFlowDistance{}, err
			}

			return d, nil
		}

		if err := d.IncreaseApproachLevel(); err != nil {
			return ControlFlowDistance{}, err
		}

		current = parent
	}

	return NewControlFlowDistance(target.Depth, math.Inf(1))
}

func outcomeDistance(trace *m.ExecutionTrace, predicate int, value bool) float64 {
	if value {
		return trace.TrueDistances[predicate]
	}

	return trace.FalseDistances[predicate]
}

func (e *Evaluator) weakMutationDistance(mu m.Mutation, trace *m.ExecutionTrace) (float64, error) {
	if infection, ok := trace.TouchedMutants[mu.ID]; ok {
		if infection < 0 {
			slog.Warn("Negative infection distance", "mutant", mu.ID, "distance", infection)
			infection = 0
		}

		return Normalize(infection), nil
	}

	site, err := e.siteDistance(mu, trace)
	if err != nil {
		return 0, err
	}

	return site + Diameter, nil
}

func (e *Evaluator) strongMutationDistance(mu m.Mutation, trace *m.ExecutionTrace) (float64, error) {
	if trace.KilledMutants[mu.ID] {
		return 0, nil
	}

	if _, ok := trace.TouchedMutants[mu.ID]; ok {
		weak, err := e.weakMutationDistance(mu, trace)
		if err != nil {
			return 0, err
		}

		return 0.5 + weak/2, nil
	}

	weak, err := e.weakMutationDistance(mu, trace)
	if err != nil {
		return 0, err
	}

	return weak + 1, nil
}

// siteDistance is the control-flow distance to the mutated location.
func (e *Evaluator) siteDistance(mu m.Mutation, trace *m.ExecutionTrace) (float64, error) {
	switch mu.Operator {
	case m.OperatorROR:
		b, ok := e.registry.Branch(mu.Predicate)
		if !ok {
			return 0, fmt.Errorf("predicate %d: %w", mu.Predicate, ErrUnknownGoal)
		}

		if trace.Predicates[b.ID] > 0 {
			return 0, nil
		}

		if b.Parent == 0 {
			return called(trace, mu.Class, mu.Method), nil
		}

		d, err := e.ControlFlowDistance(b.Parent, b.Branch, trace)
		if err != nil {
			return 0, err
		}

		return d.ResultingBranchFitness(), nil
	case m.OperatorAOR:
		if mu.Return < 0 {
			return called(trace, mu.Class, mu.Method), nil
		}

		method, ok := e.registry.Target().Method(mu.Method)
		if !ok || mu.Return >= len(method.Returns) {
			return 0, fmt.Errorf("%s: %w", mu, ErrUnknownGoal)
		}

		guard := method.Returns[mu.Return]

		d, err := e.ControlFlowDistance(guard.Predicate, guard.Branch, trace)
		if err != nil {
			return 0, err
		}

		return d.ResultingBranchFitness(), nil
	}

	return 0, fmt.Errorf("%s: %w", mu, ErrUnknownGoal)
}

func called(trace *m.ExecutionTrace, class, method string) float64 {
	if trace.MethodCalls[m.MethodKey(class, method)] > 0 {
		return 0
	}

	return 1
}

func observed(goals map[m.Goal]struct{}, goal m.Goal) float64 {
	if _, ok := goals[goal]; ok {
		return 0
	}

	return 1
}

// TestFitness is the fitness of single tests for one goal.
type TestFitness struct {
	goal      m.Goal
	evaluator *Evaluator
	archive   archive.Archive
}

// NewTestFitness returns the test fitness of goal. A nil archive disables
// archiving.
func NewTestFitness(goal m.Goal, evaluator *Evaluator, arch archive.Archive) *TestFitness {
	return &TestFitness{goal: goal, evaluator: evaluator, archive: arch}
}

// Goal returns the scored goal.
func (f *TestFitness) Goal() m.Goal { return f.goal }

// Fitness scores test against result. On zero distance the goal is marked
// covered on the test and pushed into the archive.
func (f *TestFitness) Fitness(test *testcase.TestChromosome, result *m.ExecutionResult) (float64, error) {
	d, err := f.evaluator.Distance(f.goal, result)
	if err != nil {
		return 0, err
	}

	if d == 0 {
		test.AddCoveredGoal(f.goal)
	}

	if f.archive != nil {
		if err := f.archive.UpdateArchive(f.goal, test, d); err != nil {
			return 0, fmt.Errorf("failed to update archive: %w", err)
		}
	}

	return d, nil
}
