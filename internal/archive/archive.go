// Package archive keeps the best known test per coverage goal.
package archive

import (
	"errors"
	"fmt"
	"math/rand"

	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/internal/testcase"
)

var (
	// ErrUnknownTarget is returned when a goal was never registered.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrNegativeFitness is returned for fitness values below zero.
	ErrNegativeFitness = errors.New("negative fitness")
)

// Kind selects an archive implementation.
type Kind string

// Supported archives.
const (
	KindCoverage Kind = "coverage"
	KindMIO      Kind = "mio"
)

// Archive is an elitist store mapping every goal to its best covering test.
// Implementations are safe for concurrent use.
type Archive interface {
	// AddTarget registers goal as uncovered. Registering a goal twice is a
	// no-op.
	AddTarget(goal m.Goal)
	AddTargets(goals []m.Goal)
	// UpdateArchive offers solution for goal. A fitness of zero means the
	// solution covers the goal.
	UpdateArchive(goal m.Goal, solution *testcase.TestChromosome, fitness float64) error
	// IsBetterThanCurrent reports whether candidate should replace current.
	IsBetterThanCurrent(current, candidate *testcase.TestChromosome) bool

	NumberOfTargets() int
	NumberOfCoveredTargets() int
	NumberOfUncoveredTargets() int
	CoveredTargets() []m.Goal
	UncoveredTargets() []m.Goal
	// NumOfRemainingTargets counts the uncovered goals of a method key.
	NumOfRemainingTargets(method string) int
	IsMethodFullyCovered(method string) bool

	HasSolution(goal m.Goal) bool
	SolutionFor(goal m.Goal) (*testcase.TestChromosome, bool)
	// Solutions returns the distinct archived tests in goal order.
	Solutions() []*testcase.TestChromosome
	// Solution builds a suite of all archived tests.
	Solution() *testcase.SuiteChromosome
	// RandomSolution returns a copy of an archived test to evolve further.
	RandomSolution(rng *rand.Rand) (*testcase.TestChromosome, bool)
	// MergeArchiveAndSolution adds archived tests for every goal the suite
	// does not cover yet.
	MergeArchiveAndSolution(suite *testcase.SuiteChromosome) *testcase.SuiteChromosome
	// ShrinkSolutions truncates archived tests to at most size statements.
	ShrinkSolutions(size int)

	HasBeenUpdated() bool
	SetHasBeenUpdated(updated bool)
	// OnMethodCovered registers a callback run once a method has no
	// uncovered goals left.
	OnMethodCovered(fn func(method string))
	// SetCoverageCheck installs the check MergeArchiveAndSolution uses to
	// decide whether a test of the suite already covers a goal.
	SetCoverageCheck(check CoverageCheck)
	// Reset forgets every goal and solution.
	Reset()
}

// CoverageCheck reports whether test covers goal according to its last
// execution.
type CoverageCheck func(goal m.Goal, test *testcase.TestChromosome) bool

// New returns an archive of the given kind. statements builds the suites
// returned by Solution.
func New(kind Kind, statements *testcase.StatementFactory, capacity int) (Archive, error) {
	switch kind {
	case KindCoverage, "":
		return NewCoverageArchive(statements), nil
	case KindMIO:
		return NewMIOArchive(statements, capacity), nil
	}

	return nil, fmt.Errorf("unknown archive %q", kind)
}

// isBetter prefers fewer restricted features, then fewer statements.
func isBetter(current, candidate *testcase.TestChromosome) bool {
	if current == nil {
		return true
	}

	if p, q := candidate.Penalty(), current.Penalty(); p != q {
		return p < q
	}

	return candidate.Size() < current.Size()
}

// targets is the goal bookkeeping shared by the archive kinds. Callers hold
// the archive's lock.
type targets struct {
	order     []m.Goal
	known     map[m.Goal]struct{}
	solutions map[m.Goal]*testcase.TestChromosome
	// uncovered groups uncovered goals by method key. Empty groups are
	// dropped.
	uncovered map[string]map[m.Goal]struct{}
	listeners []func(string)
	updated   bool
}

func newTargets() targets {
	return targets{
		known:     map[m.Goal]struct{}{},
		solutions: map[m.Goal]*testcase.TestChromosome{},
		uncovered: map[string]map[m.Goal]struct{}{},
	}
}

func (t *targets) add(goal m.Goal) bool {
	if _, ok := t.known[goal]; ok {
		return false
	}

	t.known[goal] = struct{}{}
	t.order = append(t.order, goal)

	key := goal.MethodKey()
	if t.uncovered[key] == nil {
		t.uncovered[key] = map[m.Goal]struct{}{}
	}

	t.uncovered[key][goal] = struct{}{}

	return true
}

func (t *targets) check(goal m.Goal, fitness float64) error {
	if _, ok := t.known[goal]; !ok {
		return fmt.Errorf("goal %s: %w", goal, ErrUnknownTarget)
	}

	if fitness < 0 {
		return fmt.Errorf("goal %s fitness %v: %w", goal, fitness, ErrNegativeFitness)
	}

	return nil
}

// cover stores solution for goal and returns the method key if the method
// just became fully covered.
func (t *targets) cover(goal m.Goal, solution *testcase.TestChromosome) (string, bool) {
	t.solutions[goal] = solution
	t.updated = true

	key := goal.MethodKey()

	group, ok := t.uncovered[key]
	if !ok {
		return "", false
	}

	if _, ok := group[goal]; !ok {
		return "", false
	}

	delete(group, goal)

	if len(group) > 0 {
		return "", false
	}

	delete(t.uncovered, key)

	return key, true
}

func (t *targets) coveredTargets() []m.Goal {
	goals := make([]m.Goal, 0, len(t.solutions))
	for _, g := range t.order {
		if _, ok := t.solutions[g]; ok {
			goals = append(goals, g)
		}
	}

	return goals
}

func (t *targets) uncoveredTargets() []m.Goal {
	goals := make([]m.Goal, 0, len(t.order)-len(t.solutions))
	for _, g := range t.order {
		if _, ok := t.solutions[g]; !ok {
			goals = append(goals, g)
		}
	}

	return goals
}

func (t *targets) distinctSolutions() []*testcase.TestChromosome {
	seen := map[string]struct{}{}

	var tests []*testcase.TestChromosome

	for _, g := range t.order {
		s, ok := t.solutions[g]
		if !ok {
			continue
		}

		code := s.Code()
		if _, dup := seen[code]; dup {
			continue
		}

		seen[code] = struct{}{}
		tests = append(tests, s)
	}

	return tests
}

func (t *targets) merge(suite *testcase.SuiteChromosome, check CoverageCheck) *testcase.SuiteChromosome {
	merged := suite.Clone()

	for _, g := range t.order {
		s, ok := t.solutions[g]
		if !ok || suiteCovers(merged, g, check) {
			continue
		}

		test := s.Clone()
		test.AddCoveredGoal(g)
		merged.AddTest(test)
	}

	return merged
}

func (t *targets) shrink(size int) {
	for _, s := range t.solutions {
		s.Truncate(size)
	}
}

// suiteCovers trusts the covered flags first. Flags are no longer set for
// goals the fitness stopped scoring, so check consults the last execution.
func suiteCovers(suite *testcase.SuiteChromosome, goal m.Goal, check CoverageCheck) bool {
	for _, test := range suite.Tests() {
		if test.IsCovering(goal) {
			return true
		}

		if check != nil && check(goal, test) {
			test.AddCoveredGoal(goal)
			return true
		}
	}

	return false
}

func notify(listeners []func(string), method string) {
	for _, fn := range listeners {
		fn(method)
	}
}
