package archive

import (
	"sync"

	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/internal/testcase"
)

// base implements the read side of Archive shared by every kind.
type base struct {
	mu         sync.Mutex
	t          targets
	statements *testcase.StatementFactory
	check      CoverageCheck
}

func newBase(statements *testcase.StatementFactory) base {
	return base{t: newTargets(), statements: statements}
}

// AddTarget implements Archive.
func (a *base) AddTarget(goal m.Goal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.t.add(goal)
}

// AddTargets implements Archive.
func (a *base) AddTargets(goals []m.Goal) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, g := range goals {
		a.t.add(g)
	}
}

// IsBetterThanCurrent implements Archive.
func (a *base) IsBetterThanCurrent(current, candidate *testcase.TestChromosome) bool {
	return isBetter(current, candidate)
}

// NumberOfTargets implements Archive.
func (a *base) NumberOfTargets() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.t.order)
}

// NumberOfCoveredTargets implements Archive.
func (a *base) NumberOfCoveredTargets() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.t.solutions)
}

// NumberOfUncoveredTargets implements Archive.
func (a *base) NumberOfUncoveredTargets() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.t.order) - len(a.t.solutions)
}

// CoveredTargets implements Archive.
func (a *base) CoveredTargets() []m.Goal {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.t.coveredTargets()
}

// UncoveredTargets implements Archive.
func (a *base) UncoveredTargets() []m.Goal {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.t.uncoveredTargets()
}

// NumOfRemainingTargets implements Archive.
func (a *base) NumOfRemainingTargets(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.t.uncovered[method])
}

// IsMethodFullyCovered implements Archive.
func (a *base) IsMethodFullyCovered(method string) bool {
	return a.NumOfRemainingTargets(method) == 0
}

// HasSolution implements Archive.
func (a *base) HasSolution(goal m.Goal) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.t.solutions[goal]

	return ok
}

// SolutionFor implements Archive.
func (a *base) SolutionFor(goal m.Goal) (*testcase.TestChromosome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.t.solutions[goal]

	return s, ok
}

// Solutions implements Archive.
func (a *base) Solutions() []*testcase.TestChromosome {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.t.distinctSolutions()
}

// Solution implements Archive.
func (a *base) Solution() *testcase.SuiteChromosome {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.t.merge(testcase.NewSuiteChromosome(a.statements), a.check)
}

// MergeArchiveAndSolution implements Archive.
func (a *base) MergeArchiveAndSolution(suite *testcase.SuiteChromosome) *testcase.SuiteChromosome {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.t.merge(suite, a.check)
}

// ShrinkSolutions implements Archive.
func (a *base) ShrinkSolutions(size int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.t.shrink(size)
}

// HasBeenUpdated implements Archive.
func (a *base) HasBeenUpdated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.t.updated
}

// SetHasBeenUpdated implements Archive.
func (a *base) SetHasBeenUpdated(updated bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.t.updated = updated
}

// OnMethodCovered implements Archive.
func (a *base) OnMethodCovered(fn func(method string)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.t.listeners = append(a.t.listeners, fn)
}

// SetCoverageCheck implements Archive.
func (a *base) SetCoverageCheck(check CoverageCheck) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.check = check
}

// Reset implements Archive.
func (a *base) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	listeners := a.t.listeners
	a.t = newTargets()
	a.t.listeners = listeners
}
