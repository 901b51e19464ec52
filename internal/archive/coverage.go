package archive

import (
	"log/slog"
	"math/rand"

	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/internal/testcase"
)

// CoverageArchive keeps one solution per goal.
type CoverageArchive struct {
	base
}

// NewCoverageArchive returns an empty archive.
func NewCoverageArchive(statements *testcase.StatementFactory) *CoverageArchive {
	return &CoverageArchive{base: newBase(statements)}
}

// UpdateArchive implements Archive. Only covering solutions are kept.
func (a *CoverageArchive) UpdateArchive(goal m.Goal, solution *testcase.TestChromosome, fitness float64) error {
	a.mu.Lock()

	if err := a.t.check(goal, fitness); err != nil {
		a.mu.Unlock()
		return err
	}

	if fitness > 0 || !isBetter(a.t.solutions[goal], solution) {
		a.mu.Unlock()
		return nil
	}

	_, replaced := a.t.solutions[goal]
	method, done := a.t.cover(goal, solution.Clone())
	listeners := a.t.listeners
	a.mu.Unlock()

	slog.Debug("Archive updated", "goal", goal.String(), "replaced", replaced, "size", solution.Size())

	if done {
		notify(listeners, method)
	}

	return nil
}

// RandomSolution implements Archive.
func (a *CoverageArchive) RandomSolution(rng *rand.Rand) (*testcase.TestChromosome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tests := a.t.distinctSolutions()
	if len(tests) == 0 {
		return nil, false
	}

	return tests[rng.Intn(len(tests))].Clone(), true
}
