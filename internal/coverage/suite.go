package coverage

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"evogen.dev/pkg/evogen/internal/adapter"
	"evogen.dev/pkg/evogen/internal/archive"
	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/internal/testcase"
)

// DefaultParallelism bounds concurrent test executions of one suite.
const DefaultParallelism = 4

// SuiteFitness scores test suites against the goals of one criterion. Lower
// is better; zero means every goal is covered.
type SuiteFitness struct {
	mu sync.Mutex

	criterion   Criterion
	goals       []m.Goal
	tracked     []m.Goal
	removed     map[m.Goal]struct{}
	toRemove    map[m.Goal]struct{}
	evaluator   *Evaluator
	runner      adapter.TestRunnerAdapter
	archive     archive.Archive
	parallelism int
}

// NewSuiteFitness returns the suite fitness of the goals of factory. With a
// non-nil archive every goal is registered there, the archive merges against
// the evaluator's view of coverage, and covered goals stop being scored once
// UpdateCoveredGoals runs.
func NewSuiteFitness(factory GoalFactory, evaluator *Evaluator, runner adapter.TestRunnerAdapter, arch archive.Archive, parallelism int) *SuiteFitness {
	goals := factory.Goals()

	if arch != nil {
		arch.AddTargets(goals)
		arch.SetCoverageCheck(evaluator.Covers)
	}

	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	tracked := make([]m.Goal, len(goals))
	copy(tracked, goals)

	return &SuiteFitness{
		criterion:   factory.Criterion(),
		goals:       goals,
		tracked:     tracked,
		removed:     map[m.Goal]struct{}{},
		toRemove:    map[m.Goal]struct{}{},
		evaluator:   evaluator,
		runner:      runner,
		archive:     arch,
		parallelism: parallelism,
	}
}

// Name returns the criterion name.
func (f *SuiteFitness) Name() string { return string(f.criterion) }

// Criterion returns the scored criterion.
func (f *SuiteFitness) Criterion() Criterion { return f.criterion }

// IsMaximization is always false.
func (f *SuiteFitness) IsMaximization() bool { return false }

// Goals returns every goal of the criterion.
func (f *SuiteFitness) Goals() []m.Goal { return f.goals }

// TotalGoals returns the number of goals of the criterion.
func (f *SuiteFitness) TotalGoals() int { return len(f.goals) }

// TrackedGoals returns the goals still scored.
func (f *SuiteFitness) TrackedGoals() []m.Goal {
	f.mu.Lock()
	defer f.mu.Unlock()

	tracked := make([]m.Goal, len(f.tracked))
	copy(tracked, f.tracked)

	return tracked
}

// Execute runs every changed test of suite and returns the results in test
// order. Unchanged tests reuse their last result.
func (f *SuiteFitness) Execute(ctx context.Context, suite *testcase.SuiteChromosome) ([]*m.ExecutionResult, error) {
	tests := suite.Tests()
	results := make([]*m.ExecutionResult, len(tests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)

	for i, test := range tests {
		if last := test.LastResult(); last != nil && !test.IsChanged() {
			results[i] = last
			continue
		}

		g.Go(func() error {
			result, err := f.runner.RunTest(ctx, test.Test())
			if err != nil {
				return fmt.Errorf("failed to run test %d: %w", i, err)
			}

			test.SetLastResult(result)
			test.SetChanged(false)
			results[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Failed to execute suite", "error", err)
		return nil, err
	}

	return results, nil
}

// Fitness executes suite and sums, over the tracked goals, the best capped
// distance any of its tests achieved. It records coverage and the number of
// covered goals on suite and offers every evaluation to the archive.
func (f *SuiteFitness) Fitness(ctx context.Context, suite *testcase.SuiteChromosome) (float64, error) {
	results, err := f.Execute(ctx, suite)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	total := len(f.goals)
	name := f.Name()

	for _, result := range results {
		if result.IsDegenerate() {
			slog.Debug("Degenerate suite", "criterion", name, "timeout", result.Timeout, "error", result.TestException)

			cov := 0.0
			if total == 0 {
				cov = 1
			}

			suite.SetCoverage(name, cov)
			suite.SetNumOfCoveredGoals(name, 0)

			return float64(total), nil
		}
	}

	fitness := 0.0
	covered := len(f.removed)
	tests := suite.Tests()

	for _, goal := range f.tracked {
		best := math.Inf(1)

		for i, test := range tests {
			d, err := f.evaluator.Distance(goal, results[i])
			if err != nil {
				return 0, fmt.Errorf("failed to score %s: %w", goal, err)
			}

			if d == 0 {
				test.AddCoveredGoal(goal)
			}

			if f.archive != nil {
				if err := f.archive.UpdateArchive(goal, test, d); err != nil {
					slog.Error("Failed to update archive", "goal", goal.String(), "error", err)
					return 0, fmt.Errorf("failed to update archive: %w", err)
				}
			}

			best = math.Min(best, math.Min(1, d))
		}

		if len(tests) == 0 {
			best = 1
		}

		if best == 0 {
			covered++
			f.toRemove[goal] = struct{}{}
		}

		fitness += best
	}

	cov := 1.0
	if total > 0 {
		cov = float64(covered) / float64(total)
	}

	suite.SetCoverage(name, cov)
	suite.SetNumOfCoveredGoals(name, covered)

	if err := checkInvariants(total, covered, fitness, cov); err != nil {
		return 0, err
	}

	return fitness, nil
}

// checkInvariants validates a non-degenerate evaluation. Goals no longer
// tracked count as covered.
func checkInvariants(total, covered int, fitness, cov float64) error {
	switch {
	case covered > total:
		return fmt.Errorf("%d covered of %d goals: %w", covered, total, ErrInvariant)
	case fitness < 0 || math.IsNaN(fitness):
		return fmt.Errorf("fitness %v: %w", fitness, ErrInvariant)
	case cov < 0 || cov > 1:
		return fmt.Errorf("coverage %v: %w", cov, ErrInvariant)
	case covered == total && fitness != 0:
		return fmt.Errorf("all %d goals covered with fitness %v: %w", total, fitness, ErrInvariant)
	case fitness == 0 && covered != total:
		return fmt.Errorf("fitness 0 with %d of %d goals covered: %w", covered, total, ErrInvariant)
	}

	return nil
}

// UpdateCoveredGoals stops scoring the goals covered since the last call.
// Without an archive goals are never removed and it returns false.
func (f *SuiteFitness) UpdateCoveredGoals() bool {
	if f.archive == nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.toRemove) == 0 {
		return false
	}

	kept := f.tracked[:0]

	for _, goal := range f.tracked {
		if _, ok := f.toRemove[goal]; ok {
			f.removed[goal] = struct{}{}
			continue
		}

		kept = append(kept, goal)
	}

	f.tracked = kept
	f.toRemove = map[m.Goal]struct{}{}

	return true
}
