package testcase

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"

	"evogen.dev/pkg/evogen/internal/ga"
	m "evogen.dev/pkg/evogen/internal/model"
)

// SuiteChromosome is an ordered set of tests under evolution.
type SuiteChromosome struct {
	ga.Evaluation

	tests      []*TestChromosome
	statements *StatementFactory
}

// NewSuiteChromosome returns an empty suite.
func NewSuiteChromosome(statements *StatementFactory) *SuiteChromosome {
	return &SuiteChromosome{Evaluation: ga.NewEvaluation(), statements: statements}
}

// Tests returns the tests of the suite.
func (s *SuiteChromosome) Tests() []*TestChromosome { return s.tests }

// AddTest appends test and marks the suite changed.
func (s *SuiteChromosome) AddTest(test *TestChromosome) {
	s.tests = append(s.tests, test)
	s.SetChanged(true)
}

// AddTests appends tests.
func (s *SuiteChromosome) AddTests(tests ...*TestChromosome) {
	for _, t := range tests {
		s.AddTest(t)
	}
}

// ClearTests removes every test.
func (s *SuiteChromosome) ClearTests() {
	s.tests = nil
	s.SetChanged(true)
}

// Size returns the number of tests.
func (s *SuiteChromosome) Size() int { return len(s.tests) }

// TotalLength returns the number of statements over all tests.
func (s *SuiteChromosome) TotalLength() int {
	total := 0
	for _, t := range s.tests {
		total += t.Size()
	}

	return total
}

// TestCases returns copies of the wrapped test cases.
func (s *SuiteChromosome) TestCases() []m.TestCase {
	cases := make([]m.TestCase, 0, len(s.tests))
	for _, t := range s.tests {
		cases = append(cases, t.Test().Clone())
	}

	return cases
}

// CoveredGoals returns the union of the goals covered by the tests.
func (s *SuiteChromosome) CoveredGoals() []m.Goal {
	seen := map[m.Goal]struct{}{}

	var goals []m.Goal

	for _, t := range s.tests {
		for _, g := range t.CoveredGoals() {
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				goals = append(goals, g)
			}
		}
	}

	m.SortGoals(goals)

	return goals
}

// Clone deep-copies the suite and its tests.
func (s *SuiteChromosome) Clone() *SuiteChromosome {
	cp := &SuiteChromosome{
		Evaluation: s.Evaluation.Copy(),
		tests:      make([]*TestChromosome, 0, len(s.tests)),
		statements: s.statements,
	}

	for _, t := range s.tests {
		cp.tests = append(cp.tests, t.Clone())
	}

	return cp
}

// CrossOver keeps tests before position1 and appends copies of other's tests
// from position2 on.
func (s *SuiteChromosome) CrossOver(other *SuiteChromosome, position1, position2 int) error {
	if position1 > s.Size() || position2 > other.Size() {
		return fmt.Errorf("crossover points %d/%d out of range: %w", position1, position2, ga.ErrConstructionFailed)
	}

	tests := make([]*TestChromosome, 0, position1+other.Size()-position2)
	tests = append(tests, s.tests[:position1]...)

	for _, t := range other.tests[position2:] {
		tests = append(tests, t.Clone())
	}

	s.tests = tests
	s.SetChanged(true)

	return nil
}

// ReplaceGene replaces test index with a copy of other's.
func (s *SuiteChromosome) ReplaceGene(other *SuiteChromosome, index int) error {
	if index >= s.Size() || index >= other.Size() {
		return ga.ErrConstructionFailed
	}

	s.tests[index] = other.tests[index].Clone()
	s.SetChanged(true)

	return nil
}

// Mutate mutates the tests picked by the configured distribution, drops
// tests left empty and then inserts new random tests with geometrically
// decreasing probability.
func (s *SuiteChromosome) Mutate(rng *rand.Rand) error {
	opts := s.statements.opts

	dist, err := ga.NewMutationDistribution(opts.Distribution, rng, len(s.tests))
	if err != nil {
		return err
	}

	changed := false

	for i, t := range s.tests {
		if !dist.ToMutate(i) {
			continue
		}

		if err := t.Mutate(rng); err != nil {
			return err
		}

		if t.IsChanged() {
			changed = true
		}
	}

	kept := s.tests[:0]
	for _, t := range s.tests {
		if t.Size() > 0 {
			kept = append(kept, t)
		}
	}

	if len(kept) != len(s.tests) {
		changed = true
	}

	s.tests = kept

	alpha := opts.TestInsertionProbability
	for count := 1; rng.Float64() <= math.Pow(alpha, float64(count)) && s.Size() < opts.MaxTests; count++ {
		test, err := s.statements.RandomTest(rng)
		if err != nil {
			return err
		}

		s.tests = append(s.tests, NewTestChromosome(test, s.statements))
		changed = true
	}

	if changed {
		s.SetChanged(true)
	}

	return nil
}

// CompareTo orders by fitness, then total length.
func (s *SuiteChromosome) CompareTo(other *SuiteChromosome) int {
	if r := cmp.Compare(s.Fitness(), other.Fitness()); r != 0 {
		return r
	}

	return cmp.Compare(s.TotalLength(), other.TotalLength())
}
