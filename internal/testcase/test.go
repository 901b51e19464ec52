package testcase

import (
	"cmp"
	"math"
	"math/rand"
	"strings"

	"evogen.dev/pkg/evogen/internal/ga"
	m "evogen.dev/pkg/evogen/internal/model"
)

// TestChromosome is a single test case under evolution.
type TestChromosome struct {
	ga.Evaluation

	test       m.TestCase
	statements *StatementFactory
	lastResult *m.ExecutionResult
	covered    map[m.Goal]struct{}
}

// NewTestChromosome wraps test. The chromosome owns test from now on.
func NewTestChromosome(test m.TestCase, statements *StatementFactory) *TestChromosome {
	return &TestChromosome{
		Evaluation: ga.NewEvaluation(),
		test:       test,
		statements: statements,
		covered:    map[m.Goal]struct{}{},
	}
}

// Test returns the wrapped test case. Callers must not modify it.
func (c *TestChromosome) Test() m.TestCase { return c.test }

// Size returns the number of statements.
func (c *TestChromosome) Size() int { return c.test.Size() }

// Penalty counts the restricted features the test relies on. Each feature
// counts once however often it is used.
func (c *TestChromosome) Penalty() int { return min(1, c.test.PrivateAccesses()) }

// Code renders the test.
func (c *TestChromosome) Code() string { return c.test.Code() }

// LastResult returns the cached execution result, nil when stale.
func (c *TestChromosome) LastResult() *m.ExecutionResult { return c.lastResult }

// SetLastResult caches the result of the latest execution.
func (c *TestChromosome) SetLastResult(result *m.ExecutionResult) { c.lastResult = result }

// SetChanged marks the fitness stale. A changed test also drops its cached
// result and covered goals.
func (c *TestChromosome) SetChanged(changed bool) {
	c.Evaluation.SetChanged(changed)

	if changed {
		c.lastResult = nil
		clear(c.covered)
	}
}

// AddCoveredGoal records that the test covers goal.
func (c *TestChromosome) AddCoveredGoal(goal m.Goal) {
	c.covered[goal] = struct{}{}
}

// IsCovering reports whether the test covers goal.
func (c *TestChromosome) IsCovering(goal m.Goal) bool {
	_, ok := c.covered[goal]
	return ok
}

// CoveredGoals returns the covered goals in natural order.
func (c *TestChromosome) CoveredGoals() []m.Goal {
	goals := make([]m.Goal, 0, len(c.covered))
	for g := range c.covered {
		goals = append(goals, g)
	}

	m.SortGoals(goals)

	return goals
}

// Clone deep-copies the statements and the fitness values. The cached
// result is shared since results are never modified.
func (c *TestChromosome) Clone() *TestChromosome {
	cp := &TestChromosome{
		Evaluation: c.Evaluation.Copy(),
		test:       c.test.Clone(),
		statements: c.statements,
		lastResult: c.lastResult,
		covered:    make(map[m.Goal]struct{}, len(c.covered)),
	}

	for g := range c.covered {
		cp.covered[g] = struct{}{}
	}

	return cp
}

// CrossOver keeps statements before position1 and appends copies of
// other's statements from position2 on.
func (c *TestChromosome) CrossOver(other *TestChromosome, position1, position2 int) error {
	statements := make([]m.Statement, 0, position1+other.Size()-position2)
	statements = append(statements, c.test.Statements[:position1]...)

	for _, s := range other.test.Statements[position2:] {
		statements = append(statements, s.Clone())
	}

	c.test.Statements = statements
	c.SetChanged(true)

	return nil
}

// ReplaceGene replaces statement index with a copy of other's.
func (c *TestChromosome) ReplaceGene(other *TestChromosome, index int) error {
	if index >= c.Size() || index >= other.Size() {
		return ga.ErrConstructionFailed
	}

	c.test.Statements[index] = other.test.Statements[index].Clone()
	c.SetChanged(true)

	return nil
}

// Mutate deletes, changes and inserts statements, each with probability
// 1/3. Statements after the first exception of the last execution are left
// alone.
func (c *TestChromosome) Mutate(rng *rand.Rand) error {
	last := c.lastMutatablePosition()
	changed := false

	if rng.Float64() < 1.0/3.0 {
		if deleted := c.mutateDelete(rng, last); deleted > 0 {
			changed = true
			last -= deleted
		}
	}

	if rng.Float64() < 1.0/3.0 && c.mutateChange(rng, last) {
		changed = true
	}

	if rng.Float64() < 1.0/3.0 {
		inserted, err := c.mutateInsert(rng, last)
		if err != nil {
			return err
		}

		changed = changed || inserted
	}

	if changed {
		c.SetChanged(true)
	}

	return nil
}

func (c *TestChromosome) lastMutatablePosition() int {
	if c.lastResult != nil {
		if pos := c.lastResult.FirstExceptionPosition(); pos >= 0 && pos < c.Size() {
			return pos
		}
	}

	return c.Size() - 1
}

func (c *TestChromosome) mutateDelete(rng *rand.Rand, last int) int {
	if last < 0 {
		return 0
	}

	p := 1.0 / float64(last+1)
	deleted := 0

	for i := last; i >= 0; i-- {
		if rng.Float64() <= p {
			c.test.Statements = append(c.test.Statements[:i], c.test.Statements[i+1:]...)
			deleted++
		}
	}

	return deleted
}

func (c *TestChromosome) mutateChange(rng *rand.Rand, last int) bool {
	if last < 0 {
		return false
	}

	p := 1.0 / float64(last+1)
	changed := false

	for i := 0; i <= last; i++ {
		if rng.Float64() <= p && c.statements.ChangeStatement(rng, &c.test.Statements[i]) {
			changed = true
		}
	}

	return changed
}

func (c *TestChromosome) mutateInsert(rng *rand.Rand, last int) (bool, error) {
	alpha := c.statements.opts.StatementInsertionProbability
	inserted := false

	for count := 0; rng.Float64() <= math.Pow(alpha, float64(count)) && c.Size() < c.statements.opts.MaxLength; count++ {
		stmt, err := c.statements.RandomStatement(rng)
		if err != nil {
			return inserted, err
		}

		pos := rng.Intn(max(last+1, 0) + 1)
		c.test.Statements = append(c.test.Statements[:pos], append([]m.Statement{stmt}, c.test.Statements[pos:]...)...)
		last++
		inserted = true
	}

	return inserted, nil
}

// CompareTo orders by fitness, then size, then code.
func (c *TestChromosome) CompareTo(other *TestChromosome) int {
	if r := cmp.Compare(c.Fitness(), other.Fitness()); r != 0 {
		return r
	}

	if r := cmp.Compare(c.Size(), other.Size()); r != 0 {
		return r
	}

	return strings.Compare(c.Code(), other.Code())
}

// Truncate drops statements beyond length.
func (c *TestChromosome) Truncate(length int) {
	if length < 0 || c.Size() <= length {
		return
	}

	c.test.Statements = c.test.Statements[:length]
	c.SetChanged(true)
}
