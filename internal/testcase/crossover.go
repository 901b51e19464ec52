package testcase

import (
	"math/rand"

	m "evogen.dev/pkg/evogen/internal/model"
)

// CoverageCrossover recombines suites by goal coverage: tests that are the
// only coverer of some goal go to both offspring, the remaining covering
// tests are split in half. Tests that cover nothing are dropped.
type CoverageCrossover struct{}

type coverers struct {
	tests []*TestChromosome
}

func (c *coverers) remove(t *TestChromosome) {
	for i, x := range c.tests {
		if x == t {
			c.tests = append(c.tests[:i], c.tests[i+1:]...)
			return
		}
	}
}

// CrossOver implements ga.Crossover.
func (CoverageCrossover) CrossOver(rng *rand.Rand, parent1, parent2 *SuiteChromosome) error {
	if parent1.Size() < 2 || parent2.Size() < 2 {
		return nil
	}

	all := append(append([]*TestChromosome{}, parent1.tests...), parent2.tests...)

	var goals []m.Goal

	byGoal := map[m.Goal]*coverers{}

	for _, t := range all {
		for _, g := range t.CoveredGoals() {
			c, ok := byGoal[g]
			if !ok {
				c = &coverers{}
				byGoal[g] = c
				goals = append(goals, g)
			}

			c.tests = append(c.tests, t)
		}
	}

	m.SortGoals(goals)

	if len(goals) == 0 {
		return nil
	}

	var working []*TestChromosome

	inWorking := map[*TestChromosome]bool{}

	for _, t := range all {
		if len(t.covered) > 0 && !inWorking[t] {
			inWorking[t] = true
			working = append(working, t)
		}
	}

	takeUnique := func() []*TestChromosome {
		var unique []*TestChromosome

		seen := map[*TestChromosome]bool{}
		remaining := goals[:0]

		for _, g := range goals {
			c := byGoal[g]
			if len(c.tests) > 1 {
				remaining = append(remaining, g)
				continue
			}

			delete(byGoal, g)

			if len(c.tests) == 1 && !seen[c.tests[0]] {
				seen[c.tests[0]] = true
				unique = append(unique, c.tests[0])
			}
		}

		goals = remaining

		for _, t := range unique {
			for _, g := range goals {
				byGoal[g].remove(t)
			}

			if inWorking[t] {
				inWorking[t] = false
				working = removeTest(working, t)
			}
		}

		return unique
	}

	unique := takeUnique()

	var offspring1, offspring2 []*TestChromosome

	target := len(working) / 2

	for len(offspring2) < target && len(working) > 0 {
		choice := working[rng.Intn(len(working))]
		working = removeTest(working, choice)
		inWorking[choice] = false
		offspring2 = append(offspring2, choice)

		for _, g := range goals {
			byGoal[g].remove(choice)
		}

		offspring1 = append(offspring1, takeUnique()...)
	}

	offspring1 = append(offspring1, working...)

	parent1.tests = cloneTests(append(append([]*TestChromosome{}, unique...), offspring1...))
	parent2.tests = cloneTests(append(append([]*TestChromosome{}, unique...), offspring2...))
	parent1.SetChanged(true)
	parent2.SetChanged(true)

	return nil
}

func removeTest(tests []*TestChromosome, t *TestChromosome) []*TestChromosome {
	for i, x := range tests {
		if x == t {
			return append(tests[:i], tests[i+1:]...)
		}
	}

	return tests
}

func cloneTests(tests []*TestChromosome) []*TestChromosome {
	cp := make([]*TestChromosome, 0, len(tests))
	for _, t := range tests {
		cp = append(cp, t.Clone())
	}

	return cp
}
