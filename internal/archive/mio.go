package archive

import (
	"cmp"
	"log/slog"
	"math/rand"
	"slices"

	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/internal/testcase"
)

// DefaultCapacity is the number of candidates kept per uncovered goal.
const DefaultCapacity = 10

type candidate struct {
	test *testcase.TestChromosome
	h    float64
}

// pool holds the best partial solutions of one uncovered goal.
type pool struct {
	candidates []candidate
	// counter counts samples since the pool last improved.
	counter int
}

func (p *pool) add(test *testcase.TestChromosome, h float64, capacity int) bool {
	code := test.Code()
	for _, c := range p.candidates {
		if c.test.Code() == code {
			return false
		}
	}

	if len(p.candidates) >= capacity {
		worst := p.candidates[len(p.candidates)-1]
		if h < worst.h || (h == worst.h && test.Size() >= worst.test.Size()) {
			return false
		}

		p.candidates = p.candidates[:len(p.candidates)-1]
	}

	p.candidates = append(p.candidates, candidate{test: test.Clone(), h: h})
	p.sort()

	return true
}

func (p *pool) sort() {
	slices.SortStableFunc(p.candidates, func(a, b candidate) int {
		if c := cmp.Compare(b.h, a.h); c != 0 {
			return c
		}

		return cmp.Compare(a.test.Size(), b.test.Size())
	})
}

func (p *pool) truncate(capacity int) {
	if len(p.candidates) > capacity {
		p.candidates = p.candidates[:capacity]
	}
}

// MIOArchive keeps, for every uncovered goal, a bounded population of the
// tests closest to covering it. Sampling favors goals whose population has
// not improved for the fewest samples.
type MIOArchive struct {
	base

	capacity int
	pools    map[m.Goal]*pool
}

// NewMIOArchive returns an empty archive keeping capacity candidates per
// goal.
func NewMIOArchive(statements *testcase.StatementFactory, capacity int) *MIOArchive {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &MIOArchive{base: newBase(statements), capacity: capacity, pools: map[m.Goal]*pool{}}
}

// heuristic maps a fitness to [0, 1], 1 meaning covered.
func heuristic(fitness float64) float64 {
	return 1 - fitness/(fitness+1)
}

// UpdateArchive implements Archive. Non-covering solutions enter the goal's
// population; covering ones replace it.
func (a *MIOArchive) UpdateArchive(goal m.Goal, solution *testcase.TestChromosome, fitness float64) error {
	a.mu.Lock()

	if err := a.t.check(goal, fitness); err != nil {
		a.mu.Unlock()
		return err
	}

	current, covered := a.t.solutions[goal]

	if fitness > 0 {
		if !covered {
			p, ok := a.pools[goal]
			if !ok {
				p = &pool{}
				a.pools[goal] = p
			}

			if p.add(solution, heuristic(fitness), a.capacity) {
				p.counter = 0
			}
		}

		a.mu.Unlock()

		return nil
	}

	if !isBetter(current, solution) {
		a.mu.Unlock()
		return nil
	}

	delete(a.pools, goal)
	method, done := a.t.cover(goal, solution.Clone())
	listeners := a.t.listeners
	a.mu.Unlock()

	slog.Debug("Archive updated", "goal", goal.String(), "replaced", covered, "size", solution.Size())

	if done {
		notify(listeners, method)
	}

	return nil
}

// RandomSolution implements Archive. It samples the uncovered goal with the
// lowest sampling counter and falls back to covered solutions.
func (a *MIOArchive) RandomSolution(rng *rand.Rand) (*testcase.TestChromosome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var chosen *pool

	for _, g := range a.t.order {
		p, ok := a.pools[g]
		if !ok || len(p.candidates) == 0 {
			continue
		}

		if chosen == nil || p.counter < chosen.counter {
			chosen = p
		}
	}

	if chosen != nil {
		chosen.counter++
		return chosen.candidates[rng.Intn(len(chosen.candidates))].test.Clone(), true
	}

	tests := a.t.distinctSolutions()
	if len(tests) == 0 {
		return nil, false
	}

	return tests[rng.Intn(len(tests))].Clone(), true
}

// PoolSize returns the number of candidates kept for goal.
func (a *MIOArchive) PoolSize(goal m.Goal) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pools[goal]; ok {
		return len(p.candidates)
	}

	return 0
}

// SetCapacity changes the number of candidates kept per goal and drops the
// worst ones beyond it.
func (a *MIOArchive) SetCapacity(capacity int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.capacity = max(capacity, 1)
	for _, p := range a.pools {
		p.truncate(a.capacity)
	}
}

// ShrinkSolutions implements Archive for both solutions and candidates.
func (a *MIOArchive) ShrinkSolutions(size int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.t.shrink(size)

	for _, p := range a.pools {
		for _, c := range p.candidates {
			c.test.Truncate(size)
		}
	}
}

// Reset implements Archive.
func (a *MIOArchive) Reset() {
	a.base.Reset()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.pools = map[m.Goal]*pool{}
}
