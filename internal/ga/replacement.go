package ga

// Replacement decides whether offspring replace their parents.
type Replacement[T Chromosome[T]] interface {
	KeepOffspring(parent1, parent2, offspring1, offspring2 T) bool
}

// FitnessReplacement keeps the offspring when the best of them is not worse
// than the best parent.
type FitnessReplacement[T Chromosome[T]] struct {
	Maximize bool
}

// KeepOffspring implements Replacement.
func (r FitnessReplacement[T]) KeepOffspring(parent1, parent2, offspring1, offspring2 T) bool {
	return notWorse(compareBest(parent1, parent2, offspring1, offspring2, r.Maximize), r.Maximize)
}

// LengthReplacement behaves like FitnessReplacement but on a fitness tie only
// keeps the offspring if it is not longer than the parent.
type LengthReplacement[T Chromosome[T]] struct {
	Maximize bool
}

// KeepOffspring implements Replacement.
func (r LengthReplacement[T]) KeepOffspring(parent1, parent2, offspring1, offspring2 T) bool {
	bestOffspring := best(offspring1, offspring2, r.Maximize)
	bestParent := best(parent1, parent2, r.Maximize)

	c := compareFitness(bestOffspring, bestParent)
	if c == 0 {
		return lengthOf(bestOffspring) <= lengthOf(bestParent)
	}

	return notWorse(c, r.Maximize)
}

func compareBest[T Chromosome[T]](parent1, parent2, offspring1, offspring2 T, maximize bool) int {
	return best(offspring1, offspring2, maximize).CompareTo(best(parent1, parent2, maximize))
}

func compareFitness[T Chromosome[T]](a, b T) int {
	fa, fb := a.Fitness(), b.Fitness()

	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}

	return 0
}

func notWorse(c int, maximize bool) bool {
	if maximize {
		return c >= 0
	}

	return c <= 0
}
