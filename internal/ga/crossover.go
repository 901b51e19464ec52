package ga

import (
	"fmt"
	"math"
	"math/rand"
)

// Crossover recombines two offspring in place. Both arguments are already
// copies of the selected parents.
type Crossover[T Chromosome[T]] interface {
	CrossOver(rng *rand.Rand, parent1, parent2 T) error
}

// CrossoverKind selects one of the generic crossovers.
type CrossoverKind string

// Generic crossovers. Coverage-aware crossover lives with the suite type.
const (
	CrossoverSinglePoint CrossoverKind = "single-point"
	CrossoverFixed       CrossoverKind = "fixed"
	CrossoverRelative    CrossoverKind = "relative"
	CrossoverUniform     CrossoverKind = "uniform"
)

// NewCrossover builds the generic crossover of the given kind. rate is only
// used by the uniform crossover as the per-gene exchange probability.
func NewCrossover[T Chromosome[T]](kind CrossoverKind, rate float64) (Crossover[T], error) {
	switch kind {
	case CrossoverSinglePoint, "":
		return SinglePointCrossover[T]{}, nil
	case CrossoverFixed:
		return FixedCrossover[T]{}, nil
	case CrossoverRelative:
		return RelativeCrossover[T]{}, nil
	case CrossoverUniform:
		return UniformCrossover[T]{Rate: rate}, nil
	}

	return nil, fmt.Errorf("unknown crossover %q", kind)
}

func tooShort[T Chromosome[T]](parent1, parent2 T) bool {
	return parent1.Size() < 2 || parent2.Size() < 2
}

// SinglePointCrossover cuts each parent at its own random point.
type SinglePointCrossover[T Chromosome[T]] struct{}

// CrossOver implements Crossover.
func (SinglePointCrossover[T]) CrossOver(rng *rand.Rand, parent1, parent2 T) error {
	if tooShort(parent1, parent2) {
		return nil
	}

	point1 := rng.Intn(parent1.Size()-1) + 1
	point2 := rng.Intn(parent2.Size()-1) + 1

	return exchange(parent1, parent2, point1, point2)
}

// FixedCrossover cuts both parents at the same point.
type FixedCrossover[T Chromosome[T]] struct{}

// CrossOver implements Crossover.
func (FixedCrossover[T]) CrossOver(rng *rand.Rand, parent1, parent2 T) error {
	if tooShort(parent1, parent2) {
		return nil
	}

	point := rng.Intn(min(parent1.Size(), parent2.Size())-1) + 1

	return exchange(parent1, parent2, point, point)
}

// RelativeCrossover cuts both parents at the same relative position, so no
// offspring is longer than the longer parent.
type RelativeCrossover[T Chromosome[T]] struct{}

// CrossOver implements Crossover.
func (RelativeCrossover[T]) CrossOver(rng *rand.Rand, parent1, parent2 T) error {
	if tooShort(parent1, parent2) {
		return nil
	}

	split := rng.Float64()
	point1 := int(math.Floor(float64(parent1.Size()-1)*split)) + 1
	point2 := int(math.Floor(float64(parent2.Size()-1)*split)) + 1

	return exchange(parent1, parent2, point1, point2)
}

// UniformCrossover exchanges single genes with probability Rate.
type UniformCrossover[T Chromosome[T]] struct {
	Rate float64
}

// CrossOver implements Crossover.
func (u UniformCrossover[T]) CrossOver(rng *rand.Rand, parent1, parent2 T) error {
	if tooShort(parent1, parent2) {
		return nil
	}

	genes := min(parent1.Size(), parent2.Size())
	t1 := parent1.Clone()
	t2 := parent2.Clone()

	for i := range genes {
		if rng.Float64() > u.Rate {
			continue
		}

		if err := parent1.ReplaceGene(t2, i); err != nil {
			return fmt.Errorf("replace gene %d: %w", i, err)
		}

		if err := parent2.ReplaceGene(t1, i); err != nil {
			return fmt.Errorf("replace gene %d: %w", i, err)
		}
	}

	return nil
}

func exchange[T Chromosome[T]](parent1, parent2 T, point1, point2 int) error {
	t1 := parent1.Clone()
	t2 := parent2.Clone()

	if err := parent1.CrossOver(t2, point1, point2); err != nil {
		return fmt.Errorf("crossover at %d/%d: %w", point1, point2, err)
	}

	if err := parent2.CrossOver(t1, point2, point1); err != nil {
		return fmt.Errorf("crossover at %d/%d: %w", point2, point1, err)
	}

	return nil
}
