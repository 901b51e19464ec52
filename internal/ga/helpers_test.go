package ga

import (
	"cmp"
	"context"
	"math/rand"
	"slices"
)

// vector is a minimal chromosome: fitness is the sum of its genes.
type vector struct {
	Evaluation
	genes []int
}

func newVector(genes ...int) *vector {
	return &vector{Evaluation: NewEvaluation(), genes: slices.Clone(genes)}
}

func (v *vector) Size() int { return len(v.genes) }

func (v *vector) TotalLength() int {
	total := 0
	for _, g := range v.genes {
		total += max(g, 1)
	}

	return total
}

func (v *vector) Clone() *vector {
	return &vector{Evaluation: v.Evaluation.Copy(), genes: slices.Clone(v.genes)}
}

func (v *vector) CrossOver(other *vector, position1, position2 int) error {
	genes := slices.Clone(v.genes[:position1])
	v.genes = append(genes, other.genes[position2:]...)
	v.SetChanged(true)

	return nil
}

func (v *vector) ReplaceGene(other *vector, index int) error {
	v.genes[index] = other.genes[index]
	v.SetChanged(true)

	return nil
}

func (v *vector) Mutate(rng *rand.Rand) error {
	if len(v.genes) == 0 {
		return nil
	}

	i := rng.Intn(len(v.genes))
	if v.genes[i] > 0 {
		v.genes[i]--
		v.SetChanged(true)
	}

	return nil
}

func (v *vector) CompareTo(other *vector) int {
	if c := cmp.Compare(v.Fitness(), other.Fitness()); c != 0 {
		return c
	}

	return cmp.Compare(v.Size(), other.Size())
}

type sumFitness struct{}

func (sumFitness) Name() string { return "sum" }

func (sumFitness) Fitness(_ context.Context, v *vector) (float64, error) {
	total := 0
	for _, g := range v.genes {
		total += g
	}

	v.SetCoverage("sum", 1/(1+float64(total)))

	return float64(total), nil
}

func (sumFitness) UpdateCoveredGoals() bool { return false }
func (sumFitness) IsMaximization() bool     { return false }

type vectorFactory struct {
	size, maxGene int
}

func (f vectorFactory) Chromosome(_ context.Context, rng *rand.Rand) (*vector, error) {
	genes := make([]int, f.size)
	for i := range genes {
		genes[i] = rng.Intn(f.maxGene + 1)
	}

	return newVector(genes...), nil
}

func evaluated(fitness float64, genes ...int) *vector {
	v := newVector(genes...)
	v.SetFitness("sum", fitness)
	v.SetChanged(false)

	return v
}
