package ga

import (
	"fmt"
	"math/rand"
)

// MutationDistribution decides which slots of an individual are mutated.
type MutationDistribution interface {
	ToMutate(index int) bool
}

// DistributionKind selects a MutationDistribution.
type DistributionKind string

// Supported distributions.
const (
	DistributionUniform  DistributionKind = "uniform"
	DistributionBinomial DistributionKind = "binomial"
)

// NewMutationDistribution builds the distribution of the given kind over n slots.
func NewMutationDistribution(kind DistributionKind, rng *rand.Rand, n int) (MutationDistribution, error) {
	switch kind {
	case DistributionUniform, "":
		return NewUniformMutation(rng, n), nil
	case DistributionBinomial:
		return NewBinomialMutation(rng, n), nil
	}

	return nil, fmt.Errorf("unknown mutation distribution %q", kind)
}

// UniformMutation mutates every slot independently with probability 1/n.
type UniformMutation struct {
	rng *rand.Rand
	n   int
}

// NewUniformMutation returns a uniform distribution over n slots.
func NewUniformMutation(rng *rand.Rand, n int) *UniformMutation {
	return &UniformMutation{rng: rng, n: n}
}

// ToMutate draws a fresh decision on every call.
func (u *UniformMutation) ToMutate(_ int) bool {
	if u.n <= 0 {
		return false
	}

	return u.rng.Float64() < 1.0/float64(u.n)
}

// BinomialMutation fixes the mutated slots at construction: the count is the
// number of successes in n Bernoulli trials with probability 1/n and the
// slots are drawn without replacement.
type BinomialMutation struct {
	indices map[int]struct{}
}

// NewBinomialMutation samples the mutated slots for n slots.
func NewBinomialMutation(rng *rand.Rand, n int) *BinomialMutation {
	indices := map[int]struct{}{}
	if n <= 0 {
		return &BinomialMutation{indices: indices}
	}

	p := 1.0 / float64(n)
	numBits := 0

	for range n {
		if rng.Float64() < p {
			numBits++
		}
	}

	for len(indices) < numBits {
		indices[rng.Intn(n)] = struct{}{}
	}

	return &BinomialMutation{indices: indices}
}

// ToMutate is a membership test on the sampled slots.
func (b *BinomialMutation) ToMutate(index int) bool {
	_, ok := b.indices[index]
	return ok
}

// Count returns the number of sampled slots.
func (b *BinomialMutation) Count() int {
	return len(b.indices)
}
