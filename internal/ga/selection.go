package ga

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
)

var (
	errNoRandom        = errors.New("random source is required")
	errEmptyPopulation = errors.New("population is empty")
)

const (
	defaultRankBias       = 1.7
	defaultTournamentSize = 10
)

// Selection picks a parent from the population and returns its index.
type Selection[T Chromosome[T]] interface {
	Select(rng *rand.Rand, population []T) (int, error)
}

// SelectionKind selects a Selection.
type SelectionKind string

// Supported selections.
const (
	SelectionRank       SelectionKind = "rank"
	SelectionTournament SelectionKind = "tournament"
	SelectionRoulette   SelectionKind = "roulette"
	SelectionCrowding   SelectionKind = "binary-tournament-crowding"
)

// NewSelection builds the selection of the given kind.
func NewSelection[T Chromosome[T]](kind SelectionKind, maximize bool) (Selection[T], error) {
	switch kind {
	case SelectionRank, "":
		return &RankSelection[T]{Bias: defaultRankBias}, nil
	case SelectionTournament:
		return &TournamentSelection[T]{Size: defaultTournamentSize, Maximize: maximize}, nil
	case SelectionRoulette:
		return &RouletteSelection[T]{Maximize: maximize}, nil
	case SelectionCrowding:
		return &BinaryTournamentCrowding[T]{}, nil
	}

	return nil, fmt.Errorf("unknown selection %q", kind)
}

// SelectN picks n parents.
func SelectN[T Chromosome[T]](sel Selection[T], rng *rand.Rand, population []T, n int) ([]T, error) {
	selected := make([]T, 0, n)

	for range n {
		idx, err := sel.Select(rng, population)
		if err != nil {
			return nil, err
		}

		selected = append(selected, population[idx])
	}

	return selected, nil
}

func checkSelectionInput(rng *rand.Rand, size int) error {
	if rng == nil {
		return errNoRandom
	}

	if size == 0 {
		return errEmptyPopulation
	}

	return nil
}

// RankSelection favors the front of a population sorted best first. The
// orientation is already applied by SortPopulation.
type RankSelection[T Chromosome[T]] struct {
	Bias float64
}

// Select implements Selection.
func (r *RankSelection[T]) Select(rng *rand.Rand, population []T) (int, error) {
	if err := checkSelectionInput(rng, len(population)); err != nil {
		return 0, err
	}

	bias := r.Bias
	if bias <= 1 {
		bias = defaultRankBias
	}

	u := rng.Float64()
	d := bias - math.Sqrt(bias*bias-4.0*(bias-1.0)*u)
	d = d / 2.0 / (bias - 1.0)

	idx := int(d * float64(len(population)))

	return min(max(idx, 0), len(population)-1), nil
}

// TournamentSelection returns the best of Size random picks.
type TournamentSelection[T Chromosome[T]] struct {
	Size     int
	Maximize bool
}

// Select implements Selection.
func (t *TournamentSelection[T]) Select(rng *rand.Rand, population []T) (int, error) {
	if err := checkSelectionInput(rng, len(population)); err != nil {
		return 0, err
	}

	rounds := max(t.Size, 1)
	winner := rng.Intn(len(population))

	for i := 1; i < rounds; i++ {
		candidate := rng.Intn(len(population))
		if isBetter(population[candidate].Fitness(), population[winner].Fitness(), t.Maximize) {
			winner = candidate
		}
	}

	return winner, nil
}

// RouletteSelection picks proportionally to fitness, or to 1/(1+fitness)
// when minimizing.
type RouletteSelection[T Chromosome[T]] struct {
	Maximize bool
}

// Select implements Selection.
func (r *RouletteSelection[T]) Select(rng *rand.Rand, population []T) (int, error) {
	if err := checkSelectionInput(rng, len(population)); err != nil {
		return 0, err
	}

	weights := make([]float64, len(population))
	sum := 0.0

	for i, c := range population {
		f := c.Fitness()
		if r.Maximize {
			weights[i] = math.Max(f, 0)
		} else {
			weights[i] = 1.0 / (1.0 + math.Max(f, 0))
		}

		sum += weights[i]
	}

	if sum == 0 {
		return rng.Intn(len(population)), nil
	}

	target := rng.Float64() * sum
	for i, w := range weights {
		target -= w
		if target < 0 {
			return i, nil
		}
	}

	return len(population) - 1, nil
}

// BinaryTournamentCrowding compares two random picks by rank, then by
// crowding distance, then at random.
type BinaryTournamentCrowding[T Chromosome[T]] struct{}

// Select implements Selection.
func (BinaryTournamentCrowding[T]) Select(rng *rand.Rand, population []T) (int, error) {
	if err := checkSelectionInput(rng, len(population)); err != nil {
		return 0, err
	}

	i := rng.Intn(len(population))
	j := rng.Intn(len(population))
	a, b := population[i], population[j]

	switch {
	case a.Rank() < b.Rank():
		return i, nil
	case b.Rank() < a.Rank():
		return j, nil
	case a.Distance() > b.Distance():
		return i, nil
	case b.Distance() > a.Distance():
		return j, nil
	}

	if rng.Float64() < 0.5 {
		return i, nil
	}

	return j, nil
}

// dominates reports whether a is no worse on every objective and strictly
// better on one.
func dominates[T Chromosome[T]](a, b T, objectives []string, maximize bool) bool {
	strictly := false

	for _, o := range objectives {
		fa, fb := a.FitnessFor(o), b.FitnessFor(o)
		if isBetter(fb, fa, maximize) {
			return false
		}

		if isBetter(fa, fb, maximize) {
			strictly = true
		}
	}

	return strictly
}

// AssignRanks sets every chromosome's rank to its non-domination front.
func AssignRanks[T Chromosome[T]](population []T, objectives []string, maximize bool) {
	remaining := make([]int, len(population))
	for i := range remaining {
		remaining[i] = i
	}

	for front := 0; len(remaining) > 0; front++ {
		var current, rest []int

		for _, i := range remaining {
			dominated := false

			for _, j := range remaining {
				if i != j && dominates(population[j], population[i], objectives, maximize) {
					dominated = true
					break
				}
			}

			if dominated {
				rest = append(rest, i)
			} else {
				current = append(current, i)
			}
		}

		for _, i := range current {
			population[i].SetRank(front)
		}

		remaining = rest
	}
}

// AssignCrowdingDistance sets the crowding distance within each front.
// Boundary individuals get an infinite distance.
func AssignCrowdingDistance[T Chromosome[T]](population []T, objectives []string) {
	fronts := map[int][]int{}
	for i, c := range population {
		c.SetDistance(0)
		fronts[c.Rank()] = append(fronts[c.Rank()], i)
	}

	for _, members := range fronts {
		if len(members) < 3 {
			for _, i := range members {
				population[i].SetDistance(math.Inf(1))
			}

			continue
		}

		for _, o := range objectives {
			sorted := slices.Clone(members)
			slices.SortFunc(sorted, func(a, b int) int {
				fa, fb := population[a].FitnessFor(o), population[b].FitnessFor(o)
				switch {
				case fa < fb:
					return -1
				case fa > fb:
					return 1
				}

				return 0
			})

			lo := population[sorted[0]].FitnessFor(o)
			hi := population[sorted[len(sorted)-1]].FitnessFor(o)

			population[sorted[0]].SetDistance(math.Inf(1))
			population[sorted[len(sorted)-1]].SetDistance(math.Inf(1))

			if hi == lo {
				continue
			}

			for k := 1; k < len(sorted)-1; k++ {
				c := population[sorted[k]]
				if math.IsInf(c.Distance(), 1) {
					continue
				}

				gap := population[sorted[k+1]].FitnessFor(o) - population[sorted[k-1]].FitnessFor(o)
				c.SetDistance(c.Distance() + gap/(hi-lo))
			}
		}
	}
}
