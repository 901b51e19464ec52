// Package ga implements a generic genetic algorithm over chromosomes that
// carry their own fitness bookkeeping.
package ga

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"sort"
)

// ErrConstructionFailed is returned by operators that could not build a
// valid individual. The algorithm skips the operation and carries on.
var ErrConstructionFailed = errors.New("construction failed")

// ErrNotTerminated is returned when the best individual is requested before
// the search finished.
var ErrNotTerminated = errors.New("search has not terminated")

// Chromosome is an individual of the population. T is the concrete
// chromosome type, usually a pointer.
type Chromosome[T any] interface {
	Size() int
	Fitness() float64
	FitnessFor(objective string) float64
	SetFitness(objective string, value float64)
	Coverage() float64
	NumOfCoveredGoals() int
	IsChanged() bool
	SetChanged(changed bool)
	Rank() int
	SetRank(rank int)
	Distance() float64
	SetDistance(distance float64)

	Clone() T
	// CrossOver keeps the receiver's genes before position1 and appends
	// copies of other's genes from position2 on.
	CrossOver(other T, position1, position2 int) error
	// ReplaceGene replaces the gene at index with a copy of other's.
	ReplaceGene(other T, index int) error
	Mutate(rng *rand.Rand) error
	// CompareTo returns a negative value if the receiver is better when
	// minimizing.
	CompareTo(other T) int
}

// Lengther is implemented by chromosomes whose genes have a length of their
// own, such as a suite of tests.
type Lengther interface {
	TotalLength() int
}

func lengthOf(c any) int {
	if l, ok := c.(Lengther); ok {
		return l.TotalLength()
	}

	if s, ok := c.(interface{ Size() int }); ok {
		return s.Size()
	}

	return 0
}

// FitnessFunction scores a chromosome for one objective.
type FitnessFunction[T any] interface {
	Name() string
	Fitness(ctx context.Context, individual T) (float64, error)
	// UpdateCoveredGoals applies goal removals queued during evaluation
	// and reports whether anything changed.
	UpdateCoveredGoals() bool
	IsMaximization() bool
}

// ChromosomeFactory builds random individuals.
type ChromosomeFactory[T any] interface {
	Chromosome(ctx context.Context, rng *rand.Rand) (T, error)
}

// Evaluation is the fitness bookkeeping embedded by chromosome types.
type Evaluation struct {
	fitness  map[string]float64
	coverage map[string]float64
	covered  map[string]int
	changed  bool
	rank     int
	distance float64
}

// NewEvaluation returns bookkeeping for a fresh, unevaluated chromosome.
func NewEvaluation() Evaluation {
	return Evaluation{
		fitness:  map[string]float64{},
		coverage: map[string]float64{},
		covered:  map[string]int{},
		changed:  true,
	}
}

// Copy deep-copies the bookkeeping.
func (e *Evaluation) Copy() Evaluation {
	cp := NewEvaluation()
	for k, v := range e.fitness {
		cp.fitness[k] = v
	}

	for k, v := range e.coverage {
		cp.coverage[k] = v
	}

	for k, v := range e.covered {
		cp.covered[k] = v
	}

	cp.changed = e.changed
	cp.rank = e.rank
	cp.distance = e.distance

	return cp
}

// Fitness sums the fitness of all objectives.
func (e *Evaluation) Fitness() float64 {
	keys := make([]string, 0, len(e.fitness))
	for k := range e.fitness {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	sum := 0.0
	for _, k := range keys {
		sum += e.fitness[k]
	}

	return sum
}

// FitnessFor returns the fitness of one objective.
func (e *Evaluation) FitnessFor(objective string) float64 {
	return e.fitness[objective]
}

// SetFitness stores the fitness of one objective.
func (e *Evaluation) SetFitness(objective string, value float64) {
	if e.fitness == nil {
		e.fitness = map[string]float64{}
	}

	e.fitness[objective] = value
}

// Objectives lists the objectives evaluated so far.
func (e *Evaluation) Objectives() []string {
	keys := make([]string, 0, len(e.fitness))
	for k := range e.fitness {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Coverage averages the coverage of all objectives.
func (e *Evaluation) Coverage() float64 {
	if len(e.coverage) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range e.coverage {
		sum += v
	}

	return sum / float64(len(e.coverage))
}

// CoverageFor returns the coverage of one objective.
func (e *Evaluation) CoverageFor(objective string) float64 {
	return e.coverage[objective]
}

// SetCoverage stores the coverage of one objective.
func (e *Evaluation) SetCoverage(objective string, value float64) {
	if e.coverage == nil {
		e.coverage = map[string]float64{}
	}

	e.coverage[objective] = value
}

// NumOfCoveredGoals sums the covered goals of all objectives.
func (e *Evaluation) NumOfCoveredGoals() int {
	total := 0
	for _, v := range e.covered {
		total += v
	}

	return total
}

// NumOfCoveredGoalsFor returns the covered goals of one objective.
func (e *Evaluation) NumOfCoveredGoalsFor(objective string) int {
	return e.covered[objective]
}

// SetNumOfCoveredGoals stores the covered goals of one objective.
func (e *Evaluation) SetNumOfCoveredGoals(objective string, n int) {
	if e.covered == nil {
		e.covered = map[string]int{}
	}

	e.covered[objective] = n
}

// IsChanged reports whether the fitness values are stale.
func (e *Evaluation) IsChanged() bool { return e.changed }

// SetChanged marks the fitness values stale or fresh.
func (e *Evaluation) SetChanged(changed bool) { e.changed = changed }

// Rank is the non-domination front index.
func (e *Evaluation) Rank() int { return e.rank }

// SetRank sets the front index.
func (e *Evaluation) SetRank(rank int) { e.rank = rank }

// Distance is the crowding distance.
func (e *Evaluation) Distance() float64 { return e.distance }

// SetDistance sets the crowding distance.
func (e *Evaluation) SetDistance(distance float64) { e.distance = distance }

// SortPopulation orders the population best first.
func SortPopulation[T Chromosome[T]](population []T, maximize bool) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].CompareTo(population[j]) < 0
	})

	if maximize {
		slices.Reverse(population)
	}
}

// isBetter compares plain fitness values honoring the orientation.
func isBetter(a, b float64, maximize bool) bool {
	if maximize {
		return a > b
	}

	return a < b
}

// best returns the better of two chromosomes; ties go to a.
func best[T Chromosome[T]](a, b T, maximize bool) T {
	c := a.CompareTo(b)
	if maximize {
		c = -c
	}

	if c <= 0 {
		return a
	}

	return b
}
