package ga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// State is the lifecycle state of a GeneticAlgorithm.
type State int

// Lifecycle states. Terminated is final.
const (
	StateInit State = iota
	StateEvolving
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateEvolving:
		return "evolving"
	case StateTerminated:
		return "terminated"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Strategy selects how offspring enter the next generation.
type Strategy string

// Supported strategies.
const (
	// StrategyStandard always admits offspring.
	StrategyStandard Strategy = "standard"
	// StrategyMonotonic admits offspring only if the replacement keeps them.
	StrategyMonotonic Strategy = "monotonic"
)

// Archive is the part of a coverage archive the algorithm interacts with.
type Archive[T any] interface {
	HasBeenUpdated() bool
	SetHasBeenUpdated(updated bool)
	MergeArchiveAndSolution(solution T) T
}

// Config holds the scalar parameters of the search.
type Config struct {
	Strategy       Strategy
	PopulationSize int
	Elite          int
	CrossoverRate  float64
	Maximize       bool
	// GlobalTimeout bounds every search that has no wall clock budget.
	GlobalTimeout time.Duration
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{
		Strategy:       StrategyStandard,
		PopulationSize: 50,
		Elite:          1,
		CrossoverRate:  0.75,
		GlobalTimeout:  10 * time.Minute,
	}
}

var errAlreadyStarted = errors.New("search already started")

const maxConsecutiveFailures = 100

// GeneticAlgorithm evolves a population of T.
type GeneticAlgorithm[T Chromosome[T]] struct {
	cfg     Config
	rng     *rand.Rand
	factory ChromosomeFactory[T]

	selection   Selection[T]
	crossover   Crossover[T]
	replacement Replacement[T]
	limit       PopulationLimit[T]
	bloat       []BloatControl[T]
	fitness     []FitnessFunction[T]
	conditions  []StoppingCondition
	listeners   []SearchListener
	archive     Archive[T]

	population  []T
	generation  int
	evaluations int64
	state       State
	best        T
	started     time.Time
	stopReason  string
}

// New returns an algorithm with rank selection, single point crossover,
// fitness replacement and an individual-count population limit.
func New[T Chromosome[T]](cfg Config, rng *rand.Rand, factory ChromosomeFactory[T]) *GeneticAlgorithm[T] {
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = DefaultConfig().PopulationSize
	}

	if cfg.Strategy == "" {
		cfg.Strategy = StrategyStandard
	}

	return &GeneticAlgorithm[T]{
		cfg:         cfg,
		rng:         rng,
		factory:     factory,
		selection:   &RankSelection[T]{Bias: defaultRankBias},
		crossover:   SinglePointCrossover[T]{},
		replacement: FitnessReplacement[T]{Maximize: cfg.Maximize},
		limit:       IndividualPopulationLimit[T]{Limit: cfg.PopulationSize},
		state:       StateInit,
	}
}

// SetSelection replaces the selection function.
func (g *GeneticAlgorithm[T]) SetSelection(s Selection[T]) { g.selection = s }

// SetCrossover replaces the crossover function.
func (g *GeneticAlgorithm[T]) SetCrossover(c Crossover[T]) { g.crossover = c }

// SetReplacement replaces the replacement function.
func (g *GeneticAlgorithm[T]) SetReplacement(r Replacement[T]) { g.replacement = r }

// SetPopulationLimit replaces the population limit.
func (g *GeneticAlgorithm[T]) SetPopulationLimit(l PopulationLimit[T]) { g.limit = l }

// SetArchive attaches a coverage archive.
func (g *GeneticAlgorithm[T]) SetArchive(a Archive[T]) { g.archive = a }

// AddBloatControl adds a bloat control.
func (g *GeneticAlgorithm[T]) AddBloatControl(b BloatControl[T]) { g.bloat = append(g.bloat, b) }

// AddFitnessFunction adds an objective.
func (g *GeneticAlgorithm[T]) AddFitnessFunction(f FitnessFunction[T]) {
	g.fitness = append(g.fitness, f)
}

// FitnessFunctions returns the objectives.
func (g *GeneticAlgorithm[T]) FitnessFunctions() []FitnessFunction[T] { return g.fitness }

// AddListener adds a search listener.
func (g *GeneticAlgorithm[T]) AddListener(l SearchListener) { g.listeners = append(g.listeners, l) }

// AddStoppingCondition adds a condition unless one with the same name is
// already present.
func (g *GeneticAlgorithm[T]) AddStoppingCondition(c StoppingCondition) {
	for _, existing := range g.conditions {
		if existing.Name() == c.Name() {
			slog.Debug("Ignoring duplicate stopping condition", "name", c.Name())
			return
		}
	}

	g.conditions = append(g.conditions, c)
}

// StoppingConditions returns the active conditions.
func (g *GeneticAlgorithm[T]) StoppingConditions() []StoppingCondition { return g.conditions }

// State returns the lifecycle state.
func (g *GeneticAlgorithm[T]) State() State { return g.state }

// Population returns the current population, best first.
func (g *GeneticAlgorithm[T]) Population() []T { return g.population }

// Generation returns the number of completed generations.
func (g *GeneticAlgorithm[T]) Generation() int { return g.generation }

// FitnessEvaluations returns the number of fitness evaluations so far.
func (g *GeneticAlgorithm[T]) FitnessEvaluations() int64 { return g.evaluations }

// StopReason names the condition that ended the search.
func (g *GeneticAlgorithm[T]) StopReason() string { return g.stopReason }

// BestIndividual returns the result of a terminated search.
func (g *GeneticAlgorithm[T]) BestIndividual() (T, error) {
	if g.state != StateTerminated {
		var zero T
		return zero, ErrNotTerminated
	}

	return g.best, nil
}

// Generate runs the search until a stopping condition holds and returns the
// best individual. Cancelling ctx ends the search after the current
// generation; evaluations in flight always complete.
func (g *GeneticAlgorithm[T]) Generate(ctx context.Context) (T, error) {
	var zero T

	if g.state != StateInit {
		return zero, errAlreadyStarted
	}

	if len(g.fitness) == 0 {
		return zero, errors.New("no fitness function configured")
	}

	g.ensureGlobalTime()
	g.started = time.Now()
	g.notifyStarted()

	if err := g.initializePopulation(ctx); err != nil {
		slog.Error("Failed to initialize population", "error", err)
		return zero, fmt.Errorf("initialize population: %w", err)
	}

	g.state = StateEvolving

	for !g.isFinished(ctx) {
		if err := g.evolve(ctx); err != nil {
			slog.Error("Failed to evolve population", "generation", g.generation, "error", err)
			return zero, fmt.Errorf("evolve generation %d: %w", g.generation, err)
		}

		g.generation++
		g.notifyIteration()

		slog.Debug("Generation done", "generation", g.generation, "best_fitness", g.population[0].Fitness())
	}

	if err := g.updateBestIndividualFromArchive(ctx); err != nil {
		return zero, err
	}

	g.state = StateTerminated
	g.notifyFinished()

	slog.Info("Search finished", "generations", g.generation, "evaluations", g.evaluations, "reason", g.stopReason)

	return g.best, nil
}

// SearchState snapshots the current search.
func (g *GeneticAlgorithm[T]) SearchState() SearchState {
	state := SearchState{
		Generation:     g.generation,
		Evaluations:    g.evaluations,
		PopulationSize: len(g.population),
	}

	if !g.started.IsZero() {
		state.Elapsed = time.Since(g.started)
	}

	if len(g.population) > 0 {
		state.BestFitness = g.population[0].Fitness()
		state.Coverage = g.population[0].Coverage()
		state.CoveredGoals = g.population[0].NumOfCoveredGoals()
	}

	return state
}

func (g *GeneticAlgorithm[T]) ensureGlobalTime() {
	for _, c := range g.conditions {
		if _, ok := c.(*MaxTimeCondition); ok {
			return
		}
	}

	if g.cfg.GlobalTimeout > 0 {
		g.AddStoppingCondition(NewGlobalTimeCondition(g.cfg.GlobalTimeout))
	}
}

func (g *GeneticAlgorithm[T]) initializePopulation(ctx context.Context) error {
	failures := 0

	for len(g.population) < g.cfg.PopulationSize {
		c, err := g.factory.Chromosome(ctx, g.rng)
		if errors.Is(err, ErrConstructionFailed) {
			failures++
			if failures > maxConsecutiveFailures {
				return fmt.Errorf("factory failed %d times in a row: %w", failures, err)
			}

			continue
		}

		if err != nil {
			return err
		}

		failures = 0
		g.population = append(g.population, c)
	}

	for _, c := range g.population {
		if err := g.evaluate(ctx, c); err != nil {
			return err
		}
	}

	SortPopulation(g.population, g.cfg.Maximize)

	return g.updateFitnessFunctionsAndValues(ctx)
}

func (g *GeneticAlgorithm[T]) evolve(ctx context.Context) error {
	next := g.elitism()
	failures := 0

	for !g.limit.IsPopulationFull(next) && !g.isFinished(ctx) {
		if failures > maxConsecutiveFailures {
			slog.Warn("Too many failed reproductions, ending generation early", "size", len(next))
			break
		}

		admitted, err := g.reproduce(ctx)
		if errors.Is(err, ErrConstructionFailed) {
			failures++
			continue
		}

		if err != nil {
			return err
		}

		failures = 0
		next = append(next, admitted...)
	}

	if len(next) == 0 {
		return nil
	}

	g.population = next

	for _, c := range g.population {
		if !c.IsChanged() {
			continue
		}

		if err := g.evaluate(ctx, c); err != nil {
			return err
		}
	}

	g.rankIfNeeded()
	SortPopulation(g.population, g.cfg.Maximize)

	return g.updateFitnessFunctionsAndValues(ctx)
}

// reproduce selects two parents and returns the individuals admitted into
// the next generation.
func (g *GeneticAlgorithm[T]) reproduce(ctx context.Context) ([]T, error) {
	i1, err := g.selection.Select(g.rng, g.population)
	if err != nil {
		return nil, fmt.Errorf("select parent: %w", err)
	}

	i2, err := g.selection.Select(g.rng, g.population)
	if err != nil {
		return nil, fmt.Errorf("select parent: %w", err)
	}

	parent1, parent2 := g.population[i1], g.population[i2]
	offspring1, offspring2 := parent1.Clone(), parent2.Clone()

	if g.rng.Float64() <= g.cfg.CrossoverRate {
		if err := g.crossover.CrossOver(g.rng, offspring1, offspring2); err != nil {
			return nil, err
		}
	}

	if err := offspring1.Mutate(g.rng); err != nil {
		return nil, err
	}

	if err := offspring2.Mutate(g.rng); err != nil {
		return nil, err
	}

	if g.cfg.Strategy == StrategyMonotonic {
		return g.replace(ctx, parent1, parent2, offspring1, offspring2)
	}

	return []T{g.admit(parent1, offspring1), g.admit(parent2, offspring2)}, nil
}

func (g *GeneticAlgorithm[T]) replace(ctx context.Context, parent1, parent2, offspring1, offspring2 T) ([]T, error) {
	for _, c := range []T{offspring1, offspring2} {
		if err := g.evaluate(ctx, c); err != nil {
			return nil, err
		}
	}

	if g.isTooLong(offspring1) || g.isTooLong(offspring2) ||
		!g.replacement.KeepOffspring(parent1, parent2, offspring1, offspring2) {
		return []T{parent1.Clone(), parent2.Clone()}, nil
	}

	return []T{offspring1, offspring2}, nil
}

// admit returns the offspring unless bloat control or emptiness rejects it.
func (g *GeneticAlgorithm[T]) admit(parent, offspring T) T {
	if g.isTooLong(offspring) || offspring.Size() == 0 {
		return parent.Clone()
	}

	return offspring
}

func (g *GeneticAlgorithm[T]) isTooLong(c T) bool {
	for _, b := range g.bloat {
		if b.IsTooLong(c) {
			return true
		}
	}

	return false
}

func (g *GeneticAlgorithm[T]) elitism() []T {
	n := min(g.cfg.Elite, len(g.population))
	elite := make([]T, 0, g.cfg.PopulationSize)

	for i := range n {
		elite = append(elite, g.population[i].Clone())
	}

	return elite
}

func (g *GeneticAlgorithm[T]) rankIfNeeded() {
	if _, ok := g.selection.(*BinaryTournamentCrowding[T]); !ok {
		return
	}

	objectives := make([]string, 0, len(g.fitness))
	for _, f := range g.fitness {
		objectives = append(objectives, f.Name())
	}

	AssignRanks(g.population, objectives, g.cfg.Maximize)
	AssignCrowdingDistance(g.population, objectives)
}

func (g *GeneticAlgorithm[T]) evaluate(ctx context.Context, c T) error {
	evalCtx := context.WithoutCancel(ctx)

	for _, f := range g.fitness {
		value, err := f.Fitness(evalCtx, c)
		if err != nil {
			return fmt.Errorf("fitness %s: %w", f.Name(), err)
		}

		c.SetFitness(f.Name(), value)
		g.evaluations++

		for _, l := range g.allListeners() {
			l.FitnessEvaluated(value)
		}
	}

	c.SetChanged(false)

	return nil
}

// updateFitnessFunctionsAndValues applies queued goal removals and, when the
// archive changed, re-scores the whole population against the smaller goal
// set.
func (g *GeneticAlgorithm[T]) updateFitnessFunctionsAndValues(ctx context.Context) error {
	for _, f := range g.fitness {
		f.UpdateCoveredGoals()
	}

	if g.archive == nil || !g.archive.HasBeenUpdated() {
		return nil
	}

	for _, c := range g.population {
		c.SetChanged(true)

		if err := g.evaluate(ctx, c); err != nil {
			return err
		}
	}

	SortPopulation(g.population, g.cfg.Maximize)
	g.archive.SetHasBeenUpdated(false)

	return nil
}

func (g *GeneticAlgorithm[T]) updateBestIndividualFromArchive(ctx context.Context) error {
	if len(g.population) == 0 {
		return errors.New("empty population")
	}

	g.best = g.population[0]

	if g.archive == nil {
		return nil
	}

	merged := g.archive.MergeArchiveAndSolution(g.best)
	if err := g.evaluate(ctx, merged); err != nil {
		slog.Error("Failed to evaluate merged solution", "error", err)
		return fmt.Errorf("evaluate merged solution: %w", err)
	}

	g.best = merged

	return nil
}

func (g *GeneticAlgorithm[T]) isFinished(ctx context.Context) bool {
	if ctx.Err() != nil {
		g.stopReason = "context"
		return true
	}

	for _, c := range g.conditions {
		if c.IsFinished() {
			g.stopReason = c.Name()
			return true
		}
	}

	return false
}

func (g *GeneticAlgorithm[T]) allListeners() []SearchListener {
	all := make([]SearchListener, 0, len(g.conditions)+len(g.listeners))
	for _, c := range g.conditions {
		all = append(all, c)
	}

	return append(all, g.listeners...)
}

func (g *GeneticAlgorithm[T]) notifyStarted() {
	state := g.SearchState()
	for _, l := range g.allListeners() {
		l.SearchStarted(state)
	}
}

func (g *GeneticAlgorithm[T]) notifyIteration() {
	state := g.SearchState()
	for _, l := range g.allListeners() {
		l.Iteration(state)
	}
}

func (g *GeneticAlgorithm[T]) notifyFinished() {
	state := g.SearchState()
	for _, l := range g.allListeners() {
		l.SearchFinished(state)
	}
}
