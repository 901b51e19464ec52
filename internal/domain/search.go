// Package domain wires targets, coverage criteria and the genetic algorithm
// into runnable test generation workflows.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"evogen.dev/pkg/evogen/internal/adapter"
	"evogen.dev/pkg/evogen/internal/archive"
	"evogen.dev/pkg/evogen/internal/coverage"
	"evogen.dev/pkg/evogen/internal/ga"
	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/internal/testcase"
)

// CrossoverCoverage keeps the unique covering tests of both parents.
const CrossoverCoverage ga.CrossoverKind = "coverage"

// ArchiveNone disables the archive.
const ArchiveNone archive.Kind = "none"

// SearchConfig holds every knob of a single search.
type SearchConfig struct {
	Criteria []coverage.Criterion
	GA       ga.Config

	Selection ga.SelectionKind
	Crossover ga.CrossoverKind
	// PreferShorter breaks fitness ties of the monotonic replacement in
	// favour of shorter offspring.
	PreferShorter bool
	Limit         ga.LimitKind
	LimitSize     int

	Stopping          ga.StoppingKind
	Budget            int64
	StopOnZeroFitness bool

	Archive         archive.Kind
	ArchiveCapacity int
	// ArchiveProbability is the chance that a new suite starts from a
	// mutated archived test.
	ArchiveProbability float64
	// SeedProbability is the chance that a new suite starts from a test of
	// the previous run's snapshot.
	SeedProbability float64

	// Seed of the random generator; zero picks one from the clock.
	Seed        int64
	Parallelism int
	Tests       testcase.Options
	Runner      adapter.RunnerOptions
	// HistoryDir holds the per-generation statistics spill files.
	HistoryDir string
}

// DefaultSearchConfig returns a branch coverage search with a one minute
// budget.
func DefaultSearchConfig() SearchConfig {
	gaCfg := ga.DefaultConfig()

	return SearchConfig{
		Criteria:          []coverage.Criterion{coverage.CriterionBranch},
		GA:                gaCfg,
		Selection:         ga.SelectionRank,
		Crossover:         ga.CrossoverSinglePoint,
		Limit:             ga.LimitIndividuals,
		LimitSize:         gaCfg.PopulationSize,
		Stopping:          ga.StopMaxTime,
		Budget:            60,
		StopOnZeroFitness: true,
		Archive:           archive.KindCoverage,
		ArchiveCapacity:   archive.DefaultCapacity,
		SeedProbability:   0.2,
		Parallelism:       coverage.DefaultParallelism,
		Tests:             testcase.DefaultOptions(),
		Runner:            adapter.DefaultRunnerOptions(),
	}
}

// Validate reports the first invalid setting.
func (c SearchConfig) Validate() error {
	switch {
	case len(c.Criteria) == 0:
		return errors.New("at least one criterion is required")
	case c.GA.PopulationSize <= 0:
		return fmt.Errorf("population size must be positive, got %d", c.GA.PopulationSize)
	case c.GA.Elite < 0 || c.GA.Elite > c.GA.PopulationSize:
		return fmt.Errorf("elite must be in [0, %d], got %d", c.GA.PopulationSize, c.GA.Elite)
	case c.GA.CrossoverRate < 0 || c.GA.CrossoverRate > 1:
		return fmt.Errorf("crossover rate must be in [0, 1], got %v", c.GA.CrossoverRate)
	case c.Budget <= 0:
		return fmt.Errorf("budget must be positive, got %d", c.Budget)
	case c.SeedProbability < 0 || c.SeedProbability > 1:
		return fmt.Errorf("seed probability must be in [0, 1], got %v", c.SeedProbability)
	case c.ArchiveProbability < 0 || c.ArchiveProbability > 1:
		return fmt.Errorf("archive probability must be in [0, 1], got %v", c.ArchiveProbability)
	}

	return nil
}

func (c SearchConfig) usesMutants() bool {
	return slices.Contains(c.Criteria, coverage.CriterionWeakMutation) ||
		slices.Contains(c.Criteria, coverage.CriterionStrongMutation)
}

// Search is one configured run of the genetic algorithm against a target.
type Search struct {
	id     string
	target m.Target
	cfg    SearchConfig
	seed   int64

	registry   *coverage.Registry
	runner     *adapter.CountingTestRunner
	archive    archive.Archive
	fitness    []*coverage.SuiteFitness
	statements *testcase.StatementFactory
	algorithm  *ga.GeneticAlgorithm[*testcase.SuiteChromosome]
	stop       *ga.ExternalStopCondition
	history    *historyListener
}

// NewSearch builds a search of target. seeds are tests of earlier runs that
// may start suites of the initial population.
func NewSearch(target m.Target, cfg SearchConfig, seeds []m.TestCase) (*Search, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}

	registry, err := coverage.NewRegistry(target)
	if err != nil {
		slog.Error("Failed to build goal registry", "class", target.Class, "error", err)
		return nil, fmt.Errorf("failed to build registry of %s: %w", target.Class, err)
	}

	var mutations []m.Mutation
	if cfg.usesMutants() {
		mutations = registry.Mutations()
	}

	local := adapter.NewLocalTestRunnerAdapter(target, mutations, cfg.Runner,
		coverage.NewInputObserver(target), coverage.NewOutputObserver(target))

	s := &Search{
		id:         uuid.NewString(),
		target:     target,
		cfg:        cfg,
		seed:       cfg.Seed,
		registry:   registry,
		runner:     adapter.NewCountingTestRunner(local),
		statements: testcase.NewStatementFactory(target, cfg.Tests),
		stop:       ga.NewExternalStopCondition(),
	}

	if s.seed == 0 {
		s.seed = time.Now().UnixNano()
	}

	if cfg.Archive != ArchiveNone {
		s.archive, err = archive.New(cfg.Archive, s.statements, cfg.ArchiveCapacity)
		if err != nil {
			return nil, err
		}

		s.archive.OnMethodCovered(func(method string) {
			slog.Info("Method fully covered", "method", method)
		})
	}

	evaluator := coverage.NewEvaluator(registry)

	for _, criterion := range cfg.Criteria {
		factory, err := coverage.NewGoalFactory(criterion, registry)
		if err != nil {
			return nil, err
		}

		s.fitness = append(s.fitness, coverage.NewSuiteFitness(factory, evaluator, s.runner, s.archive, cfg.Parallelism))
	}

	if err := s.buildAlgorithm(seeds); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Search) buildAlgorithm(seeds []m.TestCase) error {
	cfg := s.cfg

	var factory ga.ChromosomeFactory[*testcase.SuiteChromosome] = testcase.NewRandomSuiteFactory(s.statements)
	if len(seeds) > 0 && cfg.SeedProbability > 0 {
		factory = testcase.NewSeededSuiteFactory(factory, s.statements, seeds, cfg.SeedProbability)
	}

	if s.archive != nil && cfg.ArchiveProbability > 0 {
		factory = archive.NewSuiteFactory(s.archive, factory, cfg.ArchiveProbability)
	}

	algorithm := ga.New(cfg.GA, rand.New(rand.NewSource(s.seed)), factory)

	selection, err := ga.NewSelection[*testcase.SuiteChromosome](cfg.Selection, cfg.GA.Maximize)
	if err != nil {
		return err
	}

	algorithm.SetSelection(selection)

	crossover, err := newCrossover(cfg.Crossover, cfg.GA.CrossoverRate)
	if err != nil {
		return err
	}

	algorithm.SetCrossover(crossover)

	if cfg.PreferShorter {
		algorithm.SetReplacement(ga.LengthReplacement[*testcase.SuiteChromosome]{Maximize: cfg.GA.Maximize})
	}

	limit := cfg.LimitSize
	if limit <= 0 {
		limit = cfg.GA.PopulationSize
	}

	algorithm.SetPopulationLimit(ga.NewPopulationLimit[*testcase.SuiteChromosome](cfg.Limit, limit))
	algorithm.AddBloatControl(ga.MaxSizeBloatControl[*testcase.SuiteChromosome]{Max: cfg.Tests.MaxTests})

	if s.archive != nil {
		algorithm.SetArchive(s.archive)
	}

	for _, f := range s.fitness {
		algorithm.AddFitnessFunction(f)
	}

	budget, err := ga.NewStoppingCondition(cfg.Stopping, cfg.Budget, s.runner)
	if err != nil {
		return err
	}

	algorithm.AddStoppingCondition(budget)
	algorithm.AddStoppingCondition(s.stop)

	if cfg.StopOnZeroFitness {
		algorithm.AddStoppingCondition(ga.NewZeroFitnessCondition())
	}

	history, err := newHistoryListener(cfg.HistoryDir)
	if err != nil {
		return err
	}

	s.history = history
	algorithm.AddListener(history)
	s.algorithm = algorithm

	return nil
}

func newCrossover(kind ga.CrossoverKind, rate float64) (ga.Crossover[*testcase.SuiteChromosome], error) {
	if kind == CrossoverCoverage {
		return testcase.CoverageCrossover{}, nil
	}

	return ga.NewCrossover[*testcase.SuiteChromosome](kind, rate)
}

// ID returns the run ID.
func (s *Search) ID() string { return s.id }

// Class returns the class under test.
func (s *Search) Class() string { return s.target.Class }

// Seed returns the seed of the random generator.
func (s *Search) Seed() int64 { return s.seed }

// TotalGoals counts the goals of every criterion.
func (s *Search) TotalGoals() int {
	total := 0
	for _, f := range s.fitness {
		total += f.TotalGoals()
	}

	return total
}

// AddListener adds a search listener.
func (s *Search) AddListener(l ga.SearchListener) { s.algorithm.AddListener(l) }

// Stop ends the search after the current generation.
func (s *Search) Stop() { s.stop.Stop() }

// Run evolves the population until a stopping condition holds and reports
// the best suite found.
func (s *Search) Run(ctx context.Context) (m.Report, *testcase.SuiteChromosome, error) {
	s.algorithm.AddStoppingCondition(ga.NewContextStopCondition(ctx))

	started := time.Now()

	slog.Info("Starting search", "class", s.target.Class, "run", s.id, "seed", s.seed, "goals", s.TotalGoals())

	best, err := s.algorithm.Generate(ctx)
	if err != nil {
		slog.Error("Failed to generate tests", "class", s.target.Class, "error", err)
		return m.Report{}, nil, fmt.Errorf("failed to generate tests for %s: %w", s.target.Class, err)
	}

	report, err := s.report(best, started)
	if err != nil {
		return m.Report{}, nil, err
	}

	return report, best, nil
}

// Close releases the statistics history.
func (s *Search) Close() error {
	if s.history == nil {
		return nil
	}

	return s.history.Close()
}

func (s *Search) report(best *testcase.SuiteChromosome, started time.Time) (m.Report, error) {
	history, err := s.history.Collect()
	if err != nil {
		return m.Report{}, fmt.Errorf("failed to read search history: %w", err)
	}

	archiveKind := string(s.cfg.Archive)
	if archiveKind == "" {
		archiveKind = string(archive.KindCoverage)
	}

	report := m.Report{
		RunID:              s.id,
		Class:              s.target.Class,
		Seed:               s.seed,
		Algorithm:          fmt.Sprintf("%s/%s/%s", s.cfg.GA.Strategy, s.cfg.Selection, s.cfg.Crossover),
		Archive:            archiveKind,
		StartedAt:          started,
		Duration:           time.Since(started),
		Generations:        s.algorithm.Generation(),
		FitnessEvaluations: s.algorithm.FitnessEvaluations(),
		TestsExecuted:      s.runner.TestsExecuted(),
		StatementsExecuted: s.runner.StatementsExecuted(),
		StopReason:         s.algorithm.StopReason(),
		Fitness:            best.Fitness(),
		History:            history,
	}

	for _, f := range s.fitness {
		name := f.Name()
		covered := best.NumOfCoveredGoalsFor(name)

		report.TotalGoals += f.TotalGoals()
		report.CoveredGoals += covered
		report.Criteria = append(report.Criteria, m.CriterionResult{
			Name:         name,
			TotalGoals:   f.TotalGoals(),
			CoveredGoals: covered,
			Coverage:     best.CoverageFor(name),
			Fitness:      best.FitnessFor(name),
		})
	}

	for _, test := range best.Tests() {
		goals := test.CoveredGoals()
		names := make([]string, 0, len(goals))

		for _, g := range goals {
			names = append(names, g.String())
		}

		report.Tests = append(report.Tests, m.TestReport{
			Code:         test.Code(),
			Statements:   test.Size(),
			CoveredGoals: names,
		})
	}

	return report, nil
}
