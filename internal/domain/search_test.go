package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evogen.dev/pkg/evogen/internal/archive"
	"evogen.dev/pkg/evogen/internal/coverage"
	"evogen.dev/pkg/evogen/internal/ga"
	m "evogen.dev/pkg/evogen/internal/model"
)

// flagsTarget has three branch goals: both outcomes of toggle's predicate and
// the root branch of identity.
func flagsTarget() m.Target {
	return m.Target{
		Class: "Flags",
		Methods: []m.MethodSpec{
			{
				Name:       "toggle",
				Params:     []m.ParamSpec{{Name: "on", Type: m.ParamBool}},
				Predicates: []m.PredicateSpec{{ID: 1, Left: "on", Op: "==", Right: "1"}},
				Returns:    []m.ReturnSpec{{Predicate: 1, Branch: true, Expr: "0"}},
				Default:    "1",
			},
			{Name: "identity", Params: []m.ParamSpec{{Name: "v", Type: m.ParamInt}}, Default: "v"},
		},
	}
}

func testConfig(t *testing.T) SearchConfig {
	t.Helper()

	cfg := DefaultSearchConfig()
	cfg.GA.PopulationSize = 10
	cfg.LimitSize = 10
	cfg.Stopping = ga.StopMaxGenerations
	cfg.Budget = 100
	cfg.Seed = 42
	cfg.HistoryDir = t.TempDir()

	return cfg
}

func newTestSearch(t *testing.T, cfg SearchConfig, seeds []m.TestCase) *Search {
	t.Helper()

	s, err := NewSearch(flagsTarget(), cfg, seeds)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, s.Close()) })

	return s
}

func TestSearchConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SearchConfig)
		wantErr bool
	}{
		{"default", func(*SearchConfig) {}, false},
		{"no criteria", func(c *SearchConfig) { c.Criteria = nil }, true},
		{"empty population", func(c *SearchConfig) { c.GA.PopulationSize = 0 }, true},
		{"elite above population", func(c *SearchConfig) { c.GA.Elite = c.GA.PopulationSize + 1 }, true},
		{"negative elite", func(c *SearchConfig) { c.GA.Elite = -1 }, true},
		{"crossover rate above one", func(c *SearchConfig) { c.GA.CrossoverRate = 1.5 }, true},
		{"zero budget", func(c *SearchConfig) { c.Budget = 0 }, true},
		{"seed probability", func(c *SearchConfig) { c.SeedProbability = -0.1 }, true},
		{"archive probability", func(c *SearchConfig) { c.ArchiveProbability = 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSearchConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestNewSearch_RejectsUnknownKinds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SearchConfig)
	}{
		{"selection", func(c *SearchConfig) { c.Selection = "lottery" }},
		{"crossover", func(c *SearchConfig) { c.Crossover = "two-point" }},
		{"stopping", func(c *SearchConfig) { c.Stopping = "maxcoffee" }},
		{"archive", func(c *SearchConfig) { c.Archive = "lru" }},
		{"criterion", func(c *SearchConfig) { c.Criteria = []coverage.Criterion{"line"} }},
		{"invalid config", func(c *SearchConfig) { c.Budget = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)

			_, err := NewSearch(flagsTarget(), cfg, nil)
			require.Error(t, err)
		})
	}
}

func TestSearch_CoversFlags(t *testing.T) {
	s := newTestSearch(t, testConfig(t), nil)

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "Flags", s.Class())
	assert.Equal(t, int64(42), s.Seed())
	assert.Equal(t, 3, s.TotalGoals())

	report, best, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, best)

	assert.Equal(t, s.ID(), report.RunID)
	assert.Equal(t, "Flags", report.Class)
	assert.Equal(t, int64(42), report.Seed)
	assert.Equal(t, "standard/rank/single-point", report.Algorithm)
	assert.Equal(t, string(archive.KindCoverage), report.Archive)
	assert.Equal(t, "zerofitness", report.StopReason)
	assert.Equal(t, 3, report.TotalGoals)
	assert.Equal(t, 3, report.CoveredGoals)
	assert.Zero(t, report.Fitness)
	assert.InDelta(t, 1.0, report.Coverage(), 1e-9)
	assert.Positive(t, report.Generations)
	assert.Positive(t, report.FitnessEvaluations)
	assert.Positive(t, report.TestsExecuted)
	assert.GreaterOrEqual(t, report.StatementsExecuted, report.TestsExecuted)

	require.Len(t, report.Criteria, 1)
	assert.Equal(t, m.CriterionResult{Name: "branch", TotalGoals: 3, CoveredGoals: 3, Coverage: 1, Fitness: 0}, report.Criteria[0])

	require.NotEmpty(t, report.Tests)
	assert.Len(t, report.Tests, best.Size())

	for _, test := range report.Tests {
		assert.Contains(t, test.Code, "NewFlags()")
		assert.Positive(t, test.Statements)
	}

	require.Len(t, report.History, report.Generations)
	for i, stats := range report.History {
		assert.Equal(t, i+1, stats.Generation)
	}
}

func TestSearch_StopBeforeRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.StopOnZeroFitness = false

	s := newTestSearch(t, cfg, nil)
	s.Stop()

	report, _, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "external", report.StopReason)
	assert.Zero(t, report.Generations)
	assert.Empty(t, report.History)
}

func TestSearch_GenerationBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.StopOnZeroFitness = false
	cfg.Budget = 3
	cfg.Crossover = CrossoverCoverage
	cfg.Selection = ga.SelectionTournament
	cfg.Archive = archive.KindMIO
	cfg.ArchiveProbability = 0.5
	cfg.PreferShorter = true
	cfg.GA.Strategy = ga.StrategyMonotonic

	var listener countingListener

	s := newTestSearch(t, cfg, nil)
	s.AddListener(&listener)

	report, _, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "maxgenerations", report.StopReason)
	assert.Equal(t, 3, report.Generations)
	assert.Equal(t, "monotonic/tournament/coverage", report.Algorithm)
	assert.Equal(t, "mio", report.Archive)
	assert.Equal(t, 1, listener.started)
	assert.Equal(t, 3, listener.iterations)
	assert.Equal(t, 1, listener.finished)
	assert.Equal(t, report.FitnessEvaluations, listener.evaluations)
}

func TestSearch_WithoutArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive = ArchiveNone
	cfg.StopOnZeroFitness = false
	cfg.Budget = 2

	s := newTestSearch(t, cfg, nil)

	report, _, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "none", report.Archive)
	assert.Equal(t, 2, report.Generations)
}

func TestSearch_MultipleCriteria(t *testing.T) {
	cfg := testConfig(t)
	cfg.Criteria = []coverage.Criterion{coverage.CriterionBranch, coverage.CriterionWeakMutation, coverage.CriterionOutput}
	cfg.StopOnZeroFitness = false
	cfg.Budget = 2

	s := newTestSearch(t, cfg, nil)

	report, _, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Criteria, 3)
	assert.Equal(t, "branch", report.Criteria[0].Name)
	assert.Equal(t, "weak-mutation", report.Criteria[1].Name)
	assert.Equal(t, "output", report.Criteria[2].Name)

	total := 0
	for _, c := range report.Criteria {
		total += c.TotalGoals
		assert.LessOrEqual(t, c.CoveredGoals, c.TotalGoals)
	}

	assert.Equal(t, s.TotalGoals(), total)
	assert.Equal(t, total, report.TotalGoals)
}

func TestSearch_Seeded(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedProbability = 1
	cfg.StopOnZeroFitness = false
	cfg.Budget = 1

	seeds := []m.TestCase{{Class: "Flags", Statements: []m.Statement{{Method: "toggle", Args: []int64{1}}}}}

	s := newTestSearch(t, cfg, seeds)

	report, _, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Generations)
}

type countingListener struct {
	ga.NopListener
	started, iterations, finished int
	evaluations                   int64
}

func (l *countingListener) SearchStarted(ga.SearchState)  { l.started++ }
func (l *countingListener) Iteration(ga.SearchState)      { l.iterations++ }
func (l *countingListener) FitnessEvaluated(float64)      { l.evaluations++ }
func (l *countingListener) SearchFinished(ga.SearchState) { l.finished++ }
