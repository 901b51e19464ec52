package ga

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAlgorithm(strategy Strategy, seed int64) *GeneticAlgorithm[*vector] {
	cfg := DefaultConfig()
	cfg.Strategy = strategy
	cfg.PopulationSize = 10

	alg := New[*vector](cfg, rand.New(rand.NewSource(seed)), vectorFactory{size: 6, maxGene: 9})
	alg.AddFitnessFunction(sumFitness{})

	return alg
}

func TestGeneticAlgorithm_Lifecycle(t *testing.T) {
	alg := newTestAlgorithm(StrategyStandard, 1)
	alg.AddStoppingCondition(NewMaxGenerationsCondition(5))

	assert.Equal(t, StateInit, alg.State())

	_, err := alg.BestIndividual()
	require.ErrorIs(t, err, ErrNotTerminated)

	best, err := alg.Generate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, best)

	assert.Equal(t, StateTerminated, alg.State())
	assert.Equal(t, 5, alg.Generation())
	assert.Equal(t, string(StopMaxGenerations), alg.StopReason())

	got, err := alg.BestIndividual()
	require.NoError(t, err)
	assert.Same(t, best, got)

	_, err = alg.Generate(context.Background())
	require.Error(t, err)
}

func TestGeneticAlgorithm_ElitismNeverLosesBest(t *testing.T) {
	for _, strategy := range []Strategy{StrategyStandard, StrategyMonotonic} {
		t.Run(string(strategy), func(t *testing.T) {
			alg := newTestAlgorithm(strategy, 7)
			listener := &fitnessTrail{}
			alg.AddListener(listener)
			alg.AddStoppingCondition(NewMaxGenerationsCondition(30))

			best, err := alg.Generate(context.Background())
			require.NoError(t, err)

			require.NotEmpty(t, listener.best)
			for i := 1; i < len(listener.best); i++ {
				assert.LessOrEqual(t, listener.best[i], listener.best[i-1])
			}

			assert.Equal(t, listener.best[len(listener.best)-1], best.Fitness())
			assert.False(t, best.IsChanged())
		})
	}
}

func TestGeneticAlgorithm_AddsGlobalTimeUnlessWallClockBudget(t *testing.T) {
	alg := newTestAlgorithm(StrategyStandard, 1)
	alg.AddStoppingCondition(NewMaxGenerationsCondition(1))

	_, err := alg.Generate(context.Background())
	require.NoError(t, err)

	names := conditionNames(alg.StoppingConditions())
	assert.Contains(t, names, "globaltime")

	alg = newTestAlgorithm(StrategyStandard, 1)
	alg.AddStoppingCondition(NewMaxTimeCondition(time.Hour))
	alg.AddStoppingCondition(NewMaxGenerationsCondition(1))

	_, err = alg.Generate(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, conditionNames(alg.StoppingConditions()), "globaltime")
}

func TestGeneticAlgorithm_DeduplicatesStoppingConditions(t *testing.T) {
	alg := newTestAlgorithm(StrategyStandard, 1)
	alg.AddStoppingCondition(NewMaxGenerationsCondition(3))
	alg.AddStoppingCondition(NewMaxGenerationsCondition(100))

	require.Len(t, alg.StoppingConditions(), 1)
	assert.Equal(t, int64(3), alg.StoppingConditions()[0].Limit())
}

func TestGeneticAlgorithm_ZeroFitnessStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PopulationSize = 4

	alg := New[*vector](cfg, rand.New(rand.NewSource(1)), vectorFactory{size: 3, maxGene: 0})
	alg.AddFitnessFunction(sumFitness{})
	alg.AddStoppingCondition(NewZeroFitnessCondition())
	alg.AddStoppingCondition(NewMaxGenerationsCondition(50))

	best, err := alg.Generate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, best.Fitness())
	assert.Equal(t, 1, alg.Generation())
	assert.Equal(t, "zerofitness", alg.StopReason())
}

func TestGeneticAlgorithm_CancelledContextStopsBetweenGenerations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	alg := newTestAlgorithm(StrategyStandard, 1)
	alg.AddStoppingCondition(NewMaxGenerationsCondition(100))

	best, err := alg.Generate(ctx)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, 0, alg.Generation())
	assert.Equal(t, "context", alg.StopReason())
}

func TestGeneticAlgorithm_ExternalStop(t *testing.T) {
	alg := newTestAlgorithm(StrategyStandard, 1)
	stop := NewExternalStopCondition()
	alg.AddStoppingCondition(stop)
	alg.AddListener(&stopAfter{generations: 2, stop: stop})

	_, err := alg.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, alg.Generation())
	assert.Equal(t, "external", alg.StopReason())
}

func TestGeneticAlgorithm_SkipsFailedConstruction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PopulationSize = 3

	factory := &flakyFactory{inner: vectorFactory{size: 2, maxGene: 3}}
	alg := New[*vector](cfg, rand.New(rand.NewSource(1)), factory)
	alg.AddFitnessFunction(sumFitness{})
	alg.AddStoppingCondition(NewMaxGenerationsCondition(1))

	_, err := alg.Generate(context.Background())
	require.NoError(t, err)
	assert.Greater(t, factory.failures, 0)
}

func TestGeneticAlgorithm_MergesArchiveIntoBest(t *testing.T) {
	alg := newTestAlgorithm(StrategyStandard, 1)
	archive := &fakeArchive{}
	alg.SetArchive(archive)
	alg.AddStoppingCondition(NewMaxGenerationsCondition(2))

	best, err := alg.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, archive.merged)
	assert.Equal(t, []int{0}, best.genes)
	assert.Zero(t, best.Fitness())
}

func TestGeneticAlgorithm_RequiresFitnessFunction(t *testing.T) {
	alg := New[*vector](DefaultConfig(), rand.New(rand.NewSource(1)), vectorFactory{size: 1, maxGene: 1})

	_, err := alg.Generate(context.Background())
	require.Error(t, err)
}

type fitnessTrail struct {
	NopListener
	best []float64
}

func (f *fitnessTrail) Iteration(state SearchState) {
	f.best = append(f.best, state.BestFitness)
}

type stopAfter struct {
	NopListener
	generations int
	stop        *ExternalStopCondition
}

func (s *stopAfter) Iteration(state SearchState) {
	if state.Generation >= s.generations {
		s.stop.Stop()
	}
}

type flakyFactory struct {
	inner    vectorFactory
	calls    int
	failures int
}

func (f *flakyFactory) Chromosome(ctx context.Context, rng *rand.Rand) (*vector, error) {
	f.calls++
	if f.calls%2 == 1 {
		f.failures++
		return nil, errors.Join(ErrConstructionFailed, errors.New("odd call"))
	}

	return f.inner.Chromosome(ctx, rng)
}

type fakeArchive struct {
	merged bool
}

func (a *fakeArchive) HasBeenUpdated() bool   { return false }
func (a *fakeArchive) SetHasBeenUpdated(bool) {}
func (a *fakeArchive) MergeArchiveAndSolution(*vector) *vector {
	a.merged = true
	return newVector(0)
}

func conditionNames(conditions []StoppingCondition) []string {
	names := make([]string, 0, len(conditions))
	for _, c := range conditions {
		names = append(names, c.Name())
	}

	return names
}
