package archive

import (
	"context"
	"math/rand"

	"evogen.dev/pkg/evogen/internal/ga"
	"evogen.dev/pkg/evogen/internal/testcase"
)

// SuiteFactory builds suites from another factory and, with a given
// probability, adds a mutated copy of an archived test.
type SuiteFactory struct {
	archive     Archive
	fallback    ga.ChromosomeFactory[*testcase.SuiteChromosome]
	probability float64
}

// NewSuiteFactory returns a factory seeding from archive.
func NewSuiteFactory(archive Archive, fallback ga.ChromosomeFactory[*testcase.SuiteChromosome], probability float64) *SuiteFactory {
	return &SuiteFactory{archive: archive, fallback: fallback, probability: probability}
}

// Chromosome implements ga.ChromosomeFactory.
func (f *SuiteFactory) Chromosome(ctx context.Context, rng *rand.Rand) (*testcase.SuiteChromosome, error) {
	suite, err := f.fallback.Chromosome(ctx, rng)
	if err != nil {
		return nil, err
	}

	if rng.Float64() >= f.probability {
		return suite, nil
	}

	test, ok := f.archive.RandomSolution(rng)
	if !ok {
		return suite, nil
	}

	if err := test.Mutate(rng); err != nil {
		return nil, err
	}

	if test.Size() > 0 {
		test.SetChanged(true)
		suite.AddTest(test)
	}

	return suite, nil
}
