// Package testcase provides the test and test-suite chromosomes evolved by
// the search.
package testcase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"

	"evogen.dev/pkg/evogen/internal/ga"
	m "evogen.dev/pkg/evogen/internal/model"
)

// Options tunes how tests and suites are built and mutated.
type Options struct {
	// InitialTests bounds the number of tests in a random suite.
	InitialTests int
	// MaxTests caps the number of tests in a suite.
	MaxTests int
	// InitialLength bounds the number of statements in a random test.
	InitialLength int
	// MaxLength caps the number of statements in a test.
	MaxLength int
	// Distribution picks which tests of a suite are mutated.
	Distribution ga.DistributionKind
	// TestInsertionProbability is the base of the geometric insertion of
	// new tests during suite mutation.
	TestInsertionProbability float64
	// StatementInsertionProbability is the same for statements in a test.
	StatementInsertionProbability float64
	// PrivateAccessProbability is the chance to call a private method.
	PrivateAccessProbability float64
	// ConstantProbability is the chance to draw an argument from the
	// constants found in the target.
	ConstantProbability float64
	// MaxInt bounds random integer arguments to [-MaxInt, MaxInt].
	MaxInt int64
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{
		InitialTests:                  5,
		MaxTests:                      50,
		InitialLength:                 5,
		MaxLength:                     40,
		Distribution:                  ga.DistributionUniform,
		TestInsertionProbability:      0.1,
		StatementInsertionProbability: 0.5,
		PrivateAccessProbability:      0.05,
		ConstantProbability:           0.3,
		MaxInt:                        1000,
	}
}

// StatementFactory builds random statements against a target.
type StatementFactory struct {
	target    m.Target
	public    []m.MethodSpec
	private   []m.MethodSpec
	constants []int64
	opts      Options
}

// NewStatementFactory indexes the target's methods and literal constants.
func NewStatementFactory(target m.Target, opts Options) *StatementFactory {
	f := &StatementFactory{target: target, opts: opts}

	seen := map[int64]struct{}{}
	addConstant := func(operand string) {
		v, err := strconv.ParseInt(operand, 10, 64)
		if err != nil {
			return
		}

		for _, c := range []int64{v - 1, v, v + 1} {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				f.constants = append(f.constants, c)
			}
		}
	}

	for _, method := range target.Methods {
		if method.Private {
			f.private = append(f.private, method)
		} else {
			f.public = append(f.public, method)
		}

		for _, p := range method.Predicates {
			addConstant(p.Left)
			addConstant(p.Right)
		}
	}

	slices.Sort(f.constants)

	return f
}

// Class returns the target class name.
func (f *StatementFactory) Class() string {
	return f.target.Class
}

// Options returns the tuning the factory was built with.
func (f *StatementFactory) Options() Options {
	return f.opts
}

// Constants returns the literal pool.
func (f *StatementFactory) Constants() []int64 {
	return f.constants
}

// RandomStatement calls a random method with random arguments.
func (f *StatementFactory) RandomStatement(rng *rand.Rand) (m.Statement, error) {
	usePrivate := len(f.private) > 0 && (len(f.public) == 0 || rng.Float64() < f.opts.PrivateAccessProbability)

	var method m.MethodSpec

	switch {
	case usePrivate:
		method = f.private[rng.Intn(len(f.private))]
	case len(f.public) > 0:
		method = f.public[rng.Intn(len(f.public))]
	default:
		return m.Statement{}, fmt.Errorf("target %q has no methods: %w", f.target.Class, ga.ErrConstructionFailed)
	}

	args := make([]int64, len(method.Params))
	for i, p := range method.Params {
		args[i] = f.RandomValue(rng, p.Type)
	}

	return m.Statement{Method: method.Name, Args: args, PrivateAccess: method.Private}, nil
}

// RandomValue draws an argument of the given type.
func (f *StatementFactory) RandomValue(rng *rand.Rand, typ m.ParamType) int64 {
	if typ == m.ParamBool {
		return int64(rng.Intn(2))
	}

	if len(f.constants) > 0 && rng.Float64() < f.opts.ConstantProbability {
		return f.constants[rng.Intn(len(f.constants))]
	}

	bound := max(f.opts.MaxInt, 1)

	return rng.Int63n(2*bound+1) - bound
}

// ChangeStatement perturbs one argument of stmt and reports whether it
// changed.
func (f *StatementFactory) ChangeStatement(rng *rand.Rand, stmt *m.Statement) bool {
	if len(stmt.Args) == 0 {
		return false
	}

	method, ok := f.target.Method(stmt.Method)
	if !ok || len(method.Params) != len(stmt.Args) {
		return false
	}

	i := rng.Intn(len(stmt.Args))
	old := stmt.Args[i]

	switch {
	case method.Params[i].Type == m.ParamBool:
		stmt.Args[i] = 1 - old
	case rng.Float64() < 1.0/3.0:
		stmt.Args[i] = f.RandomValue(rng, m.ParamInt)
	default:
		delta := rng.Int63n(10) + 1
		if rng.Intn(2) == 0 {
			delta = -delta
		}

		stmt.Args[i] = old + delta
	}

	return stmt.Args[i] != old
}

// RandomTest builds a test with 1 to InitialLength statements.
func (f *StatementFactory) RandomTest(rng *rand.Rand) (m.TestCase, error) {
	length := rng.Intn(max(f.opts.InitialLength, 1)) + 1
	test := m.TestCase{Class: f.target.Class}

	for range length {
		stmt, err := f.RandomStatement(rng)
		if err != nil {
			return m.TestCase{}, err
		}

		test.Statements = append(test.Statements, stmt)
	}

	return test, nil
}

// RandomSuiteFactory builds suites of random tests.
type RandomSuiteFactory struct {
	statements *StatementFactory
}

// NewRandomSuiteFactory returns a factory over statements.
func NewRandomSuiteFactory(statements *StatementFactory) *RandomSuiteFactory {
	return &RandomSuiteFactory{statements: statements}
}

// Chromosome implements ga.ChromosomeFactory.
func (f *RandomSuiteFactory) Chromosome(ctx context.Context, rng *rand.Rand) (*SuiteChromosome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	suite := NewSuiteChromosome(f.statements)
	n := rng.Intn(max(f.statements.opts.InitialTests, 1)) + 1

	for range n {
		test, err := f.statements.RandomTest(rng)
		if err != nil {
			return nil, err
		}

		suite.AddTest(NewTestChromosome(test, f.statements))
	}

	return suite, nil
}

// SeededSuiteFactory starts from previously generated tests with a given
// probability and falls back to another factory otherwise.
type SeededSuiteFactory struct {
	fallback    ga.ChromosomeFactory[*SuiteChromosome]
	statements  *StatementFactory
	seeds       []m.TestCase
	probability float64
}

// NewSeededSuiteFactory returns a factory that reuses seeds.
func NewSeededSuiteFactory(fallback ga.ChromosomeFactory[*SuiteChromosome], statements *StatementFactory, seeds []m.TestCase, probability float64) *SeededSuiteFactory {
	return &SeededSuiteFactory{fallback: fallback, statements: statements, seeds: seeds, probability: probability}
}

// Chromosome implements ga.ChromosomeFactory. Seeded suites are mutated once
// so the population does not start with identical copies; a mutation that
// empties the suite is discarded.
func (f *SeededSuiteFactory) Chromosome(ctx context.Context, rng *rand.Rand) (*SuiteChromosome, error) {
	if len(f.seeds) == 0 || rng.Float64() >= f.probability {
		return f.fallback.Chromosome(ctx, rng)
	}

	suite := NewSuiteChromosome(f.statements)
	for _, seed := range f.seeds {
		if seed.Class != f.statements.Class() {
			continue
		}

		suite.AddTest(NewTestChromosome(seed.Clone(), f.statements))
	}

	if suite.Size() == 0 {
		return f.fallback.Chromosome(ctx, rng)
	}

	mutated := suite.Clone()
	if err := mutated.Mutate(rng); err != nil && !errors.Is(err, ga.ErrConstructionFailed) {
		return nil, err
	}

	if mutated.Size() == 0 {
		return suite, nil
	}

	return mutated, nil
}
