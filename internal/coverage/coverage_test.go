package coverage

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evogen.dev/pkg/evogen/internal/adapter"
	"evogen.dev/pkg/evogen/internal/archive"
	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/internal/testcase"
)

// target has two nested predicates in classify and a branchless id method.
// Mutants: 1-5 ROR on predicate 1, 6-10 ROR on predicate 2, 11-14 AOR on
// "a * 2", 15-18 AOR on the default "a - b".
func target() m.Target {
	return m.Target{
		Class: "Triangle",
		Methods: []m.MethodSpec{
			{
				Name:   "classify",
				Params: []m.ParamSpec{{Name: "a", Type: m.ParamInt}, {Name: "b", Type: m.ParamInt}},
				Predicates: []m.PredicateSpec{
					{ID: 1, Left: "a", Op: "<=", Right: "0"},
					{ID: 2, Parent: 1, Branch: false, Left: "a", Op: "==", Right: "b"},
				},
				Returns: []m.ReturnSpec{
					{Predicate: 1, Branch: true, Expr: "-1"},
					{Predicate: 2, Branch: true, Expr: "a * 2"},
				},
				Default: "a - b",
			},
			{Name: "id", Params: []m.ParamSpec{{Name: "v", Type: m.ParamBool}}, Default: "v"},
		},
	}
}

type fixture struct {
	registry   *Registry
	evaluator  *Evaluator
	runner     *adapter.CountingTestRunner
	statements *testcase.StatementFactory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry, err := NewRegistry(target())
	require.NoError(t, err)

	local := adapter.NewLocalTestRunnerAdapter(target(), registry.Mutations(), adapter.DefaultRunnerOptions(),
		NewInputObserver(target()), NewOutputObserver(target()))

	return &fixture{
		registry:   registry,
		evaluator:  NewEvaluator(registry),
		runner:     adapter.NewCountingTestRunner(local),
		statements: testcase.NewStatementFactory(target(), testcase.DefaultOptions()),
	}
}

func call(method string, args ...int64) m.Statement {
	return m.Statement{Method: method, Args: args}
}

func (f *fixture) test(statements ...m.Statement) *testcase.TestChromosome {
	return testcase.NewTestChromosome(m.TestCase{Class: "Triangle", Statements: statements}, f.statements)
}

func (f *fixture) suite(tests ...*testcase.TestChromosome) *testcase.SuiteChromosome {
	s := testcase.NewSuiteChromosome(f.statements)
	s.AddTests(tests...)

	return s
}

func (f *fixture) execute(t *testing.T, statements ...m.Statement) *m.ExecutionResult {
	t.Helper()

	result, err := f.runner.RunTest(context.Background(), m.TestCase{Class: "Triangle", Statements: statements})
	require.NoError(t, err)

	return result
}

func (f *fixture) distance(t *testing.T, goal m.Goal, result *m.ExecutionResult) float64 {
	t.Helper()

	d, err := f.evaluator.Distance(goal, result)
	require.NoError(t, err)

	return d
}

func branch(predicate int, value bool) m.Goal {
	return m.Goal{Kind: m.GoalBranch, Class: "Triangle", Method: "classify", Predicate: predicate, Value: value}
}

func mutant(kind m.GoalKind, id int) m.Goal {
	method := "classify"

	return m.Goal{Kind: kind, Class: "Triangle", Method: method, MutationID: id}
}

func TestControlFlowDistance(t *testing.T) {
	zero, err := NewControlFlowDistance(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero.ResultingBranchFitness())

	one, err := NewControlFlowDistance(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, one.ResultingBranchFitness())

	five, err := NewControlFlowDistance(0, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0/6.0, five.ResultingBranchFitness(), 1e-12)

	assert.Negative(t, five.Compare(one), "approach level dominates")
	assert.Positive(t, five.Compare(zero))
	assert.Zero(t, zero.Compare(zero))

	_, err = NewControlFlowDistance(-1, 0)
	require.ErrorIs(t, err, ErrNegativeDistance)

	_, err = NewControlFlowDistance(0, -0.5)
	require.ErrorIs(t, err, ErrNegativeDistance)

	require.ErrorIs(t, five.SetBranchDistance(math.NaN()), ErrNegativeDistance)
	assert.Equal(t, 5.0, five.BranchDistance(), "rejected values leave the distance unchanged")

	require.NoError(t, five.IncreaseApproachLevel())
	assert.Equal(t, 1, five.ApproachLevel())

	overflow := ControlFlowDistance{approachLevel: math.MaxInt}
	require.Error(t, overflow.IncreaseApproachLevel())
	assert.Equal(t, "1/5", five.String())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.0, Normalize(0))
	assert.Equal(t, 0.5, Normalize(1))
	assert.Equal(t, 1.0, Normalize(math.Inf(1)))

	for _, d := range []float64{0.1, 1, 10, 1e9} {
		assert.Less(t, Normalize(d), 1.0)
		assert.Less(t, Normalize(d), Normalize(d*2))
	}
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(target())
	require.NoError(t, err)

	assert.Equal(t, "Triangle", r.Class())
	assert.Equal(t, 2, r.NumBranches())

	b, ok := r.Branch(2)
	require.True(t, ok)
	assert.Equal(t, 2, b.Depth)
	assert.Equal(t, "classify", b.Method)

	assert.Equal(t, 18, r.NumMutants())

	all := r.Mutations()
	for i, mu := range all {
		assert.Equal(t, i+1, mu.ID)
	}

	assert.Equal(t, m.OperatorROR, all[0].Operator)
	assert.Equal(t, "<", all[0].Replacement)
	assert.Equal(t, 2, all[5].Predicate)
	assert.Equal(t, m.Mutation{ID: 11, Class: "Triangle", Method: "classify", Operator: m.OperatorAOR, Return: 1, Replacement: "+"}, all[10])
	assert.Equal(t, -1, all[14].Return)

	assert.Len(t, r.MutationsFor("Triangle", "classify"), 18)
	assert.Empty(t, r.MutationsFor("Triangle", "id"))

	r.ClearMutations()
	assert.Zero(t, r.NumMutants())

	r.Reset()
	assert.Equal(t, 18, r.NumMutants())

	broken := target()
	broken.Methods[0].Predicates[1].Parent = 7

	_, err = NewRegistry(broken)
	require.Error(t, err)
}

func TestGoalFactories(t *testing.T) {
	r, err := NewRegistry(target())
	require.NoError(t, err)

	goals := func(c Criterion) []m.Goal {
		f, err := NewGoalFactory(c, r)
		require.NoError(t, err)
		assert.Equal(t, c, f.Criterion())

		return f.Goals()
	}

	branches := goals(CriterionBranch)
	require.Len(t, branches, 5)
	assert.Equal(t, branch(1, false), branches[0])
	assert.Equal(t, m.Goal{Kind: m.GoalMethod, Class: "Triangle", Method: "id"}, branches[4])

	assert.Len(t, goals(CriterionWeakMutation), 18)
	assert.Equal(t, m.GoalStrongMutation, goals(CriterionStrongMutation)[0].Kind)

	inputs := goals(CriterionInput)
	assert.Len(t, inputs, 3+3+2)

	outputs := goals(CriterionOutput)
	assert.Len(t, outputs, 6)

	for _, g := range outputs {
		assert.Equal(t, "int", g.Type)
	}

	_, err = NewGoalFactory("line", r)
	require.Error(t, err)
}

func TestParseCriteria(t *testing.T) {
	criteria, err := ParseCriteria("branch, output,,weak-mutation")
	require.NoError(t, err)
	assert.Equal(t, []Criterion{CriterionBranch, CriterionOutput, CriterionWeakMutation}, criteria)

	_, err = ParseCriteria(" , ")
	require.Error(t, err)

	_, err = ParseCriteria("branch,bogus")
	require.Error(t, err)

	assert.Len(t, Criteria(), 5)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, Negative, Describe(m.ParamInt, -3))
	assert.Equal(t, Zero, Describe(m.ParamInt, 0))
	assert.Equal(t, Positive, Describe(m.ParamInt, 9))
	assert.Equal(t, True, Describe(m.ParamBool, 1))
	assert.Equal(t, False, Describe(m.ParamBool, 0))
}

func TestEvaluator_Branch(t *testing.T) {
	f := newFixture(t)

	reached := f.execute(t, call("classify", 5, 5))
	assert.InDelta(t, 5.0/6.0, f.distance(t, branch(1, true), reached), 1e-12)
	assert.Zero(t, f.distance(t, branch(1, false), reached))
	assert.Zero(t, f.distance(t, branch(2, true), reached))
	assert.Equal(t, 0.5, f.distance(t, branch(2, false), reached))

	// Predicate 2 needs predicate 1 to be false; it was true, one away.
	diverged := f.execute(t, call("classify", 0, 3))
	assert.Equal(t, 1.5, f.distance(t, branch(2, true), diverged))

	d, err := f.evaluator.ControlFlowDistance(2, true, diverged.Trace)
	require.NoError(t, err)
	assert.Equal(t, 1, d.ApproachLevel())
	assert.Equal(t, 1.0, d.BranchDistance())

	// classify never called: depth + 1.
	uncalled := f.execute(t, call("id", 1))
	assert.Equal(t, 2.0, f.distance(t, branch(1, true), uncalled))
	assert.Equal(t, 3.0, f.distance(t, branch(2, false), uncalled))

	method := m.Goal{Kind: m.GoalMethod, Class: "Triangle", Method: "id"}
	assert.Zero(t, f.distance(t, method, uncalled))
	assert.Equal(t, 1.0, f.distance(t, method, reached))

	_, err = f.evaluator.Distance(branch(9, true), reached)
	require.ErrorIs(t, err, ErrUnknownGoal)
}

func TestEvaluator_WeakMutation(t *testing.T) {
	f := newFixture(t)

	reached := f.execute(t, call("classify", 5, 5))
	infected := f.execute(t, call("classify", 0, 3))
	uncalled := f.execute(t, call("id", 0))

	// "<=" to "<" on a = 5: both false, infection max(1, 5).
	assert.InDelta(t, 5.0/6.0, f.distance(t, mutant(m.GoalWeakMutation, 1), reached), 1e-12)
	assert.Zero(t, f.distance(t, mutant(m.GoalWeakMutation, 1), infected))

	// Untouched mutant of predicate 2: control-flow distance plus diameter.
	assert.Equal(t, 1.5, f.distance(t, mutant(m.GoalWeakMutation, 6), infected))
	assert.Equal(t, 2.0, f.distance(t, mutant(m.GoalWeakMutation, 1), uncalled))

	// Default expression mutant on an uncovered default return.
	assert.Equal(t, 1.0, f.distance(t, mutant(m.GoalWeakMutation, 15), infected))

	// "a * 2" to "a + 2" with a = 2 gives the same value.
	same := f.execute(t, call("classify", 2, 2))
	assert.Equal(t, 0.5, f.distance(t, mutant(m.GoalWeakMutation, 11), same))
	assert.Equal(t, 2.5, f.distance(t, mutant(m.GoalWeakMutation, 11), infected))

	_, err := f.evaluator.Distance(mutant(m.GoalWeakMutation, 99), same)
	require.ErrorIs(t, err, ErrUnknownGoal)
}

func TestEvaluator_WeakMutationClampsNegativeInfection(t *testing.T) {
	f := newFixture(t)

	result := m.NewExecutionResult(m.TestCase{Class: "Triangle"})
	result.Trace.TouchedMutants[1] = -3

	assert.Zero(t, f.distance(t, mutant(m.GoalWeakMutation, 1), result))
}

func TestEvaluator_StrongMutation(t *testing.T) {
	f := newFixture(t)

	killed := f.execute(t, call("classify", 5, 3))
	assert.Zero(t, f.distance(t, mutant(m.GoalStrongMutation, 15), killed))

	same := f.execute(t, call("classify", 2, 2))
	assert.Equal(t, 0.75, f.distance(t, mutant(m.GoalStrongMutation, 11), same))

	untouched := f.execute(t, call("classify", 0, 3))
	assert.Equal(t, 3.5, f.distance(t, mutant(m.GoalStrongMutation, 11), untouched))
}

func TestEvaluator_InputOutput(t *testing.T) {
	f := newFixture(t)

	result := f.execute(t, call("classify", 5, -5), call("id", 1))

	input := func(method string, arg int, typ m.ParamType, descriptor string) m.Goal {
		return m.Goal{Kind: m.GoalInput, Class: "Triangle", Method: method, ArgIndex: arg, Type: string(typ), Descriptor: descriptor}
	}
	output := func(method, descriptor string) m.Goal {
		return m.Goal{Kind: m.GoalOutput, Class: "Triangle", Method: method, Type: "int", Descriptor: descriptor}
	}

	assert.Zero(t, f.distance(t, input("classify", 0, m.ParamInt, Positive), result))
	assert.Zero(t, f.distance(t, input("classify", 1, m.ParamInt, Negative), result))
	assert.Equal(t, 1.0, f.distance(t, input("classify", 1, m.ParamInt, Zero), result))
	assert.Zero(t, f.distance(t, input("id", 0, m.ParamBool, True), result))

	// 5 - -5 = 10.
	assert.Zero(t, f.distance(t, output("classify", Positive), result))
	assert.Equal(t, 1.0, f.distance(t, output("classify", Negative), result))
	assert.Zero(t, f.distance(t, output("id", Positive), result))
}

func TestOutputObserver_IgnoresExceptions(t *testing.T) {
	result := m.NewExecutionResult(m.TestCase{Class: "Triangle"})
	o := NewOutputObserver(target())

	o.AfterStatement(result, 0, call("classify", 1, 0), 0, "ArithmeticException")
	assert.Empty(t, result.Trace.OutputGoals)

	o.AfterStatement(result, 1, call("classify", 1, 0), -4, "")
	assert.Len(t, result.Trace.OutputGoals, 1)
}

func TestTestFitness(t *testing.T) {
	f := newFixture(t)
	arch := archive.NewCoverageArchive(f.statements)
	arch.AddTarget(branch(1, true))

	test := f.test(call("classify", -2, 0))
	result, err := f.runner.RunTest(context.Background(), test.Test())
	require.NoError(t, err)

	fitness := NewTestFitness(branch(1, true), f.evaluator, arch)
	assert.Equal(t, branch(1, true), fitness.Goal())

	d, err := fitness.Fitness(test, result)
	require.NoError(t, err)
	assert.Zero(t, d)
	assert.True(t, test.IsCovering(branch(1, true)))
	assert.True(t, arch.HasSolution(branch(1, true)))

	// The archive rejects goals it does not know.
	_, err = NewTestFitness(branch(1, false), f.evaluator, arch).Fitness(test, result)
	require.ErrorIs(t, err, archive.ErrUnknownTarget)
}

func branchFitness(t *testing.T, f *fixture, arch archive.Archive, parallelism int) *SuiteFitness {
	t.Helper()

	factory, err := NewGoalFactory(CriterionBranch, f.registry)
	require.NoError(t, err)

	return NewSuiteFitness(factory, f.evaluator, f.runner, arch, parallelism)
}

func TestSuiteFitness_Aggregates(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		f := newFixture(t)
		fitness := branchFitness(t, f, nil, parallelism)

		suite := f.suite(f.test(call("classify", 5, 5)), f.test(call("id", 1)))

		value, err := fitness.Fitness(context.Background(), suite)
		require.NoError(t, err)

		// p1 true 5/6, p2 false 1/2; the other three goals are covered.
		assert.InDelta(t, 5.0/6.0+0.5, value, 1e-12)
		assert.Equal(t, 3, suite.NumOfCoveredGoals())
		assert.InDelta(t, 0.6, suite.Coverage(), 1e-12)
		assert.Equal(t, "branch", fitness.Name())
		assert.False(t, fitness.IsMaximization())
		assert.Equal(t, 5, fitness.TotalGoals())

		assert.True(t, suite.Tests()[0].IsCovering(branch(2, true)))
		assert.False(t, suite.Tests()[1].IsCovering(branch(2, true)))

		assert.False(t, fitness.UpdateCoveredGoals(), "without an archive goals stay tracked")
		assert.Len(t, fitness.TrackedGoals(), 5)
	}
}

func TestSuiteFitness_CapsDistancesAtOne(t *testing.T) {
	f := newFixture(t)
	fitness := branchFitness(t, f, nil, 2)

	suite := f.suite(f.test(call("id", 1)))

	value, err := fitness.Fitness(context.Background(), suite)
	require.NoError(t, err)

	// Four classify goals each contribute 1, the id goal is covered.
	assert.Equal(t, 4.0, value)
	assert.Equal(t, 1, suite.NumOfCoveredGoals())
}

func TestSuiteFitness_EmptySuite(t *testing.T) {
	f := newFixture(t)
	fitness := branchFitness(t, f, nil, 2)

	suite := f.suite()

	value, err := fitness.Fitness(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, 5.0, value)
	assert.Zero(t, suite.Coverage())
}

func TestSuiteFitness_Degenerate(t *testing.T) {
	f := newFixture(t)
	arch := archive.NewCoverageArchive(f.statements)
	fitness := branchFitness(t, f, arch, 2)

	foreign := testcase.NewTestChromosome(m.TestCase{Class: "Stack", Statements: []m.Statement{call("push", 1)}}, f.statements)
	suite := f.suite(f.test(call("classify", 0, 0)), foreign)

	value, err := fitness.Fitness(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, 5.0, value)
	assert.Zero(t, suite.NumOfCoveredGoals())
	assert.Zero(t, suite.Coverage())
	assert.Zero(t, arch.NumberOfCoveredTargets(), "degenerate suites are not archived")
}

func TestSuiteFitness_ArchiveRemovesCoveredGoals(t *testing.T) {
	f := newFixture(t)
	arch := archive.NewCoverageArchive(f.statements)
	fitness := branchFitness(t, f, arch, 2)

	assert.Equal(t, 5, arch.NumberOfTargets())

	first := f.suite(f.test(call("classify", 5, 5)), f.test(call("id", 0)))

	_, err := fitness.Fitness(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 3, arch.NumberOfCoveredTargets())
	assert.Len(t, fitness.TrackedGoals(), 5, "removal waits for UpdateCoveredGoals")

	assert.True(t, fitness.UpdateCoveredGoals())
	assert.False(t, fitness.UpdateCoveredGoals())
	assert.ElementsMatch(t, []m.Goal{branch(1, true), branch(2, false)}, fitness.TrackedGoals())

	second := f.suite(f.test(call("classify", 0, 1)), f.test(call("classify", 5, 4)))

	value, err := fitness.Fitness(context.Background(), second)
	require.NoError(t, err)
	assert.Zero(t, value)
	assert.Equal(t, 5, second.NumOfCoveredGoals())
	assert.Equal(t, 1.0, second.Coverage())
	assert.Equal(t, 5, arch.NumberOfCoveredTargets())
	assert.True(t, arch.IsMethodFullyCovered(m.MethodKey("Triangle", "classify")))
}

func TestSuiteFitness_MergeSkipsGoalsNoLongerScored(t *testing.T) {
	f := newFixture(t)
	arch := archive.NewCoverageArchive(f.statements)
	fitness := branchFitness(t, f, arch, 1)
	goal := branch(1, true)

	_, err := fitness.Fitness(context.Background(), f.suite(f.test(call("classify", -5, 0))))
	require.NoError(t, err)
	require.True(t, fitness.UpdateCoveredGoals())
	require.NotContains(t, fitness.TrackedGoals(), goal)

	fresh := f.suite(f.test(call("classify", -7, 0)))

	_, err = fitness.Fitness(context.Background(), fresh)
	require.NoError(t, err)
	assert.False(t, fresh.Tests()[0].IsCovering(goal), "removed goals are not scored")

	merged := arch.MergeArchiveAndSolution(fresh)
	require.Equal(t, 1, merged.Size())
	assert.True(t, merged.Tests()[0].IsCovering(goal))

	// A test that was never executed cannot vouch for the goal.
	pending := f.suite(f.test(call("classify", -9, 0)))
	assert.Equal(t, 2, arch.MergeArchiveAndSolution(pending).Size())
}

func TestEvaluator_Covers(t *testing.T) {
	f := newFixture(t)
	test := f.test(call("classify", -2, 0))
	assert.False(t, f.evaluator.Covers(branch(1, true), test))

	result, err := f.runner.RunTest(context.Background(), test.Test())
	require.NoError(t, err)
	test.SetLastResult(result)

	assert.True(t, f.evaluator.Covers(branch(1, true), test))
	assert.False(t, f.evaluator.Covers(branch(1, false), test))
}

func TestSuiteFitness_ReusesResultsOfUnchangedTests(t *testing.T) {
	f := newFixture(t)
	fitness := branchFitness(t, f, nil, 2)

	suite := f.suite(f.test(call("classify", 1, 2)), f.test(call("id", 1)))

	_, err := fitness.Fitness(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.runner.TestsExecuted())

	_, err = fitness.Fitness(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.runner.TestsExecuted())

	suite.Tests()[0].SetChanged(true)

	_, err = fitness.Fitness(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.runner.TestsExecuted())
}

type failingRunner struct{}

func (failingRunner) RunTest(context.Context, m.TestCase) (*m.ExecutionResult, error) {
	return nil, errors.New("sandbox unavailable")
}

func TestSuiteFitness_RunnerError(t *testing.T) {
	f := newFixture(t)

	factory, err := NewGoalFactory(CriterionBranch, f.registry)
	require.NoError(t, err)

	fitness := NewSuiteFitness(factory, f.evaluator, failingRunner{}, nil, 0)

	_, err = fitness.Fitness(context.Background(), f.suite(f.test(call("id", 1))))
	require.Error(t, err)
}

func TestCheckInvariants(t *testing.T) {
	require.NoError(t, checkInvariants(5, 5, 0, 1))
	require.NoError(t, checkInvariants(5, 2, 1.5, 0.4))
	require.NoError(t, checkInvariants(0, 0, 0, 1))

	require.ErrorIs(t, checkInvariants(5, 6, 0, 1), ErrInvariant)
	require.ErrorIs(t, checkInvariants(5, 2, -1, 0.4), ErrInvariant)
	require.ErrorIs(t, checkInvariants(5, 2, 1, 1.4), ErrInvariant)
	require.ErrorIs(t, checkInvariants(5, 5, 0.5, 1), ErrInvariant)
	require.ErrorIs(t, checkInvariants(5, 4, 0, 0.8), ErrInvariant)
}

func TestSuiteFitness_WeakMutationCoverage(t *testing.T) {
	f := newFixture(t)

	factory, err := NewGoalFactory(CriterionWeakMutation, f.registry)
	require.NoError(t, err)

	fitness := NewSuiteFitness(factory, f.evaluator, f.runner, nil, 2)

	// Only id is called: every classify mutant is untouched and contributes 1.
	untouched := f.suite(f.test(call("id", 1)))

	value, err := fitness.Fitness(context.Background(), untouched)
	require.NoError(t, err)
	assert.Equal(t, 18.0, value)
	assert.Zero(t, untouched.Coverage())

	covering := f.suite(f.test(call("classify", 0, 3)), f.test(call("classify", 5, 3)))

	value, err = fitness.Fitness(context.Background(), covering)
	require.NoError(t, err)
	assert.Less(t, value, 18.0)
	assert.Positive(t, covering.NumOfCoveredGoals())
	assert.InDelta(t, float64(covering.NumOfCoveredGoals())/18.0, covering.Coverage(), 1e-12)
}
