package coverage

import (
	"fmt"
	"strings"

	m "evogen.dev/pkg/evogen/internal/model"
)

// Criterion names a family of coverage goals.
type Criterion string

// Supported criteria.
const (
	CriterionBranch         Criterion = "branch"
	CriterionWeakMutation   Criterion = "weak-mutation"
	CriterionStrongMutation Criterion = "strong-mutation"
	CriterionInput          Criterion = "input"
	CriterionOutput         Criterion = "output"
)

// Criteria lists every supported criterion.
func Criteria() []Criterion {
	return []Criterion{CriterionBranch, CriterionWeakMutation, CriterionStrongMutation, CriterionInput, CriterionOutput}
}

// ParseCriteria parses a comma separated list such as "branch,output".
func ParseCriteria(s string) ([]Criterion, error) {
	var criteria []Criterion

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		c := Criterion(part)
		if _, err := NewGoalFactory(c, nil); err != nil {
			return nil, err
		}

		criteria = append(criteria, c)
	}

	if len(criteria) == 0 {
		return nil, fmt.Errorf("no criterion in %q", s)
	}

	return criteria, nil
}

// Shape descriptors of input and output goals.
const (
	Negative = "Negative"
	Zero     = "Zero"
	Positive = "Positive"
	True     = "True"
	False    = "False"
)

// GoalFactory enumerates the goals of one criterion.
type GoalFactory interface {
	Criterion() Criterion
	// Goals returns the goals ordered by class, method and discriminator.
	Goals() []m.Goal
}

type goalFactory struct {
	criterion Criterion
	registry  *Registry
	build     func(*Registry) []m.Goal
}

// NewGoalFactory returns the factory of criterion over registry.
func NewGoalFactory(criterion Criterion, registry *Registry) (GoalFactory, error) {
	builders := map[Criterion]func(*Registry) []m.Goal{
		CriterionBranch:         branchGoals,
		CriterionWeakMutation:   mutationGoals(m.GoalWeakMutation),
		CriterionStrongMutation: mutationGoals(m.GoalStrongMutation),
		CriterionInput:          inputGoals,
		CriterionOutput:         outputGoals,
	}

	build, ok := builders[criterion]
	if !ok {
		return nil, fmt.Errorf("unknown criterion %q", criterion)
	}

	return &goalFactory{criterion: criterion, registry: registry, build: build}, nil
}

func (f *goalFactory) Criterion() Criterion { return f.criterion }

func (f *goalFactory) Goals() []m.Goal {
	goals := f.build(f.registry)
	m.SortGoals(goals)

	return goals
}

// branchGoals returns both outcomes of every predicate and a root goal for
// every method without predicates.
func branchGoals(r *Registry) []m.Goal {
	var goals []m.Goal

	for _, method := range r.Methods() {
		if len(method.Predicates) == 0 {
			goals = append(goals, m.Goal{Kind: m.GoalMethod, Class: r.Class(), Method: method.Name})
			continue
		}

		for _, p := range method.Predicates {
			for _, value := range []bool{true, false} {
				goals = append(goals, m.Goal{Kind: m.GoalBranch, Class: r.Class(), Method: method.Name, Predicate: p.ID, Value: value})
			}
		}
	}

	return goals
}

func mutationGoals(kind m.GoalKind) func(*Registry) []m.Goal {
	return func(r *Registry) []m.Goal {
		var goals []m.Goal

		for _, mu := range r.Mutations() {
			goals = append(goals, m.Goal{Kind: kind, Class: mu.Class, Method: mu.Method, MutationID: mu.ID})
		}

		return goals
	}
}

func inputGoals(r *Registry) []m.Goal {
	var goals []m.Goal

	for _, method := range r.Methods() {
		for i, p := range method.Params {
			for _, d := range descriptors(p.Type) {
				goals = append(goals, m.Goal{
					Kind: m.GoalInput, Class: r.Class(), Method: method.Name,
					ArgIndex: i, Type: string(p.Type), Descriptor: d,
				})
			}
		}
	}

	return goals
}

func outputGoals(r *Registry) []m.Goal {
	var goals []m.Goal

	for _, method := range r.Methods() {
		for _, d := range descriptors(m.ParamInt) {
			goals = append(goals, m.Goal{
				Kind: m.GoalOutput, Class: r.Class(), Method: method.Name,
				Type: string(m.ParamInt), Descriptor: d,
			})
		}
	}

	return goals
}

func descriptors(typ m.ParamType) []string {
	if typ == m.ParamBool {
		return []string{True, False}
	}

	return []string{Negative, Zero, Positive}
}

// Describe returns the shape descriptor of a runtime value.
func Describe(typ m.ParamType, value int64) string {
	if typ == m.ParamBool {
		if value != 0 {
			return True
		}

		return False
	}

	switch {
	case value < 0:
		return Negative
	case value == 0:
		return Zero
	}

	return Positive
}
