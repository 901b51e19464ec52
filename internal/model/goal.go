package model

import (
	"cmp"
	"fmt"
	"slices"
)

// GoalKind identifies the coverage criterion a goal belongs to.
type GoalKind int

const (
	// GoalBranch is one outcome of a predicate.
	GoalBranch GoalKind = iota
	// GoalMethod is the root branch of a method without predicates.
	GoalMethod
	// GoalWeakMutation requires a mutant to be reached and infected.
	GoalWeakMutation
	// GoalStrongMutation requires a mutant to be killed.
	GoalStrongMutation
	// GoalInput requires an argument of a given shape.
	GoalInput
	// GoalOutput requires a return value of a given shape.
	GoalOutput
)

var goalKindNames = map[GoalKind]string{
	GoalBranch:         "branch",
	GoalMethod:         "method",
	GoalWeakMutation:   "weak-mutation",
	GoalStrongMutation: "strong-mutation",
	GoalInput:          "input",
	GoalOutput:         "output",
}

func (k GoalKind) String() string {
	if name, ok := goalKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("GoalKind(%d)", int(k))
}

// Goal is the identity of a coverage target. It is comparable and used as a
// map key, so it must never be mutated after creation.
type Goal struct {
	Kind   GoalKind
	Class  string
	Method string

	// Branch goals.
	Predicate int
	Value     bool

	// Mutation goals.
	MutationID int

	// Input and output goals.
	ArgIndex   int
	Type       string
	Descriptor string
}

// MethodKey groups goals by the method they belong to.
func (g Goal) MethodKey() string {
	return MethodKey(g.Class, g.Method)
}

// MethodKey builds the grouping key used for per-method bookkeeping.
func MethodKey(class, method string) string {
	return class + "." + method
}

func (g Goal) String() string {
	switch g.Kind {
	case GoalBranch:
		return fmt.Sprintf("%s.%s: branch %d %t", g.Class, g.Method, g.Predicate, g.Value)
	case GoalMethod:
		return fmt.Sprintf("%s.%s: root branch", g.Class, g.Method)
	case GoalWeakMutation, GoalStrongMutation:
		return fmt.Sprintf("%s.%s: %s %d", g.Class, g.Method, g.Kind, g.MutationID)
	case GoalInput:
		return fmt.Sprintf("%s.%s[%d]:%s:%s", g.Class, g.Method, g.ArgIndex, g.Type, g.Descriptor)
	case GoalOutput:
		return fmt.Sprintf("%s.%s:%s:%s", g.Class, g.Method, g.Type, g.Descriptor)
	}

	return fmt.Sprintf("%s.%s: %s", g.Class, g.Method, g.Kind)
}

// CompareGoals orders goals by class, method, kind and then the
// kind-specific discriminator.
func CompareGoals(a, b Goal) int {
	if c := cmp.Compare(a.Class, b.Class); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Method, b.Method); c != 0 {
		return c
	}

	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}

	switch a.Kind {
	case GoalBranch:
		if c := cmp.Compare(a.Predicate, b.Predicate); c != 0 {
			return c
		}

		return compareBool(a.Value, b.Value)
	case GoalWeakMutation, GoalStrongMutation:
		return cmp.Compare(a.MutationID, b.MutationID)
	case GoalInput, GoalOutput:
		if c := cmp.Compare(a.ArgIndex, b.ArgIndex); c != 0 {
			return c
		}

		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}

		return cmp.Compare(a.Descriptor, b.Descriptor)
	case GoalMethod:
	}

	return 0
}

// SortGoals sorts goals in place using CompareGoals.
func SortGoals(goals []Goal) {
	slices.SortStableFunc(goals, CompareGoals)
}

// false sorts before true.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
