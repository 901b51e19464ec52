// Package model defines the data structures shared by the search engine.
package model

import "fmt"

// MutationOperator names the operator that produced a mutant.
type MutationOperator string

const (
	// OperatorROR replaces a relational operator of a predicate.
	OperatorROR MutationOperator = "ROR"
	// OperatorAOR replaces an arithmetic operator of a return expression.
	OperatorAOR MutationOperator = "AOR"
)

// Mutation is an immutable mutant record. It is registered once in a
// mutation pool and never modified afterwards.
type Mutation struct {
	ID       int
	Class    string
	Method   string
	Operator MutationOperator

	// Predicate is the mutated predicate id for ROR mutants.
	Predicate int
	// Return is the index into the method's returns for AOR mutants; -1
	// addresses the default return expression.
	Return int
	// Replacement is the operator that replaces the original one.
	Replacement string
}

func (mu Mutation) String() string {
	switch mu.Operator {
	case OperatorROR:
		return fmt.Sprintf("%s.%s#%d %s predicate %d -> %s", mu.Class, mu.Method, mu.ID, mu.Operator, mu.Predicate, mu.Replacement)
	case OperatorAOR:
		return fmt.Sprintf("%s.%s#%d %s return %d -> %s", mu.Class, mu.Method, mu.ID, mu.Operator, mu.Return, mu.Replacement)
	}

	return fmt.Sprintf("%s.%s#%d %s", mu.Class, mu.Method, mu.ID, mu.Operator)
}
