package coverage

import (
	"fmt"
	"slices"
	"sync"

	m "evogen.dev/pkg/evogen/internal/model"
)

// Branch is a registered predicate together with its place in the control
// dependence tree.
type Branch struct {
	m.PredicateSpec
	Class  string
	Method string
	// Depth is 1 for predicates without a parent.
	Depth int
}

// Registry is the per-run pool of branches, methods and mutants derived from
// one target. It replaces process wide pools: every search owns its
// registry, and Reset rebuilds it from the target.
type Registry struct {
	mu sync.RWMutex

	target    m.Target
	branches  map[int]Branch
	mutations map[int]m.Mutation
	byMethod  map[string][]int
}

// NewRegistry validates target and registers its branches and mutants.
func NewRegistry(target m.Target) (*Registry, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}

	r := &Registry{target: target}
	r.Reset()

	return r, nil
}

// Reset drops every registration and derives them again from the target.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.branches = map[int]Branch{}
	r.mutations = map[int]m.Mutation{}
	r.byMethod = map[string][]int{}

	for _, method := range r.target.Methods {
		for _, p := range method.Predicates {
			depth := 1
			if p.Parent != 0 {
				depth = r.branches[p.Parent].Depth + 1
			}

			r.branches[p.ID] = Branch{PredicateSpec: p, Class: r.target.Class, Method: method.Name, Depth: depth}
		}
	}

	r.registerMutants()
}

func (r *Registry) registerMutants() {
	nextID := 1
	add := func(mu m.Mutation) {
		mu.ID = nextID
		nextID++
		r.mutations[mu.ID] = mu

		key := m.MethodKey(mu.Class, mu.Method)
		r.byMethod[key] = append(r.byMethod[key], mu.ID)
	}

	for _, method := range r.target.Methods {
		for _, p := range method.Predicates {
			for _, op := range m.RelationalOps {
				if op == p.Op {
					continue
				}

				add(m.Mutation{
					Class: r.target.Class, Method: method.Name, Operator: m.OperatorROR,
					Predicate: p.ID, Return: -1, Replacement: op,
				})
			}
		}

		exprs := make([]string, 0, len(method.Returns)+1)
		for _, ret := range method.Returns {
			exprs = append(exprs, ret.Expr)
		}

		exprs = append(exprs, method.Default)

		for i, s := range exprs {
			e, err := m.ParseExpr(s)
			if err != nil || !e.IsBinary() {
				continue
			}

			index := i
			if i == len(method.Returns) {
				index = -1
			}

			for _, op := range m.ArithmeticOps {
				if op == e.Op {
					continue
				}

				add(m.Mutation{
					Class: r.target.Class, Method: method.Name, Operator: m.OperatorAOR,
					Return: index, Replacement: op,
				})
			}
		}
	}
}

// Target returns the target the registry was built from.
func (r *Registry) Target() m.Target { return r.target }

// Class returns the target class name.
func (r *Registry) Class() string { return r.target.Class }

// Methods returns the target's methods.
func (r *Registry) Methods() []m.MethodSpec { return r.target.Methods }

// Branch returns a registered predicate.
func (r *Registry) Branch(id int) (Branch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.branches[id]

	return b, ok
}

// NumBranches returns the number of registered predicates.
func (r *Registry) NumBranches() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.branches)
}

// Mutation returns a registered mutant.
func (r *Registry) Mutation(id int) (m.Mutation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mu, ok := r.mutations[id]

	return mu, ok
}

// Mutations returns every mutant ordered by id.
func (r *Registry) Mutations() []m.Mutation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]m.Mutation, 0, len(r.mutations))
	for _, mu := range r.mutations {
		all = append(all, mu)
	}

	slices.SortFunc(all, func(a, b m.Mutation) int { return a.ID - b.ID })

	return all
}

// MutationsFor returns the mutants of one method ordered by id.
func (r *Registry) MutationsFor(class, method string) []m.Mutation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byMethod[m.MethodKey(class, method)]
	all := make([]m.Mutation, 0, len(ids))

	for _, id := range ids {
		all = append(all, r.mutations[id])
	}

	return all
}

// NumMutants returns the number of registered mutants.
func (r *Registry) NumMutants() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.mutations)
}

// ClearMutations forgets every mutant.
func (r *Registry) ClearMutations() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mutations = map[int]m.Mutation{}
	r.byMethod = map[string][]int{}
}
