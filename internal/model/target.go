package model

import (
	"errors"
	"fmt"
	"slices"
)

// Path represents a file system path.
type Path string

// ParamType is the declared type of a method parameter.
type ParamType string

const (
	// ParamInt is a 64-bit signed integer parameter.
	ParamInt ParamType = "int"
	// ParamBool is a boolean parameter encoded as 0 or 1.
	ParamBool ParamType = "bool"
)

// Target describes the unit under test.
type Target struct {
	Class   string       `yaml:"class" json:"class"`
	Methods []MethodSpec `yaml:"methods" json:"methods"`
}

// Method returns the method with the given name.
func (t Target) Method(name string) (MethodSpec, bool) {
	for _, method := range t.Methods {
		if method.Name == name {
			return method, true
		}
	}

	return MethodSpec{}, false
}

// MethodSpec describes one method of the target.
type MethodSpec struct {
	Name       string          `yaml:"name" json:"name"`
	Private    bool            `yaml:"private,omitempty" json:"private,omitempty"`
	Params     []ParamSpec     `yaml:"params" json:"params"`
	Predicates []PredicateSpec `yaml:"predicates,omitempty" json:"predicates,omitempty"`
	Returns    []ReturnSpec    `yaml:"returns,omitempty" json:"returns,omitempty"`
	Default    string          `yaml:"default" json:"default"`
}

// ParamSpec describes one parameter.
type ParamSpec struct {
	Name string    `yaml:"name" json:"name"`
	Type ParamType `yaml:"type" json:"type"`
}

// PredicateSpec is a binary comparison guarding two branches. A predicate
// with a parent is only reached when the parent took Branch.
type PredicateSpec struct {
	ID     int    `yaml:"id" json:"id"`
	Parent int    `yaml:"parent,omitempty" json:"parent,omitempty"`
	Branch bool   `yaml:"branch,omitempty" json:"branch,omitempty"`
	Left   string `yaml:"left" json:"left"`
	Op     string `yaml:"op" json:"op"`
	Right  string `yaml:"right" json:"right"`
}

// ReturnSpec returns Expr when Predicate was reached and took Branch.
type ReturnSpec struct {
	Predicate int    `yaml:"predicate" json:"predicate"`
	Branch    bool   `yaml:"branch" json:"branch"`
	Expr      string `yaml:"expr" json:"expr"`
}

// Validate checks that the description can be interpreted.
func (t Target) Validate() error {
	if t.Class == "" {
		return errors.New("missing class name")
	}

	names := map[string]struct{}{}
	predicates := map[int]struct{}{}

	for _, method := range t.Methods {
		if method.Name == "" {
			return errors.New("method without name")
		}

		if _, dup := names[method.Name]; dup {
			return fmt.Errorf("duplicate method %q", method.Name)
		}

		names[method.Name] = struct{}{}

		if err := method.validate(predicates); err != nil {
			return fmt.Errorf("method %s: %w", method.Name, err)
		}
	}

	return nil
}

func (ms MethodSpec) validate(seen map[int]struct{}) error {
	params := map[string]struct{}{}

	for _, p := range ms.Params {
		if p.Type != ParamInt && p.Type != ParamBool {
			return fmt.Errorf("parameter %s: unknown type %q", p.Name, p.Type)
		}

		params[p.Name] = struct{}{}
	}

	operand := func(o string) error {
		if _, ok := params[o]; ok || IsLiteral(o) {
			return nil
		}

		return fmt.Errorf("unknown operand %q", o)
	}

	local := map[int]struct{}{}

	for _, p := range ms.Predicates {
		if p.ID <= 0 {
			return fmt.Errorf("predicate id %d must be positive", p.ID)
		}

		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate predicate id %d", p.ID)
		}

		if p.Parent != 0 {
			if _, ok := local[p.Parent]; !ok || p.Parent >= p.ID {
				return fmt.Errorf("predicate %d: parent %d must be an earlier predicate of the same method", p.ID, p.Parent)
			}
		}

		if !slices.Contains(RelationalOps, p.Op) {
			return fmt.Errorf("predicate %d: unknown operator %q", p.ID, p.Op)
		}

		for _, o := range []string{p.Left, p.Right} {
			if err := operand(o); err != nil {
				return fmt.Errorf("predicate %d: %w", p.ID, err)
			}
		}

		seen[p.ID] = struct{}{}
		local[p.ID] = struct{}{}
	}

	exprs := []string{ms.Default}

	for _, r := range ms.Returns {
		if _, ok := local[r.Predicate]; !ok {
			return fmt.Errorf("return guarded by unknown predicate %d", r.Predicate)
		}

		exprs = append(exprs, r.Expr)
	}

	for _, s := range exprs {
		e, err := ParseExpr(s)
		if err != nil {
			return err
		}

		if err := operand(e.Left); err != nil {
			return err
		}

		if e.IsBinary() {
			if err := operand(e.Right); err != nil {
				return err
			}
		}
	}

	return nil
}
