package coverage

import (
	m "evogen.dev/pkg/evogen/internal/model"
)

// InputObserver records the shape of every argument passed to the target.
type InputObserver struct {
	target m.Target
}

// NewInputObserver returns an observer for target.
func NewInputObserver(target m.Target) *InputObserver {
	return &InputObserver{target: target}
}

// BeforeStatement records the argument shapes of stmt.
func (o *InputObserver) BeforeStatement(result *m.ExecutionResult, _ int, stmt m.Statement) {
	method, ok := o.target.Method(stmt.Method)
	if !ok || len(method.Params) != len(stmt.Args) {
		return
	}

	for i, p := range method.Params {
		goal := m.Goal{
			Kind: m.GoalInput, Class: o.target.Class, Method: method.Name,
			ArgIndex: i, Type: string(p.Type), Descriptor: Describe(p.Type, stmt.Args[i]),
		}
		result.Trace.InputGoals[goal] = struct{}{}
	}
}

// AfterStatement does nothing.
func (o *InputObserver) AfterStatement(*m.ExecutionResult, int, m.Statement, int64, string) {}

// TestFinished does nothing.
func (o *InputObserver) TestFinished(*m.ExecutionResult) {}

// OutputObserver records the shape of every value returned by the target.
type OutputObserver struct {
	class string
}

// NewOutputObserver returns an observer for target.
func NewOutputObserver(target m.Target) *OutputObserver {
	return &OutputObserver{class: target.Class}
}

// BeforeStatement does nothing.
func (o *OutputObserver) BeforeStatement(*m.ExecutionResult, int, m.Statement) {}

// AfterStatement records the shape of a normally returned value.
func (o *OutputObserver) AfterStatement(result *m.ExecutionResult, _ int, stmt m.Statement, value int64, exception string) {
	if exception != "" {
		return
	}

	goal := m.Goal{
		Kind: m.GoalOutput, Class: o.class, Method: stmt.Method,
		Type: string(m.ParamInt), Descriptor: Describe(m.ParamInt, value),
	}
	result.Trace.OutputGoals[goal] = struct{}{}
}

// TestFinished does nothing.
func (o *OutputObserver) TestFinished(*m.ExecutionResult) {}
