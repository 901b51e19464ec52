package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Statement is a single call of a target method.
type Statement struct {
	Method string  `json:"method"`
	Args   []int64 `json:"args"`
	// PrivateAccess marks a call that reaches a private method reflectively.
	PrivateAccess bool `json:"private_access,omitempty"`
}

// Clone deep-copies the statement.
func (s Statement) Clone() Statement {
	args := make([]int64, len(s.Args))
	copy(args, s.Args)

	return Statement{Method: s.Method, Args: args, PrivateAccess: s.PrivateAccess}
}

// TestCase is an ordered sequence of statements against one class.
type TestCase struct {
	Class      string      `json:"class"`
	Statements []Statement `json:"statements"`
}

// Size is the number of statements.
func (tc TestCase) Size() int {
	return len(tc.Statements)
}

// Clone deep-copies the statements.
func (tc TestCase) Clone() TestCase {
	statements := make([]Statement, len(tc.Statements))
	for i, stmt := range tc.Statements {
		statements[i] = stmt.Clone()
	}

	return TestCase{Class: tc.Class, Statements: statements}
}

// PrivateAccesses counts statements that use reflective private access.
func (tc TestCase) PrivateAccesses() int {
	count := 0

	for _, stmt := range tc.Statements {
		if stmt.PrivateAccess {
			count++
		}
	}

	return count
}

// Code renders the test as readable pseudo code.
func (tc TestCase) Code() string {
	var b strings.Builder

	receiver := "sut"
	fmt.Fprintf(&b, "%s := New%s()\n", receiver, tc.Class)

	for i, stmt := range tc.Statements {
		args := make([]string, len(stmt.Args))
		for j, arg := range stmt.Args {
			args[j] = strconv.FormatInt(arg, 10)
		}

		if stmt.PrivateAccess {
			fmt.Fprintf(&b, "v%d := invokePrivate(%s, %q, %s)\n", i, receiver, stmt.Method, strings.Join(args, ", "))
			continue
		}

		fmt.Fprintf(&b, "v%d := %s.%s(%s)\n", i, receiver, stmt.Method, strings.Join(args, ", "))
	}

	return b.String()
}
