package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Operators understood by target descriptions.
var (
	RelationalOps = []string{"<", "<=", ">", ">=", "==", "!="}
	ArithmeticOps = []string{"+", "-", "*", "/", "%"}
)

// Expr is an operand or a binary arithmetic expression. Tokens are
// separated by blanks: "a", "-3", "a * 2".
type Expr struct {
	Left  string
	Op    string
	Right string
}

// ParseExpr parses s.
func ParseExpr(s string) (Expr, error) {
	fields := strings.Fields(s)

	switch len(fields) {
	case 1:
		return Expr{Left: fields[0]}, nil
	case 3:
		if !slices.Contains(ArithmeticOps, fields[1]) {
			return Expr{}, fmt.Errorf("unknown operator %q in %q", fields[1], s)
		}

		return Expr{Left: fields[0], Op: fields[1], Right: fields[2]}, nil
	}

	return Expr{}, fmt.Errorf("malformed expression %q", s)
}

// IsBinary reports whether the expression applies an operator.
func (e Expr) IsBinary() bool {
	return e.Op != ""
}

func (e Expr) String() string {
	if !e.IsBinary() {
		return e.Left
	}

	return e.Left + " " + e.Op + " " + e.Right
}

// IsLiteral reports whether operand is an integer literal.
func IsLiteral(operand string) bool {
	_, err := strconv.ParseInt(operand, 10, 64)
	return err == nil
}
