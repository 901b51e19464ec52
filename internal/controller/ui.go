// Package controller provides the output adapters that display goals,
// search progress and reports.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "evogen.dev/pkg/evogen/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeGenerate StartMode = iota
	ModeList
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode      StartMode
	interrupt func()
}

// WithGenerateMode shows live search progress.
func WithGenerateMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeGenerate
	}
}

// WithListMode lists coverage goals.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithViewMode shows stored reports.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// WithInterruptHandler registers fn to run when the user interrupts an
// interactive UI.
func WithInterruptHandler(fn func()) StartOption {
	return func(c *StartConfig) {
		c.interrupt = fn
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeGenerate}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// GoalList is the goals of one criterion.
type GoalList struct {
	Criterion string
	Goals     []m.Goal
}

// UI defines how the workflow reports to the user.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayGoals(ctx context.Context, class string, goals []GoalList)
	DisplaySearchStarted(ctx context.Context, class string, totalGoals int)
	DisplayGeneration(ctx context.Context, class string, stats m.GenerationStats)
	DisplaySearchFinished(ctx context.Context, report m.Report)
	DisplayReports(ctx context.Context, reports []m.Report)
	DisplayDiff(ctx context.Context, diff string)
}

// NewUI returns the interactive TUI on terminals and SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
