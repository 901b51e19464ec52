package controller

import (
	"bytes"
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "evogen.dev/pkg/evogen/internal/model"
)

func sampleReport() m.Report {
	return m.Report{
		RunID:        "0b5c1f6e-7a43-4c55-9d3e-1f2a3b4c5d6e",
		Class:        "Triangle",
		StartedAt:    time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		Generations:  12,
		StopReason:   "zero fitness",
		TotalGoals:   5,
		CoveredGoals: 4,
		Fitness:      0.5,
		Criteria: []m.CriterionResult{
			{Name: "branch", TotalGoals: 5, CoveredGoals: 4, Coverage: 0.8, Fitness: 0.5},
		},
		Tests: []m.TestReport{
			{Code: "t := Triangle{}\nt.classify(0, 1)", Statements: 2, CoveredGoals: []string{"Triangle.classify:B1:T"}},
		},
	}
}

func sampleGoals() []GoalList {
	return []GoalList{
		{Criterion: "branch", Goals: []m.Goal{
			{Class: "Triangle", Method: "classify", Kind: m.GoalBranch, Predicate: 1, Value: true},
			{Class: "Triangle", Method: "classify", Kind: m.GoalBranch, Predicate: 1},
		}},
	}
}

func newSimpleUI() (*SimpleUI, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	return NewSimpleUI(cmd), &buf
}

func TestSimpleUI_Displays(t *testing.T) {
	tests := []struct {
		name         string
		display      func(ctx context.Context, ui *SimpleUI)
		wantContains []string
	}{
		{
			name: "goals",
			display: func(ctx context.Context, ui *SimpleUI) {
				ui.DisplayGoals(ctx, "Triangle", sampleGoals())
			},
			wantContains: []string{"Goals of Triangle", "CRITERION", "branch", "classify", "1 CRITERIA", "2 GOALS"},
		},
		{
			name: "search started",
			display: func(ctx context.Context, ui *SimpleUI) {
				ui.DisplaySearchStarted(ctx, "Triangle", 5)
			},
			wantContains: []string{"Generating tests for Triangle (5 goals)"},
		},
		{
			name: "generation",
			display: func(ctx context.Context, ui *SimpleUI) {
				ui.DisplayGeneration(ctx, "Triangle", m.GenerationStats{Generation: 3, BestFitness: 1.25, Coverage: 0.4, CoveredGoals: 2})
			},
			wantContains: []string{"Triangle generation 3", "fitness 1.2500", "coverage 40.0%", "(2 goals)"},
		},
		{
			name: "search finished",
			display: func(ctx context.Context, ui *SimpleUI) {
				ui.DisplaySearchFinished(ctx, sampleReport())
			},
			wantContains: []string{"branch", "80.0%", "TOTAL", "t.classify(0, 1)", "covers 1 goal(s)", "Coverage of Triangle: 80.00% after 12 generations (zero fitness)"},
		},
		{
			name: "reports",
			display: func(ctx context.Context, ui *SimpleUI) {
				ui.DisplayReports(ctx, []m.Report{sampleReport()})
			},
			wantContains: []string{"0b5c1f6e", "Triangle", "2026-03-01 10:30:00", "80.0%", "zero fitness"},
		},
		{
			name: "no reports",
			display: func(ctx context.Context, ui *SimpleUI) {
				ui.DisplayReports(ctx, nil)
			},
			wantContains: []string{"No reports found"},
		},
		{
			name: "diff",
			display: func(ctx context.Context, ui *SimpleUI) {
				ui.DisplayDiff(ctx, "--- a\n+++ b\n-old\n+new\n")
			},
			wantContains: []string{"-old", "+new"},
		},
		{
			name: "empty diff",
			display: func(ctx context.Context, ui *SimpleUI) {
				ui.DisplayDiff(ctx, "")
			},
			wantContains: []string{"No differences"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui, buf := newSimpleUI()
			ctx := context.Background()

			require.NoError(t, ui.Start(ctx))
			tt.display(ctx, ui)
			ui.Wait(ctx)
			ui.Close(ctx)

			got := buf.String()
			for _, want := range tt.wantContains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestSimpleUI_CanceledContext(t *testing.T) {
	ui, buf := newSimpleUI()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, ui.Start(ctx), context.Canceled)

	ui.DisplaySearchStarted(ctx, "Triangle", 5)
	ui.DisplaySearchFinished(ctx, sampleReport())
	ui.DisplayDiff(ctx, "")

	assert.Empty(t, buf.String())
}

func TestNewStartConfig(t *testing.T) {
	cfg := newStartConfig(nil)
	assert.Equal(t, ModeGenerate, cfg.mode)
	assert.Nil(t, cfg.interrupt)

	called := false
	cfg = newStartConfig([]StartOption{WithViewMode(), WithInterruptHandler(func() { called = true })})
	assert.Equal(t, ModeView, cfg.mode)
	require.NotNil(t, cfg.interrupt)

	cfg.interrupt()
	assert.True(t, called)

	assert.Equal(t, ModeList, newStartConfig([]StartOption{WithListMode()}).mode)
	assert.Equal(t, ModeGenerate, newStartConfig([]StartOption{WithListMode(), WithGenerateMode()}).mode)
}

func TestNewUI(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false))
	assert.IsType(t, &TUI{}, NewUI(cmd, true))
	assert.False(t, IsTTY(nil))
}

func TestTUI_NotStarted(t *testing.T) {
	var buf bytes.Buffer

	tui := NewTUI(&buf)
	ctx := context.Background()

	tui.DisplaySearchStarted(ctx, "Triangle", 5)
	tui.DisplayGeneration(ctx, "Triangle", m.GenerationStats{})
	tui.DisplaySearchFinished(ctx, sampleReport())
	tui.Wait(ctx)
	tui.Close(ctx)

	assert.Empty(t, buf.String())
}

func update(t *testing.T, model tuiModel, msgs ...tea.Msg) tuiModel {
	t.Helper()

	for _, msg := range msgs {
		next, _ := model.Update(msg)

		var ok bool
		model, ok = next.(tuiModel)
		require.True(t, ok)
	}

	return model
}

func key(s string) tea.KeyMsg {
	switch s {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}

	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTUIModel_GenerateProgress(t *testing.T) {
	model := update(t, newTUIModel(newStartConfig(nil)),
		searchStartedMsg{class: "Triangle", totalGoals: 5},
		generationMsg{class: "Triangle", stats: m.GenerationStats{Generation: 2, CoveredGoals: 3, BestFitness: 1.5, Evaluations: 150, PopulationSize: 50}},
	)

	assert.True(t, model.running)

	view := model.View()
	assert.Contains(t, view, "Triangle")
	assert.Contains(t, view, "generation 2")
	assert.Contains(t, view, "3/5 goals")
	assert.Contains(t, view, "evaluations 150")
	assert.Contains(t, view, "ctrl+c: stop search")

	model = update(t, model, searchFinishedMsg{report: sampleReport()}, waitingMsg{})

	assert.False(t, model.running)

	view = model.View()
	assert.Contains(t, view, "80.0%")
	assert.Contains(t, view, "t.classify(0, 1)")
	assert.Contains(t, view, "q: quit")
	assert.NotContains(t, view, "generation 2")
}

func TestTUIModel_Interrupt(t *testing.T) {
	stops := 0
	model := newTUIModel(newStartConfig([]StartOption{WithInterruptHandler(func() { stops++ })}))
	model = update(t, model, searchStartedMsg{class: "Triangle", totalGoals: 5})

	next, cmd := model.Update(key("ctrl+c"))
	model = next.(tuiModel)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, stops)
	assert.Contains(t, model.View(), "stopping after the current generation")

	_, cmd = model.Update(key("q"))
	assert.Nil(t, cmd)

	// A second ctrl+c quits without waiting for the search.
	_, cmd = model.Update(key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, stops)
}

func TestTUIModel_QuitWhenIdle(t *testing.T) {
	model := newTUIModel(newStartConfig([]StartOption{WithListMode()}))

	_, cmd := model.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTUIModel_ListAndView(t *testing.T) {
	list := update(t, newTUIModel(newStartConfig([]StartOption{WithListMode()})),
		goalsMsg{class: "Triangle", goals: sampleGoals()})

	view := list.View()
	assert.Contains(t, view, "branch (2)")
	assert.Contains(t, view, sampleGoals()[0].Goals[0].String())

	empty := newTUIModel(newStartConfig([]StartOption{WithViewMode()}))
	assert.Contains(t, empty.View(), "No reports found")

	reports := update(t, empty, reportsMsg{reports: []m.Report{sampleReport()}}, diffMsg{diff: "-old\n+new\n"})

	view = reports.View()
	assert.Contains(t, view, "0b5c1f6e")
	assert.Contains(t, view, "-old")
	assert.Contains(t, view, "+new")
}

func TestTUIModel_Scroll(t *testing.T) {
	goals := make([]m.Goal, 30)
	for i := range goals {
		goals[i] = m.Goal{Class: "Triangle", Method: "classify", Kind: m.GoalWeakMutation, MutationID: i + 1}
	}

	model := update(t, newTUIModel(newStartConfig([]StartOption{WithListMode()})),
		goalsMsg{class: "Triangle", goals: []GoalList{{Criterion: "weakmutation", Goals: goals}}},
		tea.WindowSizeMsg{Width: 80, Height: 16},
	)

	assert.Equal(t, 10, model.visibleLines())
	assert.Equal(t, 22, model.maxOffset())
	assert.Contains(t, model.View(), "Triangle")

	model = update(t, model, key("down"), key("j"))
	assert.Equal(t, 2, model.offset)
	assert.NotContains(t, model.View(), "weakmutation (30)")

	model = update(t, model, key("G"))
	assert.Equal(t, 22, model.offset)

	model = update(t, model, key("G"), key("down"))
	assert.Equal(t, 22, model.offset)

	model = update(t, model, key("k"), key("g"))
	assert.Equal(t, 0, model.offset)
	assert.Contains(t, model.View(), "weakmutation (30)")
}
