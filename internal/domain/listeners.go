package domain

import (
	"context"
	"log/slog"

	"evogen.dev/pkg/evogen/internal/controller"
	"evogen.dev/pkg/evogen/internal/ga"
	m "evogen.dev/pkg/evogen/internal/model"
	"evogen.dev/pkg/evogen/pkg"
)

// ListenerFactory returns a listener for the search of class.
type ListenerFactory func(class string) ga.SearchListener

func statsOf(state ga.SearchState) m.GenerationStats {
	return m.GenerationStats{
		Generation:     state.Generation,
		BestFitness:    state.BestFitness,
		Coverage:       state.Coverage,
		CoveredGoals:   state.CoveredGoals,
		PopulationSize: state.PopulationSize,
		Evaluations:    state.Evaluations,
		Elapsed:        state.Elapsed,
	}
}

// historyListener spills the statistics of every generation to disk.
type historyListener struct {
	ga.NopListener
	spill pkg.FileSpill[m.GenerationStats]
}

func newHistoryListener(dir string) (*historyListener, error) {
	spill, err := pkg.NewFileSpill[m.GenerationStats](dir)
	if err != nil {
		return nil, err
	}

	return &historyListener{spill: spill}, nil
}

// Iteration implements ga.SearchListener.
func (h *historyListener) Iteration(state ga.SearchState) {
	if err := h.spill.Append(statsOf(state)); err != nil {
		slog.Warn("Failed to record generation", "generation", state.Generation, "error", err)
	}
}

// Collect returns the recorded generations in order.
func (h *historyListener) Collect() ([]m.GenerationStats, error) {
	return h.spill.Collect()
}

// Close deletes the spill file.
func (h *historyListener) Close() error {
	return h.spill.Remove()
}

// uiListener forwards progress to the UI.
type uiListener struct {
	ga.NopListener
	ctx   context.Context
	ui    controller.UI
	class string
}

// Iteration implements ga.SearchListener.
func (l *uiListener) Iteration(state ga.SearchState) {
	l.ui.DisplayGeneration(l.ctx, l.class, statsOf(state))
}
