package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "evogen.dev/pkg/evogen/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(2)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

// reservedLines is the header and footer height around scrolled content.
const reservedLines = 6

// TUI implements UI with a Bubble Tea program.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the program in the background.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return errors.New("ui already started")
	}

	cfg := newStartConfig(options)
	t.program = tea.NewProgram(newTUIModel(cfg), tea.WithOutput(t.output), tea.WithContext(ctx))
	t.done = make(chan struct{})

	go func(p *tea.Program, done chan struct{}) {
		defer close(done)

		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			slog.Error("Failed to run TUI", "error", err)
		}
	}(t.program, t.done)

	return nil
}

// Close stops the program and waits for it to exit.
func (t *TUI) Close(_ context.Context) {
	p, done := t.current()
	if p == nil {
		return
	}

	p.Quit()
	<-done

	t.mu.Lock()
	t.program, t.done = nil, nil
	t.mu.Unlock()
}

// Wait blocks until the user quits or ctx is done.
func (t *TUI) Wait(ctx context.Context) {
	p, done := t.current()
	if p == nil {
		return
	}

	p.Send(waitingMsg{})

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (t *TUI) current() (*tea.Program, chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program, t.done
}

func (t *TUI) send(msg tea.Msg) {
	if p, _ := t.current(); p != nil {
		p.Send(msg)
	}
}

// DisplayGoals implements UI.
func (t *TUI) DisplayGoals(_ context.Context, class string, goals []GoalList) {
	t.send(goalsMsg{class: class, goals: goals})
}

// DisplaySearchStarted implements UI.
func (t *TUI) DisplaySearchStarted(_ context.Context, class string, totalGoals int) {
	t.send(searchStartedMsg{class: class, totalGoals: totalGoals})
}

// DisplayGeneration implements UI.
func (t *TUI) DisplayGeneration(_ context.Context, class string, stats m.GenerationStats) {
	t.send(generationMsg{class: class, stats: stats})
}

// DisplaySearchFinished implements UI.
func (t *TUI) DisplaySearchFinished(_ context.Context, report m.Report) {
	t.send(searchFinishedMsg{report: report})
}

// DisplayReports implements UI.
func (t *TUI) DisplayReports(_ context.Context, reports []m.Report) {
	t.send(reportsMsg{reports: reports})
}

// DisplayDiff implements UI.
func (t *TUI) DisplayDiff(_ context.Context, diff string) {
	t.send(diffMsg{diff: diff})
}

type (
	waitingMsg       struct{}
	searchStartedMsg struct {
		class      string
		totalGoals int
	}
	generationMsg struct {
		class string
		stats m.GenerationStats
	}
	searchFinishedMsg struct{ report m.Report }
	goalsMsg          struct {
		class string
		goals []GoalList
	}
	reportsMsg struct{ reports []m.Report }
	diffMsg    struct{ diff string }
)

// tuiModel is the Bubble Tea model behind TUI.
type tuiModel struct {
	mode      StartMode
	interrupt func()

	class       string
	totalGoals  int
	running     bool
	last        m.GenerationStats
	finished    []m.Report
	goals       []GoalList
	goalsClass  string
	reports     []m.Report
	diff        string
	waiting     bool
	interrupted bool

	bar    progress.Model
	height int
	width  int
	offset int
}

func newTUIModel(cfg StartConfig) tuiModel {
	return tuiModel{
		mode:      cfg.mode,
		interrupt: cfg.interrupt,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (tm tuiModel) Init() tea.Cmd {
	return nil
}

func (tm tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		tm.height, tm.width = msg.Height, msg.Width
		tm.bar.Width = max(10, min(60, msg.Width-20))
	case tea.KeyMsg:
		return tm.handleKeyPress(msg)
	case waitingMsg:
		tm.waiting = true
	case searchStartedMsg:
		tm.class, tm.totalGoals = msg.class, msg.totalGoals
		tm.running = true
		tm.last = m.GenerationStats{}
	case generationMsg:
		tm.class = msg.class
		tm.last = msg.stats
	case searchFinishedMsg:
		tm.running = false
		tm.finished = append(tm.finished, msg.report)
	case goalsMsg:
		tm.goalsClass = msg.class
		tm.goals = msg.goals
	case reportsMsg:
		tm.reports = msg.reports
	case diffMsg:
		tm.diff = msg.diff
	}

	return tm, nil
}

func (tm tuiModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if tm.running && tm.interrupt != nil && !tm.interrupted {
			tm.interrupted = true
			tm.interrupt()

			return tm, nil
		}

		return tm, tea.Quit
	case "q", "esc":
		if tm.running {
			return tm, nil
		}

		return tm, tea.Quit
	case "down", "j":
		tm.offset = min(tm.offset+1, tm.maxOffset())
	case "up", "k":
		tm.offset = max(tm.offset-1, 0)
	case "g", "home":
		tm.offset = 0
	case "G", "end":
		tm.offset = tm.maxOffset()
	}

	return tm, nil
}

func (tm tuiModel) visibleLines() int {
	if tm.height == 0 {
		return 0
	}

	return max(1, tm.height-reservedLines)
}

func (tm tuiModel) maxOffset() int {
	visible := tm.visibleLines()
	if visible == 0 {
		return 0
	}

	return max(0, len(tm.contentLines())-visible)
}

func (tm tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("evogen") + labelStyle.Render(" search-based test generation") + "\n\n")

	lines := tm.contentLines()
	if visible := tm.visibleLines(); visible > 0 && len(lines) > visible {
		start := min(tm.offset, len(lines)-visible)
		lines = lines[start : start+visible]
	}

	for _, line := range lines {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(tm.help()) + "\n")

	return b.String()
}

func (tm tuiModel) help() string {
	switch {
	case tm.running && tm.interrupted:
		return "stopping after the current generation..."
	case tm.running:
		return "ctrl+c: stop search"
	case tm.waiting:
		return "↑/k ↓/j: scroll | q: quit"
	}

	return ""
}

func (tm tuiModel) contentLines() []string {
	var lines []string

	switch tm.mode {
	case ModeGenerate:
		for _, r := range tm.finished {
			lines = append(lines, tm.reportLines(r)...)
		}

		if tm.running {
			lines = append(lines, tm.progressLines()...)
		}
	case ModeList:
		lines = append(lines, tm.goalLines()...)
	case ModeView:
		lines = append(lines, tm.reportListLines()...)
		lines = append(lines, tm.diffLines()...)
	}

	return lines
}

func (tm tuiModel) progressLines() []string {
	cov := 0.0
	if tm.totalGoals > 0 {
		cov = float64(tm.last.CoveredGoals) / float64(tm.totalGoals)
	}

	return []string{
		titleStyle.Render(tm.class) + labelStyle.Render(fmt.Sprintf(" generation %d", tm.last.Generation)),
		tm.bar.ViewAs(cov) + fmt.Sprintf(" %d/%d goals", tm.last.CoveredGoals, tm.totalGoals),
		labelStyle.Render(fmt.Sprintf("fitness %.4f | evaluations %d | population %d | %s",
			tm.last.BestFitness, tm.last.Evaluations, tm.last.PopulationSize, tm.last.Elapsed.Round(1e6))),
	}
}

func (tm tuiModel) reportLines(r m.Report) []string {
	style := okStyle
	if r.CoveredGoals < r.TotalGoals {
		style = warnStyle
	}

	lines := []string{
		titleStyle.Render(r.Class) + " " + style.Render(fmt.Sprintf("%.1f%%", r.Coverage()*100)) +
			labelStyle.Render(fmt.Sprintf(" %d/%d goals, %d generations, %s", r.CoveredGoals, r.TotalGoals, r.Generations, r.StopReason)),
	}

	for _, c := range r.Criteria {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("  %-16s %d/%d", c.Name, c.CoveredGoals, c.TotalGoals)))
	}

	for _, test := range r.Tests {
		for _, line := range strings.Split(strings.TrimRight(test.Code, "\n"), "\n") {
			lines = append(lines, codeStyle.Render(line))
		}

		lines = append(lines, "")
	}

	return lines
}

func (tm tuiModel) goalLines() []string {
	if len(tm.goals) == 0 {
		return []string{labelStyle.Render("No goals")}
	}

	lines := []string{titleStyle.Render(tm.goalsClass)}

	for _, list := range tm.goals {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("%s (%d)", list.Criterion, len(list.Goals))))
		for _, g := range list.Goals {
			lines = append(lines, "  "+g.String())
		}
	}

	return lines
}

func (tm tuiModel) reportListLines() []string {
	if len(tm.reports) == 0 {
		return []string{labelStyle.Render("No reports found")}
	}

	lines := make([]string, 0, len(tm.reports))

	for _, r := range tm.reports {
		style := okStyle
		if r.CoveredGoals < r.TotalGoals {
			style = warnStyle
		}

		lines = append(lines, fmt.Sprintf("%s %-16s %s %s",
			labelStyle.Render(shortID(r.RunID)), r.Class, style.Render(fmt.Sprintf("%6.1f%%", r.Coverage()*100)),
			labelStyle.Render(r.StartedAt.Format("2006-01-02 15:04"))))
	}

	return lines
}

func (tm tuiModel) diffLines() []string {
	if tm.diff == "" {
		return nil
	}

	lines := []string{""}

	for _, line := range strings.Split(strings.TrimRight(tm.diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			line = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			line = removedStyle.Render(line)
		}

		lines = append(lines, line)
	}

	return lines
}
