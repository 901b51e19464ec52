package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "evogen.dev/pkg/evogen/internal/model"
)

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayGoals prints one table row per goal.
func (s *SimpleUI) DisplayGoals(ctx context.Context, class string, goals []GoalList) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Goals of %s\n%s", class, renderGoalsTable(goals))
}

func renderGoalsTable(goals []GoalList) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Criterion", "Method", "Goal"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoMergeCells(true)

	total := 0

	for _, list := range goals {
		for _, g := range list.Goals {
			table.Append([]string{list.Criterion, g.Method, g.String()})
		}

		total += len(list.Goals)
	}

	table.SetFooter([]string{fmt.Sprintf("%d criteria", len(goals)), "", fmt.Sprintf("%d goals", total)})
	table.Render()

	return buf.String()
}

// DisplaySearchStarted announces a search.
func (s *SimpleUI) DisplaySearchStarted(ctx context.Context, class string, totalGoals int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Generating tests for %s (%d goals)\n", class, totalGoals)
}

// DisplayGeneration prints a progress line.
func (s *SimpleUI) DisplayGeneration(ctx context.Context, class string, stats m.GenerationStats) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s generation %d: fitness %.4f, coverage %.1f%% (%d goals)\n",
		class, stats.Generation, stats.BestFitness, stats.Coverage*100, stats.CoveredGoals)
}

// DisplaySearchFinished prints the criteria table and the generated tests.
func (s *SimpleUI) DisplaySearchFinished(ctx context.Context, report m.Report) {
	if ctx.Err() != nil {
		return
	}

	s.printf("\n%s", renderCriteriaTable(report))

	for i, test := range report.Tests {
		s.printf("// test %d covers %d goal(s)\n%s\n", i, len(test.CoveredGoals), test.Code)
	}

	s.printf("Coverage of %s: %.2f%% after %d generations (%s)\n",
		report.Class, report.Coverage()*100, report.Generations, report.StopReason)
}

func renderCriteriaTable(report m.Report) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Criterion", "Goals", "Covered", "Coverage", "Fitness"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for _, c := range report.Criteria {
		table.Append([]string{
			c.Name,
			fmt.Sprintf("%d", c.TotalGoals),
			fmt.Sprintf("%d", c.CoveredGoals),
			formatPercent(c.Coverage),
			fmt.Sprintf("%.4f", c.Fitness),
		})
	}

	table.SetFooter([]string{
		"Total",
		fmt.Sprintf("%d", report.TotalGoals),
		fmt.Sprintf("%d", report.CoveredGoals),
		formatPercent(report.Coverage()),
		fmt.Sprintf("%.4f", report.Fitness),
	})
	table.Render()

	return buf.String()
}

// DisplayReports prints one row per stored report.
func (s *SimpleUI) DisplayReports(ctx context.Context, reports []m.Report) {
	if ctx.Err() != nil {
		return
	}

	if len(reports) == 0 {
		s.printf("No reports found\n")
		return
	}

	s.printf("%s", renderReportsTable(reports))
}

func renderReportsTable(reports []m.Report) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Run", "Class", "Started", "Generations", "Tests", "Coverage", "Stop"})
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, r := range reports {
		table.Append([]string{
			shortID(r.RunID),
			r.Class,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", r.Generations),
			fmt.Sprintf("%d", len(r.Tests)),
			formatPercent(r.Coverage()),
			r.StopReason,
		})
	}

	table.Render()

	return buf.String()
}

// DisplayDiff prints a unified diff.
func (s *SimpleUI) DisplayDiff(ctx context.Context, diff string) {
	if ctx.Err() != nil {
		return
	}

	if strings.TrimSpace(diff) == "" {
		s.printf("No differences\n")
		return
	}

	s.printf("%s", diff)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
