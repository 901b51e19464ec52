package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"evogen.dev/pkg/evogen/internal/adapter"
	"evogen.dev/pkg/evogen/internal/controller"
	"evogen.dev/pkg/evogen/internal/coverage"
	m "evogen.dev/pkg/evogen/internal/model"
)

// ErrNoTargets is returned when the given paths hold no target description.
var ErrNoTargets = errors.New("no targets found")

// ErrNotEnoughReports is returned when a diff has fewer than two reports.
var ErrNotEnoughReports = errors.New("at least two reports are required")

// GenerateArgs contains the arguments for generating tests.
type GenerateArgs struct {
	Paths   []m.Path
	Reports m.Path
	Search  SearchConfig
}

// ListArgs contains the arguments for listing coverage goals.
type ListArgs struct {
	Paths    []m.Path
	Criteria []coverage.Criterion
}

// ViewArgs contains the arguments for viewing reports.
type ViewArgs struct {
	Reports m.Path
	// Class keeps only the reports of one class.
	Class string
	// Diff compares the generated tests of the two latest reports.
	Diff bool
}

// MergeArgs contains the arguments for merging report directories.
type MergeArgs struct {
	Reports m.Path
	Inputs  []m.Path
}

// Workflow defines the test generation use cases.
type Workflow interface {
	Generate(ctx context.Context, args GenerateArgs) error
	ListGoals(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
	Merge(ctx context.Context, args MergeArgs) error
	// Stop ends the running search after its current generation and skips
	// the remaining targets.
	Stop()
}

type workflow struct {
	adapter.TargetAdapter
	adapter.ReportStore
	controller.UI

	snapshots adapter.SnapshotStore
	listeners []ListenerFactory

	mu      sync.Mutex
	current *Search
	stopped bool
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
// snapshots may be nil to disable seeding across runs.
func NewWorkflow(
	targets adapter.TargetAdapter,
	reports adapter.ReportStore,
	snapshots adapter.SnapshotStore,
	ui controller.UI,
	listeners ...ListenerFactory,
) Workflow {
	return &workflow{
		TargetAdapter: targets,
		ReportStore:   reports,
		UI:            ui,
		snapshots:     snapshots,
		listeners:     listeners,
	}
}

type loadedTarget struct {
	path   m.Path
	target m.Target
}

// splitPattern turns "./dir/..." into ("./dir", true).
func splitPattern(p m.Path) (m.Path, bool) {
	s := string(p)

	switch {
	case s == "..." || s == "./...":
		return ".", true
	case strings.HasSuffix(s, "/..."):
		return m.Path(strings.TrimSuffix(s, "/...")), true
	}

	return p, false
}

func (w *workflow) loadTargets(paths []m.Path) ([]loadedTarget, error) {
	if len(paths) == 0 {
		paths = []m.Path{"./..."}
	}

	var targets []loadedTarget

	seen := map[m.Path]struct{}{}

	for _, pattern := range paths {
		root, recursive := splitPattern(pattern)

		found, err := w.FindTargets(root, recursive)
		if err != nil {
			return nil, err
		}

		for _, path := range found {
			if _, ok := seen[path]; ok {
				continue
			}

			seen[path] = struct{}{}

			target, err := w.LoadTarget(path)
			if err != nil {
				slog.Error("Failed to load target", "path", path, "error", err)
				return nil, fmt.Errorf("load target %s: %w", path, err)
			}

			targets = append(targets, loadedTarget{path: path, target: target})
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoTargets, paths)
	}

	return targets, nil
}

func (w *workflow) Generate(ctx context.Context, args GenerateArgs) error {
	targets, err := w.loadTargets(args.Paths)
	if err != nil {
		return err
	}

	if w.snapshots != nil {
		if err := w.snapshots.Init(ctx); err != nil {
			slog.Error("Failed to open snapshot store", "error", err)
			return fmt.Errorf("open snapshot store: %w", err)
		}

		defer func() {
			if err := w.snapshots.Close(); err != nil {
				slog.Warn("Failed to close snapshot store", "error", err)
			}
		}()
	}

	w.mu.Lock()
	w.stopped = false
	w.mu.Unlock()

	if err := w.Start(ctx, controller.WithGenerateMode(), controller.WithInterruptHandler(w.Stop)); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}
	defer w.Close(ctx)

	for _, lt := range targets {
		if w.isStopped() || ctx.Err() != nil {
			slog.Info("Skipping remaining targets", "next", lt.path)
			break
		}

		if err := w.generate(ctx, lt, args); err != nil {
			return err
		}
	}

	w.Wait(ctx)

	return nil
}

func (w *workflow) generate(ctx context.Context, lt loadedTarget, args GenerateArgs) error {
	class := lt.target.Class

	search, err := NewSearch(lt.target, args.Search, w.loadSeeds(ctx, class))
	if err != nil {
		return fmt.Errorf("build search for %s: %w", lt.path, err)
	}

	defer func() {
		if err := search.Close(); err != nil {
			slog.Warn("Failed to release search history", "class", class, "error", err)
		}
	}()

	search.AddListener(&uiListener{ctx: ctx, ui: w.UI, class: class})

	for _, factory := range w.listeners {
		search.AddListener(factory(class))
	}

	w.setCurrent(search)
	defer w.setCurrent(nil)

	w.DisplaySearchStarted(ctx, class, search.TotalGoals())

	report, best, err := search.Run(ctx)
	if err != nil {
		return err
	}

	w.DisplaySearchFinished(ctx, report)

	path, err := w.SaveReport(args.Reports, report)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	slog.Info("Saved report", "class", class, "path", path, "coverage", report.Coverage())

	if w.snapshots != nil {
		snapshot := adapter.NewSnapshot(report.RunID, class, report.Fitness, report.Coverage(), best.TestCases())
		snapshot.CreatedAt = time.Now()

		if err := w.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			slog.Error("Failed to save snapshot", "class", class, "error", err)
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	return nil
}

// loadSeeds returns the tests of the latest snapshot of class. A broken
// snapshot only disables seeding.
func (w *workflow) loadSeeds(ctx context.Context, class string) []m.TestCase {
	if w.snapshots == nil {
		return nil
	}

	snapshot, ok, err := w.snapshots.LatestSnapshot(ctx, class)
	if err != nil {
		slog.Warn("Failed to load snapshot, not seeding", "class", class, "error", err)
		return nil
	}

	if !ok {
		return nil
	}

	slog.Debug("Seeding from snapshot", "class", class, "snapshot", snapshot.ID, "tests", len(snapshot.Tests))

	return snapshot.Tests
}

func (w *workflow) setCurrent(s *Search) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.current = s
	if s != nil && w.stopped {
		s.Stop()
	}
}

func (w *workflow) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stopped
}

func (w *workflow) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.current != nil {
		slog.Info("Stopping search", "class", w.current.Class())
		w.current.Stop()
	}
}

func (w *workflow) ListGoals(ctx context.Context, args ListArgs) error {
	targets, err := w.loadTargets(args.Paths)
	if err != nil {
		return err
	}

	criteria := args.Criteria
	if len(criteria) == 0 {
		criteria = coverage.Criteria()
	}

	if err := w.Start(ctx, controller.WithListMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}
	defer w.Close(ctx)

	for _, lt := range targets {
		lists, err := goalLists(lt.target, criteria)
		if err != nil {
			return fmt.Errorf("list goals of %s: %w", lt.path, err)
		}

		w.DisplayGoals(ctx, lt.target.Class, lists)
	}

	w.Wait(ctx)

	return nil
}

func goalLists(target m.Target, criteria []coverage.Criterion) ([]controller.GoalList, error) {
	registry, err := coverage.NewRegistry(target)
	if err != nil {
		return nil, err
	}

	lists := make([]controller.GoalList, 0, len(criteria))

	for _, criterion := range criteria {
		factory, err := coverage.NewGoalFactory(criterion, registry)
		if err != nil {
			return nil, err
		}

		lists = append(lists, controller.GoalList{Criterion: string(criterion), Goals: factory.Goals()})
	}

	return lists, nil
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	reports, err := w.LoadReports(args.Reports)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}

	if args.Class != "" {
		reports = filterClass(reports, args.Class)
	}

	var diff string

	if args.Diff {
		diff, err = diffLatest(reports)
		if err != nil {
			return err
		}
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}
	defer w.Close(ctx)

	w.DisplayReports(ctx, reports)

	if args.Diff {
		w.DisplayDiff(ctx, diff)
	}

	w.Wait(ctx)

	return nil
}

func filterClass(reports []m.Report, class string) []m.Report {
	filtered := make([]m.Report, 0, len(reports))

	for _, r := range reports {
		if r.Class == class {
			filtered = append(filtered, r)
		}
	}

	return filtered
}

// diffLatest diffs the tests of the two latest reports of the class of the
// latest report. reports are ordered by start time.
func diffLatest(reports []m.Report) (string, error) {
	if len(reports) == 0 {
		return "", ErrNotEnoughReports
	}

	same := filterClass(reports, reports[len(reports)-1].Class)
	if len(same) < 2 {
		return "", fmt.Errorf("%w for %s", ErrNotEnoughReports, reports[len(reports)-1].Class)
	}

	older, newer := same[len(same)-2], same[len(same)-1]

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(testsCode(older)),
		B:        difflib.SplitLines(testsCode(newer)),
		FromFile: "run " + older.RunID,
		ToFile:   "run " + newer.RunID,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diff reports: %w", err)
	}

	return diff, nil
}

func testsCode(r m.Report) string {
	var b strings.Builder

	for i, test := range r.Tests {
		fmt.Fprintf(&b, "// test %d\n%s\n", i, strings.TrimRight(test.Code, "\n"))
	}

	return b.String()
}

func (w *workflow) Merge(ctx context.Context, args MergeArgs) error {
	if len(args.Inputs) == 0 {
		return errors.New("no report directories to merge")
	}

	existing, err := w.LoadReports(args.Reports)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.RunID] = struct{}{}
	}

	var merged []m.Report

	for _, dir := range args.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}

		reports, err := w.LoadReports(dir)
		if err != nil {
			return fmt.Errorf("load reports of %s: %w", dir, err)
		}

		for _, r := range reports {
			if _, ok := seen[r.RunID]; ok {
				continue
			}

			seen[r.RunID] = struct{}{}

			if _, err := w.SaveReport(args.Reports, r); err != nil {
				return fmt.Errorf("save report: %w", err)
			}

			merged = append(merged, r)
		}
	}

	slog.Info("Merged reports", "into", args.Reports, "count", len(merged))

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		return fmt.Errorf("start ui: %w", err)
	}
	defer w.Close(ctx)

	w.DisplayReports(ctx, merged)
	w.Wait(ctx)

	return nil
}
