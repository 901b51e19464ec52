package adapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	m "evogen.dev/pkg/evogen/internal/model"
)

// reportExtension marks report files inside a reports directory.
const reportExtension = ".json"

// ReportStore persists run reports as one JSON file per run.
type ReportStore interface {
	// SaveReport writes report into dir and returns the file path.
	SaveReport(dir m.Path, report m.Report) (m.Path, error)
	// LoadReports reads every report of dir ordered by start time.
	LoadReports(dir m.Path) ([]m.Report, error)
}

// LocalReportStore implements ReportStore on a SourceFSAdapter.
type LocalReportStore struct {
	fs SourceFSAdapter
}

// NewReportStore constructs a JSON report store.
func NewReportStore(fs SourceFSAdapter) *LocalReportStore {
	return &LocalReportStore{fs: fs}
}

// SaveReport writes <class>-<run id>.json into dir.
func (s *LocalReportStore) SaveReport(dir m.Path, report m.Report) (m.Path, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	name := strings.ToLower(report.Class) + "-" + report.RunID + reportExtension
	path := s.fs.JoinPath(string(dir), name)

	if err := s.fs.WriteFile(path, data, 0o644); err != nil {
		slog.Error("Failed to write report", "path", path, "error", err)
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	return path, nil
}

// LoadReports decodes the reports of dir concurrently. A missing directory
// holds no reports.
func (s *LocalReportStore) LoadReports(dir m.Path) ([]m.Report, error) {
	paths, err := s.fs.FindFiles(dir, false, reportExtension)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list reports in %s: %w", dir, err)
	}

	reports := make([]m.Report, len(paths))

	var g errgroup.Group

	g.SetLimit(8)

	for i, path := range paths {
		g.Go(func() error {
			data, err := s.fs.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read report %s: %w", path, err)
			}

			if err := json.Unmarshal(data, &reports[i]); err != nil {
				return fmt.Errorf("failed to decode report %s: %w", path, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Failed to load reports", "dir", dir, "error", err)
		return nil, err
	}

	slices.SortStableFunc(reports, func(a, b m.Report) int {
		return a.StartedAt.Compare(b.StartedAt)
	})

	return reports, nil
}
