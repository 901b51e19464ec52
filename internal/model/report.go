package model

import "time"

// Report is the outcome of one generation run.
type Report struct {
	RunID     string        `json:"run_id"`
	Class     string        `json:"class"`
	Seed      int64         `json:"seed"`
	Algorithm string        `json:"algorithm"`
	Archive   string        `json:"archive"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Generations        int    `json:"generations"`
	FitnessEvaluations int64  `json:"fitness_evaluations"`
	TestsExecuted      int64  `json:"tests_executed"`
	StatementsExecuted int64  `json:"statements_executed"`
	StopReason         string `json:"stop_reason"`

	TotalGoals   int     `json:"total_goals"`
	CoveredGoals int     `json:"covered_goals"`
	Fitness      float64 `json:"fitness"`

	Criteria []CriterionResult `json:"criteria"`
	Tests    []TestReport      `json:"tests"`
	History  []GenerationStats `json:"history,omitempty"`
}

// Coverage is the share of covered goals over all criteria.
func (r Report) Coverage() float64 {
	if r.TotalGoals == 0 {
		return 1
	}

	return float64(r.CoveredGoals) / float64(r.TotalGoals)
}

// CriterionResult summarizes one coverage criterion.
type CriterionResult struct {
	Name         string  `json:"name"`
	TotalGoals   int     `json:"total_goals"`
	CoveredGoals int     `json:"covered_goals"`
	Coverage     float64 `json:"coverage"`
	Fitness      float64 `json:"fitness"`
}

// TestReport is one generated test with the goals it covers.
type TestReport struct {
	Code         string   `json:"code"`
	Statements   int      `json:"statements"`
	CoveredGoals []string `json:"covered_goals"`
}

// GenerationStats is recorded after every generation.
type GenerationStats struct {
	Generation     int           `json:"generation"`
	BestFitness    float64       `json:"best_fitness"`
	Coverage       float64       `json:"coverage"`
	CoveredGoals   int           `json:"covered_goals"`
	PopulationSize int           `json:"population_size"`
	Evaluations    int64         `json:"evaluations"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Snapshot is the persisted best suite of a run, used to seed later runs.
type Snapshot struct {
	ID            string     `json:"id"`
	Class         string     `json:"class"`
	SchemaVersion int        `json:"schema_version"`
	CodecVersion  int        `json:"codec_version"`
	CreatedAt     time.Time  `json:"created_at"`
	Fitness       float64    `json:"fitness"`
	Coverage      float64    `json:"coverage"`
	Tests         []TestCase `json:"tests"`
}
