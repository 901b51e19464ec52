// Package coverage enumerates coverage goals, scores executions against them
// and aggregates the scores into suite fitness values.
package coverage

import (
	"cmp"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNegativeDistance is returned when a distance below zero is set.
	ErrNegativeDistance = errors.New("negative distance")
	// ErrInvariant reports a violated fitness invariant.
	ErrInvariant = errors.New("fitness invariant violated")
)

// Normalize maps d in [0, +Inf] to [0, 1]. It is strictly increasing and
// below 1 for finite d.
func Normalize(d float64) float64 {
	if math.IsInf(d, 1) {
		return 1
	}

	return d / (d + 1)
}

// ControlFlowDistance is how far an execution was from reaching a point:
// the number of control dependencies missed and the branch distance at the
// one where it diverged.
type ControlFlowDistance struct {
	approachLevel  int
	branchDistance float64
}

// NewControlFlowDistance returns a distance, rejecting negative parts.
func NewControlFlowDistance(approachLevel int, branchDistance float64) (ControlFlowDistance, error) {
	d := ControlFlowDistance{}

	if err := d.SetApproachLevel(approachLevel); err != nil {
		return ControlFlowDistance{}, err
	}

	if err := d.SetBranchDistance(branchDistance); err != nil {
		return ControlFlowDistance{}, err
	}

	return d, nil
}

// ApproachLevel returns the approach level.
func (d ControlFlowDistance) ApproachLevel() int { return d.approachLevel }

// BranchDistance returns the branch distance.
func (d ControlFlowDistance) BranchDistance() float64 { return d.branchDistance }

// SetApproachLevel sets the approach level.
func (d *ControlFlowDistance) SetApproachLevel(level int) error {
	if level < 0 {
		return fmt.Errorf("approach level %d: %w", level, ErrNegativeDistance)
	}

	d.approachLevel = level

	return nil
}

// SetBranchDistance sets the branch distance.
func (d *ControlFlowDistance) SetBranchDistance(distance float64) error {
	if distance < 0 || math.IsNaN(distance) {
		return fmt.Errorf("branch distance %v: %w", distance, ErrNegativeDistance)
	}

	d.branchDistance = distance

	return nil
}

// IncreaseApproachLevel adds one missed dependency.
func (d *ControlFlowDistance) IncreaseApproachLevel() error {
	if d.approachLevel == math.MaxInt {
		return errors.New("approach level overflow")
	}

	d.approachLevel++

	return nil
}

// ResultingBranchFitness is the approach level plus the normalized branch
// distance, so the branch distance never outweighs one approach level.
func (d ControlFlowDistance) ResultingBranchFitness() float64 {
	return float64(d.approachLevel) + Normalize(d.branchDistance)
}

// Compare orders lexicographically by approach level, then branch distance.
func (d ControlFlowDistance) Compare(other ControlFlowDistance) int {
	if c := cmp.Compare(d.approachLevel, other.approachLevel); c != 0 {
		return c
	}

	return cmp.Compare(d.branchDistance, other.branchDistance)
}

func (d ControlFlowDistance) String() string {
	return fmt.Sprintf("%d/%v", d.approachLevel, d.branchDistance)
}
