package dynamics

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidCycleUnits = errors.New("dynamics: cycle units must be > 0")
	ErrInvalidNodeCount  = errors.New("dynamics: invalid node count")
	ErrInvalidGrowthBase = errors.New("dynamics: growth base must be > 1")
	ErrInvalidScale      = errors.New("dynamics: base and multiplier must be >= 0")
	ErrInvalidElapsed    = errors.New("dynamics: elapsed units must be finite")
	ErrOverflow          = errors.New("dynamics: amplification is not finite")
)

// AmplifyInput holds the terms of one amplification.
type AmplifyInput struct {
	Base         float64
	GrowthBase   float64
	ElapsedUnits float64
	CycleUnits   float64
	Multiplier   float64
	ActiveNodes  int
	TotalNodes   int
}

// Amplify returns Base × GrowthBase^(ElapsedUnits/CycleUnits) × Multiplier × (ActiveNodes/TotalNodes).
func Amplify(in AmplifyInput) (float64, error) {
	if !(in.CycleUnits > 0) || math.IsInf(in.CycleUnits, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidCycleUnits, in.CycleUnits)
	}
	if in.TotalNodes <= 0 {
		return 0, fmt.Errorf("%w: total %d must be > 0", ErrInvalidNodeCount, in.TotalNodes)
	}
	if in.ActiveNodes < 0 || in.ActiveNodes > in.TotalNodes {
		return 0, fmt.Errorf("%w: active %d outside [0,%d]", ErrInvalidNodeCount, in.ActiveNodes, in.TotalNodes)
	}
	if !(in.GrowthBase > 1) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidGrowthBase, in.GrowthBase)
	}
	if math.IsInf(in.GrowthBase, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidGrowthBase, in.GrowthBase)
	}
	if !(in.Base >= 0) || !(in.Multiplier >= 0) || math.IsInf(in.Base, 0) || math.IsInf(in.Multiplier, 0) {
		return 0, fmt.Errorf("%w: base %v multiplier %v", ErrInvalidScale, in.Base, in.Multiplier)
	}
	if math.IsNaN(in.ElapsedUnits) || math.IsInf(in.ElapsedUnits, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidElapsed, in.ElapsedUnits)
	}
	if in.Base == 0 || in.Multiplier == 0 || in.ActiveNodes == 0 {
		return 0, nil
	}

	growth := math.Pow(in.GrowthBase, in.ElapsedUnits/in.CycleUnits)
	share := float64(in.ActiveNodes) / float64(in.TotalNodes)
	v := in.Base * growth * in.Multiplier * share
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: growth %v^(%v/%v)", ErrOverflow, in.GrowthBase, in.ElapsedUnits, in.CycleUnits)
	}
	return v, nil
}
