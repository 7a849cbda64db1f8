package dynamics

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidRate       = errors.New("dynamics: rate must be > 1")
	ErrInvalidInitial    = errors.New("dynamics: initial must be in (0,1)")
	ErrInvalidIterations = errors.New("dynamics: iterations must be >= 0")
	ErrTrajectoryTooLong = errors.New("dynamics: trajectory too long")
)

// MaxTrajectorySteps bounds the steps a trajectory materializes after the
// epsilon stop is applied.
const MaxTrajectorySteps = 1 << 20

// Phi is the golden ratio, the conventional contraction rate.
const Phi = 1.618033988749895

// MachineEpsilon is the gap between 1.0 and the next float64.
var MachineEpsilon = math.Nextafter(1, 2) - 1

// ConvergenceResult is the state of the contraction when iteration stopped.
type ConvergenceResult struct {
	Value      float64
	Iterations int
	// Precision is the remaining distance to unity, 1 - Value.
	Precision float64
}

// Converger runs the contraction with an early-stop threshold.
type Converger struct {
	// Epsilon stops iteration once the distance to unity drops below it.
	// Zero or negative selects MachineEpsilon.
	Epsilon float64
}

// DefaultConverger stops at machine epsilon.
func DefaultConverger() Converger {
	return Converger{Epsilon: MachineEpsilon}
}

// Converge runs the default converger.
func Converge(initial float64, iterations int, rate float64) (ConvergenceResult, error) {
	return DefaultConverger().Converge(initial, iterations, rate)
}

// Converge applies up to iterations steps. Iterations in the result is the step
// count actually applied: the first step whose distance falls below Epsilon ends
// the run, however many steps were requested.
func (c Converger) Converge(initial float64, iterations int, rate float64) (ConvergenceResult, error) {
	if err := validate(initial, iterations, rate); err != nil {
		return ConvergenceResult{}, err
	}
	d0 := 1 - initial
	steps := iterations
	if k := stepsBelow(d0, rate, c.epsilon()); k < steps {
		steps = k
	}
	d := distanceAfter(d0, rate, steps)
	return ConvergenceResult{
		Value:      1 - d,
		Iterations: steps,
		Precision:  d,
	}, nil
}

func (c Converger) epsilon() float64 {
	if c.Epsilon > 0 && !math.IsInf(c.Epsilon, 0) {
		return c.Epsilon
	}
	return MachineEpsilon
}

// Trajectory runs the default converger's trajectory.
func Trajectory(initial float64, n int, rate float64) ([]float64, error) {
	return DefaultConverger().Trajectory(initial, n, rate)
}

// Trajectory returns x_0 through x_k of the recurrence, where k is the step count
// Converge would report for the same arguments. Runs longer than
// MaxTrajectorySteps fail with ErrTrajectoryTooLong instead of allocating.
func (c Converger) Trajectory(initial float64, n int, rate float64) ([]float64, error) {
	if err := validate(initial, n, rate); err != nil {
		return nil, err
	}
	steps := n
	if k := stepsBelow(1-initial, rate, c.epsilon()); k < steps {
		steps = k
	}
	if steps > MaxTrajectorySteps {
		return nil, fmt.Errorf("%w: %d steps exceeds %d", ErrTrajectoryTooLong, steps, MaxTrajectorySteps)
	}
	trajectory := make([]float64, 0, steps+1)
	x := initial
	trajectory = append(trajectory, x)
	for i := 0; i < steps; i++ {
		x = 1 - (1-x)/rate
		trajectory = append(trajectory, x)
	}
	return trajectory, nil
}

func validate(initial float64, iterations int, rate float64) error {
	if !(rate > 1) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	if !(initial > 0 && initial < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidInitial, initial)
	}
	if iterations < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterations, iterations)
	}
	return nil
}

func distanceAfter(d0, rate float64, steps int) float64 {
	return d0 / math.Pow(rate, float64(steps))
}

// stepsBelow returns the smallest k with d0/rate^k < eps.
func stepsBelow(d0, rate, eps float64) int {
	if d0 < eps {
		return 0
	}
	est := math.Floor(math.Log(d0/eps)/math.Log(rate)) + 1
	if est >= float64(math.MaxInt) {
		return math.MaxInt
	}
	k := int(est)
	for k > 0 && distanceAfter(d0, rate, k-1) < eps {
		k--
	}
	for k < math.MaxInt && distanceAfter(d0, rate, k) >= eps {
		k++
	}
	return k
}
