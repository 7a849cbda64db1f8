// Package dynamics holds the scalar maps: contraction toward unity and
// exponential amplification.
//
// The contraction map is
//
//	x_{n+1} = 1 - (1 - x_n) / rate
//
// with fixed point x* = 1. Each step divides the distance to unity by rate, so after
// n steps the distance is (1 - x_0) / rate^n. Converge uses that closed form and
// finds the early-stop step analytically; Trajectory walks the recurrence step by step
// and stops at the same step.
//
// Amplification is
//
//	base × growthBase^(elapsed/cycle) × multiplier × (active/total)
//
// A zero base, multiplier or active count yields 0; any other result that is not a
// finite float64 fails with ErrOverflow.
//
// All functions are pure and validate their inputs before computing.
package dynamics
