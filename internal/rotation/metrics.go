package rotation

import (
	"fmt"
	"math"
	"time"
)

// Snapshot is the metric bundle published on each tick.
type Snapshot struct {
	Label   string    `json:"label"`
	MetricA float64   `json:"metric_a"`
	MetricB float64   `json:"metric_b"`
	MetricC float64   `json:"metric_c"`
	Tick    uint64    `json:"tick"`
	At      time.Time `json:"at"`
}

// Override pins metrics to fixed values for one label; nil fields keep the drawn value.
type Override struct {
	MetricA *float64
	MetricB *float64
	MetricC *float64
}

func (o Override) apply(s *Snapshot) {
	if o.MetricA != nil {
		s.MetricA = *o.MetricA
	}
	if o.MetricB != nil {
		s.MetricB = *o.MetricB
	}
	if o.MetricC != nil {
		s.MetricC = *o.MetricC
	}
}

// Fixed returns a pointer for Override fields.
func Fixed(v float64) *float64 {
	return &v
}

// MetricSource computes the three metrics for a label on a given tick.
type MetricSource interface {
	Metrics(label string, tick uint64, rng Source) (a, b, c float64, err error)
}

// Range is a closed interval for uniform draws.
type Range struct {
	Min float64
	Max float64
}

func (r Range) validate(name string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) || r.Min > r.Max {
		return fmt.Errorf("%w: %s [%v,%v]", ErrInvalidRange, name, r.Min, r.Max)
	}
	return nil
}

func (r Range) draw(rng Source) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// RandomMetrics draws each metric uniformly from its range.
type RandomMetrics struct {
	A Range
	B Range
	C Range
}

// DefaultRandomMetrics draws every metric from [0,1].
func DefaultRandomMetrics() RandomMetrics {
	unit := Range{Min: 0, Max: 1}
	return RandomMetrics{A: unit, B: unit, C: unit}
}

func (m RandomMetrics) Validate() error {
	if err := m.A.validate("metric_a"); err != nil {
		return err
	}
	if err := m.B.validate("metric_b"); err != nil {
		return err
	}
	return m.C.validate("metric_c")
}

// Metrics draws A, B and C in that order.
func (m RandomMetrics) Metrics(_ string, _ uint64, rng Source) (float64, float64, float64, error) {
	return m.A.draw(rng), m.B.draw(rng), m.C.draw(rng), nil
}
