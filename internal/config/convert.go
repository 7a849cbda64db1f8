package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/seqforge/internal/dynamics"
	"github.com/danmuck/seqforge/internal/rotation"
	"github.com/danmuck/seqforge/internal/sequence"
)

// Expander builds the configured generator, wrapped in an LRU when cache_size > 0.
func (c Config) Expander() (rotation.Expander, error) {
	alphabet, err := sequence.NewAlphabet(c.Sequence.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("sequence.alphabet: %w", err)
	}
	h, err := sequence.ParseHash(c.Sequence.Hash)
	if err != nil {
		return nil, fmt.Errorf("sequence.hash: %w", err)
	}
	exp, err := sequence.NewExpander(alphabet, h)
	if err != nil {
		return nil, err
	}
	if c.Sequence.CacheSize <= 0 {
		return exp, nil
	}
	cached, err := sequence.NewCachedExpander(exp, c.Sequence.CacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func (c Config) Converger() dynamics.Converger {
	return dynamics.Converger{Epsilon: c.Converge.Epsilon}
}

// MetricSource builds the scheduler metric source. exp feeds derived metrics;
// nil builds one from the sequence section.
func (c Config) MetricSource(exp rotation.Expander) (rotation.MetricSource, error) {
	switch strings.ToLower(strings.TrimSpace(c.Scheduler.Metrics)) {
	case "", MetricsRandom:
		r := c.Scheduler.Ranges
		m := rotation.RandomMetrics{
			A: rotation.Range{Min: r.MetricA.Min, Max: r.MetricA.Max},
			B: rotation.Range{Min: r.MetricB.Min, Max: r.MetricB.Max},
			C: rotation.Range{Min: r.MetricC.Min, Max: r.MetricC.Max},
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("scheduler.ranges: %w", err)
		}
		return m, nil
	case MetricsDerived:
		if exp == nil {
			var err error
			if exp, err = c.Expander(); err != nil {
				return nil, err
			}
		}
		d := c.Scheduler.Derived
		if d.Horizon < 0 {
			return nil, fmt.Errorf("%w: scheduler.derived.horizon %d must be >= 0", ErrInvalidConfig, d.Horizon)
		}
		m := rotation.DerivedMetrics{
			Expander:       exp,
			SequenceLength: d.SequenceLength,
			Converger:      c.Converger(),
			Initial:        d.Initial,
			Rate:           c.Converge.Rate,
			Amplify: dynamics.AmplifyInput{
				Base:        d.Base,
				GrowthBase:  d.Growth,
				CycleUnits:  d.CycleUnits,
				Multiplier:  d.Multiplier,
				ActiveNodes: d.ActiveNodes,
				TotalNodes:  d.TotalNodes,
			},
			Scale:   d.Scale,
			Horizon: uint64(d.Horizon),
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("scheduler.derived: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: scheduler.metrics %q (expected %s or %s)",
			ErrInvalidConfig, c.Scheduler.Metrics, MetricsRandom, MetricsDerived)
	}
}

// SchedulerConfig converts the scheduler section into rotation.Config.
func (c Config) SchedulerConfig(exp rotation.Expander) (rotation.Config, error) {
	s := c.Scheduler
	if s.PeriodMS <= 0 {
		return rotation.Config{}, fmt.Errorf("%w: scheduler.period_ms %d must be > 0", rotation.ErrInvalidPeriod, s.PeriodMS)
	}
	if len(s.Labels) == 0 {
		return rotation.Config{}, fmt.Errorf("scheduler.labels: %w", rotation.ErrNoLabels)
	}
	known := make(map[string]struct{}, len(s.Labels))
	for i, l := range s.Labels {
		label := strings.TrimSpace(l)
		if label == "" {
			return rotation.Config{}, fmt.Errorf("scheduler.labels[%d]: %w", i, rotation.ErrNoLabels)
		}
		if _, ok := known[label]; ok {
			return rotation.Config{}, fmt.Errorf("scheduler.labels: %w: %q", rotation.ErrDuplicateLabel, label)
		}
		known[label] = struct{}{}
	}
	if initial := strings.TrimSpace(s.Initial); initial != "" {
		if _, ok := known[initial]; !ok {
			return rotation.Config{}, fmt.Errorf("scheduler.initial: %w: %q", rotation.ErrUnknownLabel, initial)
		}
	}
	overrides := make(map[string]rotation.Override, len(s.Overrides))
	for _, o := range s.Overrides {
		label := strings.TrimSpace(o.Label)
		if _, ok := known[label]; !ok {
			return rotation.Config{}, fmt.Errorf("scheduler.overrides: %w: %q", rotation.ErrUnknownLabel, label)
		}
		overrides[label] = rotation.Override{MetricA: o.MetricA, MetricB: o.MetricB, MetricC: o.MetricC}
	}
	metrics, err := c.MetricSource(exp)
	if err != nil {
		return rotation.Config{}, err
	}
	return rotation.Config{
		Period:    time.Duration(s.PeriodMS) * time.Millisecond,
		Labels:    append([]string(nil), s.Labels...),
		Initial:   s.Initial,
		Overrides: overrides,
		Metrics:   metrics,
	}, nil
}
