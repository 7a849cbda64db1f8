package rotation

import (
	"fmt"
	"strconv"

	"github.com/danmuck/seqforge/internal/dynamics"
	"github.com/danmuck/seqforge/internal/sequence"
)

// Expander is the sequence generator DerivedMetrics reads from.
// *sequence.Expander and *sequence.CachedExpander satisfy it.
type Expander interface {
	Expand(seed, discriminator string, length int) (sequence.Sequence, error)
}

// DerivedMetrics computes snapshot metrics from the engine instead of random draws:
//
//	MetricA = Score(Expand(label, tick, SequenceLength))
//	MetricB = Converge(Initial, tick, Rate).Value
//	MetricC = Amplify(Amplify, ElapsedUnits = tick mod Horizon) / Scale
type DerivedMetrics struct {
	Expander       Expander
	SequenceLength int
	Converger      dynamics.Converger
	Initial        float64
	Rate           float64
	Amplify        dynamics.AmplifyInput
	// Scale divides the amplification; zero means 1.
	Scale float64
	// Horizon wraps the elapsed tick count so amplification restarts from Base
	// every Horizon ticks. Zero never wraps, and ticks past the float64 range fail.
	Horizon uint64
}

// DefaultDerivedMetrics uses the default expander, golden-ratio contraction from
// 0.777 and a unit amplification that grows by Phi every 12 ticks, restarting
// every 1200 ticks.
func DefaultDerivedMetrics() DerivedMetrics {
	return DerivedMetrics{
		Expander:       sequence.DefaultExpander(),
		SequenceLength: 256,
		Converger:      dynamics.DefaultConverger(),
		Initial:        0.777,
		Rate:           dynamics.Phi,
		Amplify: dynamics.AmplifyInput{
			Base:        1,
			GrowthBase:  dynamics.Phi,
			CycleUnits:  12,
			Multiplier:  1,
			ActiveNodes: 1,
			TotalNodes:  1,
		},
		Scale:   1,
		Horizon: 1200,
	}
}

func (m DerivedMetrics) Validate() error {
	if m.Expander == nil {
		return fmt.Errorf("rotation: derived metrics need an expander")
	}
	if m.SequenceLength <= 0 {
		return fmt.Errorf("%w: %d", sequence.ErrInvalidLength, m.SequenceLength)
	}
	if _, err := m.Converger.Converge(m.Initial, 0, m.Rate); err != nil {
		return err
	}
	if _, err := dynamics.Amplify(m.Amplify); err != nil {
		return err
	}
	if m.Horizon > 0 {
		peak := m.Amplify
		peak.ElapsedUnits = float64(m.Horizon - 1)
		if _, err := dynamics.Amplify(peak); err != nil {
			return fmt.Errorf("rotation: horizon %d: %w", m.Horizon, err)
		}
	}
	if m.Scale < 0 {
		return fmt.Errorf("%w: scale %v", dynamics.ErrInvalidScale, m.Scale)
	}
	return nil
}

// Metrics ignores rng; derived metrics depend only on label and tick.
func (m DerivedMetrics) Metrics(label string, tick uint64, _ Source) (float64, float64, float64, error) {
	seq, err := m.Expander.Expand(label, strconv.FormatUint(tick, 10), m.SequenceLength)
	if err != nil {
		return 0, 0, 0, err
	}
	a, err := sequence.Score(seq)
	if err != nil {
		return 0, 0, 0, err
	}

	conv, err := m.Converger.Converge(m.Initial, int(tick), m.Rate)
	if err != nil {
		return 0, 0, 0, err
	}

	in := m.Amplify
	elapsed := tick
	if m.Horizon > 0 {
		elapsed %= m.Horizon
	}
	in.ElapsedUnits = float64(elapsed)
	c, err := dynamics.Amplify(in)
	if err != nil {
		return 0, 0, 0, err
	}
	if m.Scale > 0 {
		c /= m.Scale
	}
	return a, conv.Value, c, nil
}
