package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/seqforge/internal/dynamics"
	"github.com/danmuck/seqforge/internal/rotation"
	"github.com/danmuck/seqforge/internal/sequence"
)

var ErrInvalidConfig = errors.New("config: invalid")

const (
	MetricsRandom  = "random"
	MetricsDerived = "derived"
)

// Config is the complete seqforge file configuration.
type Config struct {
	Sequence  SequenceConfig  `toml:"sequence" yaml:"sequence"`
	Converge  ConvergeConfig  `toml:"converge" yaml:"converge"`
	Scheduler SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
}

type SequenceConfig struct {
	Alphabet []string `toml:"alphabet" yaml:"alphabet"`
	Hash     string   `toml:"hash" yaml:"hash"`
	// CacheSize bounds the expansion LRU; zero disables caching.
	CacheSize int `toml:"cache_size" yaml:"cache_size"`
}

type ConvergeConfig struct {
	Epsilon float64 `toml:"epsilon" yaml:"epsilon"`
	Rate    float64 `toml:"rate" yaml:"rate"`
}

type SchedulerConfig struct {
	PeriodMS  int              `toml:"period_ms" yaml:"period_ms"`
	Labels    []string         `toml:"labels" yaml:"labels"`
	Initial   string           `toml:"initial" yaml:"initial"`
	Metrics   string           `toml:"metrics" yaml:"metrics"`
	Ranges    RangesConfig     `toml:"ranges" yaml:"ranges"`
	Derived   DerivedConfig    `toml:"derived" yaml:"derived"`
	Overrides []OverrideConfig `toml:"overrides" yaml:"overrides"`
}

type RangeConfig struct {
	Min float64 `toml:"min" yaml:"min"`
	Max float64 `toml:"max" yaml:"max"`
}

type RangesConfig struct {
	MetricA RangeConfig `toml:"metric_a" yaml:"metric_a"`
	MetricB RangeConfig `toml:"metric_b" yaml:"metric_b"`
	MetricC RangeConfig `toml:"metric_c" yaml:"metric_c"`
}

// DerivedConfig parameterizes the derived metric source.
type DerivedConfig struct {
	SequenceLength int     `toml:"sequence_length" yaml:"sequence_length"`
	Initial        float64 `toml:"initial" yaml:"initial"`
	Base           float64 `toml:"base" yaml:"base"`
	Growth         float64 `toml:"growth" yaml:"growth"`
	CycleUnits     float64 `toml:"cycle_units" yaml:"cycle_units"`
	Multiplier     float64 `toml:"multiplier" yaml:"multiplier"`
	ActiveNodes    int     `toml:"active_nodes" yaml:"active_nodes"`
	TotalNodes     int     `toml:"total_nodes" yaml:"total_nodes"`
	Scale          float64 `toml:"scale" yaml:"scale"`
	// Horizon restarts amplification every n ticks; 0 never restarts.
	Horizon int `toml:"horizon" yaml:"horizon"`
}

// OverrideConfig pins metrics for one label; absent metrics keep the drawn value.
type OverrideConfig struct {
	Label   string   `toml:"label" yaml:"label"`
	MetricA *float64 `toml:"metric_a,omitempty" yaml:"metric_a,omitempty"`
	MetricB *float64 `toml:"metric_b,omitempty" yaml:"metric_b,omitempty"`
	MetricC *float64 `toml:"metric_c,omitempty" yaml:"metric_c,omitempty"`
}

// Default returns a complete configuration matching the library defaults.
func Default() Config {
	rot := rotation.DefaultConfig()
	random := rotation.DefaultRandomMetrics()
	derived := rotation.DefaultDerivedMetrics()
	alphabet := sequence.DefaultAlphabet
	symbols := make([]string, 0, sequence.AlphabetSize)
	for _, b := range alphabet {
		symbols = append(symbols, string(b))
	}
	return Config{
		Sequence: SequenceConfig{
			Alphabet:  symbols,
			Hash:      string(sequence.DefaultHash),
			CacheSize: 128,
		},
		Converge: ConvergeConfig{
			Epsilon: dynamics.MachineEpsilon,
			Rate:    dynamics.Phi,
		},
		Scheduler: SchedulerConfig{
			PeriodMS: int(rot.Period.Milliseconds()),
			Labels:   append([]string(nil), rot.Labels...),
			Metrics:  MetricsRandom,
			Ranges: RangesConfig{
				MetricA: RangeConfig{Min: random.A.Min, Max: random.A.Max},
				MetricB: RangeConfig{Min: random.B.Min, Max: random.B.Max},
				MetricC: RangeConfig{Min: random.C.Min, Max: random.C.Max},
			},
			Derived: DerivedConfig{
				SequenceLength: derived.SequenceLength,
				Initial:        derived.Initial,
				Base:           derived.Amplify.Base,
				Growth:         derived.Amplify.GrowthBase,
				CycleUnits:     derived.Amplify.CycleUnits,
				Multiplier:     derived.Amplify.Multiplier,
				ActiveNodes:    derived.Amplify.ActiveNodes,
				TotalNodes:     derived.Amplify.TotalNodes,
				Scale:          derived.Scale,
				Horizon:        int(derived.Horizon),
			},
			Overrides: []OverrideConfig{},
		},
	}
}

// Validate checks every section by building the runtime values it describes.
func Validate(cfg Config) error {
	if cfg.Sequence.CacheSize < 0 {
		return fmt.Errorf("%w: sequence.cache_size %d must be >= 0", ErrInvalidConfig, cfg.Sequence.CacheSize)
	}
	if cfg.Converge.Epsilon < 0 {
		return fmt.Errorf("%w: converge.epsilon %v must be >= 0", ErrInvalidConfig, cfg.Converge.Epsilon)
	}
	if _, err := cfg.Expander(); err != nil {
		return err
	}
	if _, err := cfg.Converger().Converge(0.5, 0, cfg.Converge.Rate); err != nil {
		return fmt.Errorf("converge.rate: %w", err)
	}
	seen := make(map[string]struct{}, len(cfg.Scheduler.Overrides))
	for i, o := range cfg.Scheduler.Overrides {
		label := strings.TrimSpace(o.Label)
		if label == "" {
			return fmt.Errorf("%w: scheduler.overrides[%d] missing label", ErrInvalidConfig, i)
		}
		if _, ok := seen[label]; ok {
			return fmt.Errorf("%w: scheduler.overrides[%d] duplicates %q", ErrInvalidConfig, i, label)
		}
		if o.MetricA == nil && o.MetricB == nil && o.MetricC == nil {
			return fmt.Errorf("%w: scheduler.overrides[%d] sets no metric", ErrInvalidConfig, i)
		}
		seen[label] = struct{}{}
	}
	if _, err := cfg.SchedulerConfig(nil); err != nil {
		return err
	}
	return nil
}
