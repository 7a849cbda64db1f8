package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danmuck/seqforge/internal/dynamics"
	"github.com/danmuck/seqforge/internal/rotation"
	"github.com/danmuck/seqforge/internal/sequence"
	"github.com/danmuck/seqforge/internal/testutil/testlog"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	testlog.Start(t)
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadTOMLDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "seqforge.toml", `
[sequence]
hash = "blake2b"

[scheduler]
period_ms = 250
labels = ["red", "green", "blue"]
initial = "green"

[[scheduler.overrides]]
label = "blue"
metric_b = 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Sequence.Hash != "blake2b" {
		t.Fatalf("unexpected hash: %q", cfg.Sequence.Hash)
	}
	if !reflect.DeepEqual(cfg.Sequence.Alphabet, []string{"A", "T", "C", "G"}) {
		t.Fatalf("alphabet should keep default: %v", cfg.Sequence.Alphabet)
	}
	if cfg.Sequence.CacheSize != Default().Sequence.CacheSize {
		t.Fatalf("cache size should keep default: %d", cfg.Sequence.CacheSize)
	}
	if len(cfg.Scheduler.Overrides) != 1 || cfg.Scheduler.Overrides[0].MetricA != nil {
		t.Fatalf("unexpected overrides: %+v", cfg.Scheduler.Overrides)
	}
	if got := *cfg.Scheduler.Overrides[0].MetricB; got != 0.5 {
		t.Fatalf("unexpected metric_b override: %v", got)
	}

	rc, err := cfg.SchedulerConfig(nil)
	if err != nil {
		t.Fatalf("scheduler config: %v", err)
	}
	if rc.Period != 250*time.Millisecond || rc.Initial != "green" {
		t.Fatalf("unexpected scheduler config: %+v", rc)
	}
	if _, ok := rc.Overrides["blue"]; !ok {
		t.Fatalf("expected blue override")
	}
	if _, ok := rc.Metrics.(rotation.RandomMetrics); !ok {
		t.Fatalf("expected random metrics, got %T", rc.Metrics)
	}
}

func TestLoadYAMLDerivedMetrics(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "seqforge.yaml", `
sequence:
  alphabet: ["0", "1", "2", "3"]
  cache_size: 0
scheduler:
  metrics: derived
  derived:
    sequence_length: 32
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	exp, err := cfg.Expander()
	if err != nil {
		t.Fatalf("expander: %v", err)
	}
	if _, ok := exp.(*sequence.Expander); !ok {
		t.Fatalf("cache_size 0 should build an uncached expander, got %T", exp)
	}
	seq, err := exp.Expand("genesis", "forward", 8)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	for i := 0; i < seq.Len(); i++ {
		if c := seq.At(i); c < '0' || c > '3' {
			t.Fatalf("symbol %q outside configured alphabet", c)
		}
	}

	src, err := cfg.MetricSource(exp)
	if err != nil {
		t.Fatalf("metric source: %v", err)
	}
	derived, ok := src.(rotation.DerivedMetrics)
	if !ok {
		t.Fatalf("expected derived metrics, got %T", src)
	}
	if derived.SequenceLength != 32 || derived.Initial != Default().Scheduler.Derived.Initial || derived.Horizon != 1200 {
		t.Fatalf("unexpected derived metrics: %+v", derived)
	}
}

func TestCachedExpanderSelected(t *testing.T) {
	testlog.Start(t)
	exp, err := Default().Expander()
	if err != nil {
		t.Fatalf("expander: %v", err)
	}
	if _, ok := exp.(*sequence.CachedExpander); !ok {
		t.Fatalf("default should build a cached expander, got %T", exp)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	for name, content := range map[string]string{
		"bad.toml": "[sequence]\nhahs = \"sha256\"\n",
		"bad.yaml": "sequence:\n  hahs: sha256\n",
	} {
		if _, err := Load(writeFile(t, name, content)); err == nil {
			t.Fatalf("%s: expected unknown key error", name)
		}
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name    string
		content string
		want    error
	}{
		{"hash.toml", "[sequence]\nhash = \"md5\"\n", sequence.ErrUnknownHash},
		{"alphabet.toml", "[sequence]\nalphabet = [\"A\", \"A\", \"C\", \"G\"]\n", sequence.ErrInvalidAlphabet},
		{"period.toml", "[scheduler]\nperiod_ms = 0\n", rotation.ErrInvalidPeriod},
		{"labels.toml", "[scheduler]\nlabels = [\"a\", \"a\"]\n", rotation.ErrDuplicateLabel},
		{"initial.toml", "[scheduler]\ninitial = \"nope\"\n", rotation.ErrUnknownLabel},
		{"override.toml", "[[scheduler.overrides]]\nlabel = \"nope\"\nmetric_a = 1.0\n", rotation.ErrUnknownLabel},
		{"empty-override.toml", "[[scheduler.overrides]]\nlabel = \"seeding\"\n", ErrInvalidConfig},
		{"metrics.toml", "[scheduler]\nmetrics = \"weird\"\n", ErrInvalidConfig},
		{"range.toml", "[scheduler.ranges.metric_a]\nmin = 2.0\nmax = 1.0\n", rotation.ErrInvalidRange},
		{"epsilon.yaml", "converge:\n  epsilon: -1\n", ErrInvalidConfig},
		{"horizon.yaml", "scheduler:\n  metrics: derived\n  derived:\n    horizon: -1\n", ErrInvalidConfig},
		{"horizon-overflow.yaml", "scheduler:\n  metrics: derived\n  derived:\n    horizon: 100000\n", dynamics.ErrOverflow},
	}
	for _, tc := range cases {
		_, err := Load(writeFile(t, tc.name, tc.content))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(writeFile(t, "seqforge.ini", "")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	testlog.Start(t)
	for _, format := range []Format{FormatTOML, FormatYAML} {
		path := filepath.Join(t.TempDir(), "seqforge."+string(format))
		if err := WriteTemplate(path, format, false); err != nil {
			t.Fatalf("%s: write template: %v", format, err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("%s: load template: %v", format, err)
		}
		if !reflect.DeepEqual(cfg, Default()) {
			t.Fatalf("%s: template round trip mismatch:\n got %+v\nwant %+v", format, cfg, Default())
		}
		if err := WriteTemplate(path, format, false); err == nil {
			t.Fatalf("%s: expected refusal to overwrite", format)
		}
		if err := WriteTemplate(path, format, true); err != nil {
			t.Fatalf("%s: forced overwrite: %v", format, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	testlog.Start(t)
	for raw, want := range map[string]Format{".toml": FormatTOML, "YAML": FormatYAML, "yml": FormatYAML} {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseFormat("json"); err == nil {
		t.Fatalf("expected json to be rejected")
	}
}
