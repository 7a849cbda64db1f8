package rotation

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/seqforge/internal/observability"
	"github.com/danmuck/seqforge/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type scriptedSource struct {
	ints   []int
	floats []float64
	i, f   int
}

func (s *scriptedSource) Intn(n int) int {
	v := s.ints[s.i%len(s.ints)] % n
	s.i++
	return v
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.f%len(s.floats)]
	s.f++
	return v
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recordingSink) Publish(s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func testConfig(labels ...string) Config {
	return Config{Period: 5 * time.Millisecond, Labels: labels}
}

func TestSchedulerScriptedTransitions(t *testing.T) {
	testlog.Start(t)
	sink := &recordingSink{}
	src := &scriptedSource{ints: []int{2, 0, 0, 1}, floats: []float64{0.25}}
	s, err := New(testConfig("a", "b", "c"), sink, WithSource(src))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if s.Active() != "a" {
		t.Fatalf("unexpected initial label: %q", s.Active())
	}

	want := []string{"c", "a", "a", "b"}
	for i, label := range want {
		snap, err := s.Tick()
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if snap.Label != label || s.Active() != label {
			t.Fatalf("tick %d: got %q active %q want %q", i, snap.Label, s.Active(), label)
		}
		if snap.Tick != uint64(i+1) {
			t.Fatalf("tick %d: unexpected counter %d", i, snap.Tick)
		}
		if snap.MetricA != 0.25 || snap.MetricB != 0.25 || snap.MetricC != 0.25 {
			t.Fatalf("tick %d: unexpected metrics %+v", i, snap)
		}
	}
	if sink.count() != len(want) {
		t.Fatalf("sink saw %d snapshots, want %d", sink.count(), len(want))
	}
	if s.Ticks() != uint64(len(want)) {
		t.Fatalf("unexpected tick count: %d", s.Ticks())
	}
}

func TestSchedulerActiveLabelAlwaysMember(t *testing.T) {
	testlog.Start(t)
	labels := []string{"seeding", "expanding", "scoring", "converging", "amplifying"}
	member := make(map[string]bool)
	for _, l := range labels {
		member[l] = true
	}
	sink := &recordingSink{}
	s, err := New(testConfig(labels...), sink, WithSource(rand.New(rand.NewSource(7))))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		snap, err := s.Tick()
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if !member[snap.Label] || !member[s.Active()] {
			t.Fatalf("tick %d: label %q not in list", i, snap.Label)
		}
		seen[snap.Label] = true
	}
	if len(seen) != len(labels) {
		t.Fatalf("uniform selection should reach every label in 500 ticks, saw %v", seen)
	}
}

func TestSchedulerOverridesApplyToTheirLabelOnly(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig("calm", "pinned")
	cfg.Overrides = map[string]Override{
		"pinned": {MetricA: Fixed(0.99), MetricC: Fixed(42)},
	}
	cfg.Metrics = RandomMetrics{A: Range{0, 1}, B: Range{10, 20}, C: Range{0, 1}}
	src := &scriptedSource{ints: []int{1, 0}, floats: []float64{0.5}}
	s, err := New(cfg, &recordingSink{}, WithSource(src))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	pinned, _ := s.Tick()
	if pinned.Label != "pinned" || pinned.MetricA != 0.99 || pinned.MetricB != 15 || pinned.MetricC != 42 {
		t.Fatalf("unexpected pinned snapshot: %+v", pinned)
	}
	calm, _ := s.Tick()
	if calm.Label != "calm" || calm.MetricA != 0.5 || calm.MetricB != 15 || calm.MetricC != 0.5 {
		t.Fatalf("unexpected calm snapshot: %+v", calm)
	}
}

func TestSchedulerSinkFailureDoesNotStopRotation(t *testing.T) {
	testlog.Start(t)
	calls := 0
	sink := SinkFunc(func(s Snapshot) error {
		calls++
		switch calls {
		case 1:
			return errors.New("display offline")
		case 2:
			panic("display crashed")
		}
		return nil
	})
	src := &scriptedSource{ints: []int{0}}
	s, err := New(testConfig("sink.failure"), sink, WithSource(src))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	failures := observability.SinkFailureCount("sink.failure")
	before := testutil.ToFloat64(failures)
	for i := 0; i < 3; i++ {
		snap, err := s.Tick()
		if err != nil {
			t.Fatalf("tick %d returned %v", i, err)
		}
		if snap.Tick != uint64(i+1) {
			t.Fatalf("tick %d: unexpected counter %d", i, snap.Tick)
		}
	}
	if calls != 3 {
		t.Fatalf("sink should be called once per tick, got %d", calls)
	}
	if got := testutil.ToFloat64(failures) - before; got != 2 {
		t.Fatalf("expected 2 recorded sink failures, got %v", got)
	}
	if s.Snapshot().Tick != 3 {
		t.Fatalf("snapshot not replaced after failures: %+v", s.Snapshot())
	}
}

type failingMetrics struct{}

func (failingMetrics) Metrics(string, uint64, Source) (float64, float64, float64, error) {
	return 0, 0, 0, errors.New("no metrics")
}

func TestSchedulerMetricErrorLeavesStateUntouched(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig("a", "b")
	cfg.Initial = "b"
	cfg.Metrics = failingMetrics{}
	sink := &recordingSink{}
	s, err := New(cfg, sink, WithSource(&scriptedSource{ints: []int{0}}))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if _, err := s.Tick(); err == nil {
		t.Fatalf("expected metric error")
	}
	if s.Active() != "b" || s.Ticks() != 0 || sink.count() != 0 {
		t.Fatalf("state changed on failed tick: active=%q ticks=%d published=%d", s.Active(), s.Ticks(), sink.count())
	}
}

func TestSchedulerSnapshotUsesClock(t *testing.T) {
	testlog.Start(t)
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s, err := New(testConfig("a"), &recordingSink{}, WithClock(func() time.Time { return at }))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	snap, _ := s.Tick()
	if !snap.At.Equal(at) {
		t.Fatalf("unexpected timestamp: %v", snap.At)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	testlog.Start(t)
	sink := &recordingSink{}
	s, err := New(testConfig("a", "b", "c"), sink, WithSource(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if !waitForCondition(2*time.Second, 5*time.Millisecond, func() bool { return sink.count() >= 3 }) {
		s.Stop()
		t.Fatalf("scheduler did not tick")
	}
	s.Stop()
	if s.Running() {
		t.Fatalf("scheduler still running after stop")
	}

	// After Stop returns no tick is in flight: the last snapshot is complete and stable.
	published := sink.count()
	last := s.Snapshot()
	if last.Tick != uint64(published) || last.Label == "" {
		t.Fatalf("last snapshot inconsistent: %+v published=%d", last, published)
	}
	time.Sleep(20 * time.Millisecond)
	if sink.count() != published {
		t.Fatalf("ticks continued after stop")
	}
	s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	s.Stop()
}

func TestSchedulerRunStopsOnContext(t *testing.T) {
	testlog.Start(t)
	s, err := New(testConfig("a"), &recordingSink{})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.Ticks() == 0 {
		t.Fatalf("expected at least one tick in 30ms with a 5ms period")
	}
}

func TestNewValidation(t *testing.T) {
	testlog.Start(t)
	sink := &recordingSink{}
	cases := []struct {
		name string
		cfg  Config
		sink Sink
		want error
	}{
		{"nil sink", testConfig("a"), nil, ErrNilSink},
		{"no labels", testConfig(), sink, ErrNoLabels},
		{"blank label", testConfig("a", " "), sink, ErrNoLabels},
		{"duplicate", testConfig("a", "a"), sink, ErrDuplicateLabel},
		{"period", Config{Labels: []string{"a"}}, sink, ErrInvalidPeriod},
		{"initial", Config{Period: time.Second, Labels: []string{"a"}, Initial: "z"}, sink, ErrUnknownLabel},
		{"override", Config{Period: time.Second, Labels: []string{"a"}, Overrides: map[string]Override{"z": {}}}, sink, ErrUnknownLabel},
		{"range", Config{Period: time.Second, Labels: []string{"a"}, Metrics: RandomMetrics{A: Range{2, 1}}}, sink, ErrInvalidRange},
	}
	for _, tc := range cases {
		if _, err := New(tc.cfg, tc.sink); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLabelsAreCopied(t *testing.T) {
	testlog.Start(t)
	in := []string{"a", "b"}
	s, err := New(testConfig(in...), &recordingSink{})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	in[0] = "mutated"
	out := s.Labels()
	out[1] = "mutated"
	if got := s.Labels(); got[0] != "a" || got[1] != "b" {
		t.Fatalf("labels not immutable: %v", got)
	}
}

func waitForCondition(timeout, interval time.Duration, fn func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(interval)
	}
	return fn()
}
