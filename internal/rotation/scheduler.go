package rotation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/seqforge/internal/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoLabels       = errors.New("rotation: label list is empty")
	ErrDuplicateLabel = errors.New("rotation: duplicate label")
	ErrUnknownLabel   = errors.New("rotation: unknown label")
	ErrInvalidPeriod  = errors.New("rotation: invalid tick period")
	ErrNilSink        = errors.New("rotation: sink is nil")
	ErrInvalidRange   = errors.New("rotation: invalid metric range")
	ErrAlreadyRunning = errors.New("rotation: scheduler already running")
)

// Source is the randomness used for label selection and metric draws.
// *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// Sink receives each snapshot synchronously before the tick completes.
type Sink interface {
	Publish(Snapshot) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Snapshot) error

func (f SinkFunc) Publish(s Snapshot) error { return f(s) }

// Config is the scheduler's static setup.
type Config struct {
	Period time.Duration
	Labels []string
	// Initial is the active label before the first tick; empty selects Labels[0].
	Initial   string
	Overrides map[string]Override
	// Metrics defaults to DefaultRandomMetrics when nil.
	Metrics MetricSource
}

// Scheduler defaults: five labels rotated every three seconds.
func DefaultConfig() Config {
	return Config{
		Period: 3 * time.Second,
		Labels: []string{"seeding", "expanding", "scoring", "converging", "amplifying"},
	}
}

// Scheduler rotates the active label on a fixed period and publishes snapshots.
type Scheduler struct {
	id        string
	period    time.Duration
	labels    []string
	overrides map[string]Override
	metrics   MetricSource
	sink      Sink
	rng       Source
	now       func() time.Time
	logger    zerolog.Logger

	tickMu sync.Mutex
	tick   atomic.Uint64

	stateMu  sync.RWMutex
	active   string
	snapshot Snapshot

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customizes a Scheduler at construction.
type Option func(*Scheduler)

// WithSource injects the randomness source.
func WithSource(src Source) Option {
	return func(s *Scheduler) {
		if src != nil {
			s.rng = src
		}
	}
}

// WithClock injects the timestamp source for snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New validates cfg and builds a stopped scheduler.
func New(cfg Config, sink Sink, opts ...Option) (*Scheduler, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, cfg.Period)
	}
	labels, err := normalizeLabels(cfg.Labels)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		known[l] = struct{}{}
	}

	initial := strings.TrimSpace(cfg.Initial)
	if initial == "" {
		initial = labels[0]
	}
	if _, ok := known[initial]; !ok {
		return nil, fmt.Errorf("%w: initial %q", ErrUnknownLabel, initial)
	}

	overrides := make(map[string]Override, len(cfg.Overrides))
	for label, o := range cfg.Overrides {
		if _, ok := known[label]; !ok {
			return nil, fmt.Errorf("%w: override for %q", ErrUnknownLabel, label)
		}
		overrides[label] = o
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = DefaultRandomMetrics()
	}
	if v, ok := metrics.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	s := &Scheduler{
		id:        uuid.NewString(),
		period:    cfg.Period,
		labels:    labels,
		overrides: overrides,
		metrics:   metrics,
		sink:      sink,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		logger:    log.Logger,
		active:    initial,
		snapshot:  Snapshot{Label: initial},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("scheduler", s.id).Logger()
	return s, nil
}

func normalizeLabels(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, ErrNoLabels
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, raw := range in {
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, fmt.Errorf("%w: label[%d] is blank", ErrNoLabels, i)
		}
		if _, ok := seen[label]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out, nil
}

// ID is the per-instance run id used in log lines.
func (s *Scheduler) ID() string { return s.id }

func (s *Scheduler) Period() time.Duration { return s.period }

// Labels returns a copy of the fixed label list.
func (s *Scheduler) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Active returns the current label.
func (s *Scheduler) Active() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.active
}

// Snapshot returns the most recently published snapshot.
func (s *Scheduler) Snapshot() Snapshot {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.snapshot
}

// Tick runs one rotation synchronously. A metric-source error aborts the tick
// before any state changes; a sink error is logged and does not.
func (s *Scheduler) Tick() (Snapshot, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := time.Now()
	tick := s.tick.Load() + 1
	label := s.labels[s.rng.Intn(len(s.labels))]

	a, b, c, err := s.metrics.Metrics(label, tick, s.rng)
	if err != nil {
		s.logger.Error().Err(err).Str("label", label).Uint64("tick", tick).Msg("rotation.Scheduler.Tick metrics failed")
		return Snapshot{}, fmt.Errorf("rotation: tick %d metrics for %q: %w", tick, label, err)
	}
	snap := Snapshot{
		Label:   label,
		MetricA: a,
		MetricB: b,
		MetricC: c,
		Tick:    tick,
		At:      s.now(),
	}
	if o, ok := s.overrides[label]; ok {
		o.apply(&snap)
	}

	s.tick.Store(tick)
	s.stateMu.Lock()
	s.active = label
	s.snapshot = snap
	s.stateMu.Unlock()

	if err := s.publish(snap); err != nil {
		observability.RecordSinkFailure(label)
		s.logger.Warn().Err(err).Str("label", label).Uint64("tick", tick).Msg("rotation.Scheduler.Tick sink failed")
	}
	observability.RecordTick(label, time.Since(start))
	s.logger.Debug().
		Str("label", label).
		Uint64("tick", tick).
		Float64("metric_a", snap.MetricA).
		Float64("metric_b", snap.MetricB).
		Float64("metric_c", snap.MetricC).
		Msg("rotation.Scheduler.Tick")
	return snap, nil
}

func (s *Scheduler) publish(snap Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rotation: sink panic: %v", r)
		}
	}()
	return s.sink.Publish(snap)
}

// Run ticks every period until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.logger.Info().
		Dur("period", s.period).
		Int("labels", len(s.labels)).
		Str("active", s.Active()).
		Msg("rotation.Scheduler.Run start")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Uint64("ticks", s.Ticks()).Msg("rotation.Scheduler.Run shutdown")
			return nil
		case <-ticker.C:
			// metric errors are already logged; the rotation keeps going
			_, _ = s.Tick()
		}
	}
}

// Start runs the scheduler in its own goroutine until Stop or ctx cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.runningLocked() {
		return ErrAlreadyRunning
	}
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go func() {
		defer close(done)
		_ = s.Run(runCtx)
	}()
	return nil
}

// Stop cancels a started scheduler and waits for the in-flight tick to finish.
// Safe to call when not running.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

// Running reports whether a started loop is still ticking.
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runningLocked()
}

func (s *Scheduler) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 {
	return s.tick.Load()
}
