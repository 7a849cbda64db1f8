package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/seqforge/internal/rotation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// LogSink writes each snapshot as one structured log event.
type LogSink struct {
	Logger zerolog.Logger
	Level  zerolog.Level
}

func NewLogSink(logger zerolog.Logger) LogSink {
	return LogSink{Logger: logger, Level: zerolog.InfoLevel}
}

func (s LogSink) Publish(snap rotation.Snapshot) error {
	s.Logger.WithLevel(s.Level).
		Uint64("tick", snap.Tick).
		Str("label", snap.Label).
		Float64("metric_a", snap.MetricA).
		Float64("metric_b", snap.MetricB).
		Float64("metric_c", snap.MetricC).
		Msg("display.snapshot")
	return nil
}

// JSONSink writes one JSON object per line.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (s *JSONSink) Publish(snap rotation.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(snap); err != nil {
		return fmt.Errorf("display: json encode tick %d: %w", snap.Tick, err)
	}
	return nil
}

// GaugeSink mirrors the latest snapshot into gauges labelled by metric name.
// The active label is exported as a 0/1 gauge per label.
type GaugeSink struct {
	metrics *prometheus.GaugeVec
	active  *prometheus.GaugeVec
	mu      sync.Mutex
	last    string
}

// NewGaugeSink registers its gauges with reg; a nil reg skips registration.
// Gauges already registered under the same names are reused.
func NewGaugeSink(reg prometheus.Registerer, namespace string) (*GaugeSink, error) {
	s := &GaugeSink{
		metrics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "display",
			Name:      "metric",
			Help:      "Latest published snapshot metric values.",
		}, []string{"metric"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "display",
			Name:      "active_label",
			Help:      "1 for the currently active rotation label.",
		}, []string{"label"}),
	}
	if reg != nil {
		var err error
		if s.metrics, err = registerGaugeVec(reg, s.metrics); err != nil {
			return nil, err
		}
		if s.active, err = registerGaugeVec(reg, s.active); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// registerGaugeVec adopts an identical vector already registered with reg, so
// successive sinks in one process share their gauges.
func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	err := reg.Register(vec)
	if err == nil {
		return vec, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("display: register gauges: %w", err)
}

func (s *GaugeSink) Publish(snap rotation.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.WithLabelValues("a").Set(snap.MetricA)
	s.metrics.WithLabelValues("b").Set(snap.MetricB)
	s.metrics.WithLabelValues("c").Set(snap.MetricC)
	if s.last != "" && s.last != snap.Label {
		s.active.WithLabelValues(s.last).Set(0)
	}
	s.active.WithLabelValues(snap.Label).Set(1)
	s.last = snap.Label
	return nil
}

func (s *GaugeSink) Metric(name string) prometheus.Gauge {
	return s.metrics.WithLabelValues(name)
}

func (s *GaugeSink) Active(label string) prometheus.Gauge {
	return s.active.WithLabelValues(label)
}

// Multi publishes to every sink, even after one fails, and joins the errors.
type Multi []rotation.Sink

func (m Multi) Publish(snap rotation.Snapshot) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Publish(snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
