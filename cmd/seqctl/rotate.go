package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/danmuck/seqforge/internal/display"
	"github.com/danmuck/seqforge/internal/observability"
	"github.com/danmuck/seqforge/internal/rotation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func runRotate(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("rotate")
	configPath := fs.String("config", "", "config file (toml or yaml)")
	ticks := fs.Uint64("ticks", 0, "stop after n ticks (0 runs until interrupted)")
	period := fs.Duration("period", 0, "tick period override")
	asJSON := fs.Bool("json", false, "also write one JSON snapshot per line to stdout")
	quiet := fs.Bool("quiet", false, "skip the log sink")
	seed := fs.Int64("rng-seed", 0, "seed for label selection and draws (0 uses the clock)")
	gauges := fs.Bool("gauges", false, "mirror snapshots into prometheus gauges on the default registry")
	metricsFile := fs.String("metrics-file", "", "write the default registry in text format to this file on exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	rc, err := cfg.SchedulerConfig(nil)
	if err != nil {
		return err
	}
	if *period > 0 {
		rc.Period = *period
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sinks display.Multi
	if !*quiet {
		sinks = append(sinks, display.NewLogSink(log.Logger))
	}
	if *asJSON {
		sinks = append(sinks, display.NewJSONSink(c.stdout))
	}
	if *gauges {
		g, err := display.NewGaugeSink(prometheus.DefaultRegisterer, "seqforge")
		if err != nil {
			return err
		}
		sinks = append(sinks, g)
	}
	sink := rotation.Sink(sinks)
	if *ticks > 0 {
		limit := *ticks
		sink = rotation.SinkFunc(func(snap rotation.Snapshot) error {
			if snap.Tick > limit {
				return nil
			}
			err := sinks.Publish(snap)
			if snap.Tick >= limit {
				cancel()
			}
			return err
		})
	}

	opts := []rotation.Option{rotation.WithLogger(log.Logger)}
	if *seed != 0 {
		opts = append(opts, rotation.WithSource(rand.New(rand.NewSource(*seed))))
	}
	sched, err := rotation.New(rc, sink, opts...)
	if err != nil {
		return err
	}
	log.Info().
		Str("scheduler", sched.ID()).
		Dur("period", sched.Period()).
		Strs("labels", sched.Labels()).
		Uint64("ticks", *ticks).
		Msg("seqctl.rotate start")

	started := time.Now()
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("rotate: %w", err)
	}
	last := sched.Snapshot()
	log.Info().
		Uint64("ticks", sched.Ticks()).
		Str("active", last.Label).
		Dur("elapsed", time.Since(started)).
		Msg("seqctl.rotate stopped")

	if *metricsFile != "" {
		observability.RegisterMetrics()
		if err := prometheus.WriteToTextfile(*metricsFile, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("rotate: write metrics: %w", err)
		}
		log.Info().Str("path", *metricsFile).Msg("seqctl.rotate metrics written")
	}
	return nil
}
