package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/pkg/devtools"
	"github.com/vango-dev/reactive/pkg/instrument"
	"github.com/vango-dev/reactive/pkg/reactive"
)

func serveCmd(a *app) *cobra.Command {
	var (
		port int
		host string
		tick time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the inspector server",
		Long: `Start the inspector server.

The server exposes the live dependency graph at /graph, the diagnostic
codes at /codes, Prometheus metrics at /metrics (when metrics are
enabled) and a WebSocket stream of effect runs, subscriptions and
notifications at /events.

With --tick, a small counter is updated on an interval so the stream has
something to show.

Examples:
  reactive serve
  reactive serve --port=9090 --tick=1s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if port > 0 {
				cfg.Devtools.Port = port
			}
			if host != "" {
				cfg.Devtools.Host = host
			}
			return runServe(cmd.Context(), cfg, a.logger, tick)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from reactive.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from reactive.json)")
	cmd.Flags().DurationVar(&tick, "tick", 0, "Update a demo counter on this interval (0 disables)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, tick time.Duration) error {
	var (
		insts    []reactive.Instrumentation
		gatherer prometheus.Gatherer
	)

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		insts = append(insts, instrument.NewPrometheus(
			instrument.WithNamespace(cfg.Metrics.Namespace),
			instrument.WithRegistry(reg),
		))
		gatherer = reg
	}
	if cfg.Tracing.Enabled {
		insts = append(insts, instrument.NewOpenTelemetry(
			instrument.WithTracerName(cfg.Tracing.TracerName),
		))
	}

	srv := devtools.New(devtools.Options{
		Addr:           cfg.DevtoolsAddress(),
		AllowedOrigins: cfg.Devtools.AllowedOrigins,
		Gatherer:       gatherer,
		Logger:         logger,
	})
	insts = append(insts, srv.Hub())

	prev := reactive.SetInstrumentation(instrument.Multi(insts...))
	defer reactive.SetInstrumentation(prev)

	fmt.Printf("  Inspector: http://%s/graph\n", cfg.DevtoolsAddress())
	fmt.Printf("  Events:    ws://%s/events\n", cfg.DevtoolsAddress())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if tick > 0 {
		done := make(chan struct{})
		go func() {
			defer close(done)
			driveCounter(ctx, tick, logger)
		}()
		defer func() {
			cancel()
			<-done
		}()
	}
	return srv.ListenAndServe(ctx)
}

// driveCounter increments a reactive counter every interval until ctx is
// done. A computed and an effect hang off it so every tick produces a run,
// a recomputation and the matching subscriptions.
func driveCounter(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	raw := map[string]any{"ticks": 0}
	state := reactive.Reactive(raw)
	doubled := reactive.NewComputed(func() int {
		n, _ := state.Get("ticks").(int)
		return n * 2
	})
	runner := reactive.Effect(func() {
		logger.Debug("counter", "ticks", state.Get("ticks"), "doubled", doubled.Value())
	}, reactive.EffectName("counter"))

	defer func() {
		reactive.Stop(runner)
		doubled.Stop()
		reactive.Release(raw)
	}()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, _ := state.Get("ticks").(int)
			if err := state.Set("ticks", n+1); err != nil {
				logger.Warn("counter: write failed", "error", err)
			}
		}
	}
}
