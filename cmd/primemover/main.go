// Command primemover runs a scenario file to completion and prints a
// controller report. It is the kernel's batch-run CLI front end: load a
// scenario, seed one of the built-in models, drive the virtual-time
// controller, report what happened.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/signalsfoundry/primemover/controller"
	"github.com/signalsfoundry/primemover/devi"
	"github.com/signalsfoundry/primemover/internal/logging"
	"github.com/signalsfoundry/primemover/internal/observability"
	"github.com/signalsfoundry/primemover/report"
	"github.com/signalsfoundry/primemover/scenario"
	"github.com/signalsfoundry/primemover/stats"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "primemover",
		Short: "Run discrete-event simulation scenarios against the primemover kernel",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		scenarioPath string
		format       string
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a scenario file, run it to completion, and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, scenarioPath, format, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to a scenario YAML file (required)")
	cmd.Flags().StringVar(&format, "format", "text", "report format: text or json")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address for the run's duration")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

func runScenario(cmd *cobra.Command, scenarioPath, format, metricsAddr string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.NewFromEnv()

	cfg, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}

	seed, ok := models[cfg.Model]
	if !ok {
		return fmt.Errorf("primemover: unknown model %q", cfg.Model)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("primemover: init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := stats.New(reg, stats.WithTracer(otel.Tracer("primemover"), ctx))
	if err != nil {
		return fmt.Errorf("primemover: init stats: %w", err)
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: observability.Handler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
		defer srv.Close()
	}

	d := devi.New(devi.Config{
		Observer:          collector,
		TrackEventSources: cfg.TrackEventSources,
		DebugEvents:       cfg.DebugEvents,
	})

	if end := cfg.EndTime(); !end.IsNever() {
		if err := d.EndSimulationAt(end); err != nil {
			return fmt.Errorf("primemover: scheduling end marker: %w", err)
		}
	}

	summarize, err := seed(d, cfg)
	if err != nil {
		return fmt.Errorf("primemover: seeding model %q: %w", cfg.Model, err)
	}

	log.Info(ctx, "starting run", logging.String("name", cfg.Name), logging.String("model", cfg.Model))

	startTime := d.CurrentTime()
	sim := controller.NewSimulation(d)
	runErr := sim.Run(ctx)

	finalTime := d.CurrentTime()
	rep := report.New(cfg.Name, startTime, finalTime, collector.Snapshot())

	var writeErr error
	switch format {
	case "json":
		writeErr = rep.JSON(cmd.OutOrStdout())
	default:
		writeErr = rep.Text(cmd.OutOrStdout())
		if summarize != nil {
			fmt.Fprintln(cmd.OutOrStdout(), summarize(finalTime))
		}
	}
	if writeErr != nil {
		return fmt.Errorf("primemover: writing report: %w", writeErr)
	}

	return runErr
}
