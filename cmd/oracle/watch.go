package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fd1az/chain-oracles/business/blockchain"
	"github.com/fd1az/chain-oracles/business/pricing"
	pricingDI "github.com/fd1az/chain-oracles/business/pricing/di"
	"github.com/fd1az/chain-oracles/business/watch"
	watchApp "github.com/fd1az/chain-oracles/business/watch/app"
	watchDI "github.com/fd1az/chain-oracles/business/watch/di"
	"github.com/fd1az/chain-oracles/business/watch/infra"
	"github.com/fd1az/chain-oracles/internal/apm"
	"github.com/fd1az/chain-oracles/internal/config"
	"github.com/fd1az/chain-oracles/internal/health"
	"github.com/fd1az/chain-oracles/internal/logger"
	"github.com/fd1az/chain-oracles/internal/metrics"
	"github.com/fd1az/chain-oracles/internal/monolith"
	"github.com/fd1az/chain-oracles/pkg/ui"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live price board refreshed on every new block",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	cmd.Flags().StringSlice("pair", nil, "pairs to watch as BASE/QUOTE, overrides pricing.watch_pairs")
	cmd.Flags().StringSlice("sources", nil, "source order, overrides pricing.sources")
	cmd.Flags().String("ws", "", "Ethereum WebSocket URL for newHeads, polls over HTTP when empty")
	cmd.Flags().Int("health-port", 0, "health server port, overrides app.health_port")
	cmd.Flags().Bool("cli", false, "print snapshots to stdout instead of the TUI")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cliMode, _ := cmd.Flags().GetBool("cli")

	// In TUI mode, suppress logs
	var w io.Writer = os.Stderr
	if !cliMode {
		w = io.Discard
	}
	log := newLogger(cfg, w)
	defer log.Sync()

	log.Info(ctx, "starting price watch", "environment", cfg.App.Environment)

	stopTelemetry, err := startTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	healthServer := health.NewServer(cfg.App.HealthPort, version, log)
	healthServer.Start(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(shutdownCtx)
	}()

	if cliMode {
		return runWatchCLI(ctx, cfg, log, healthServer)
	}
	return runWatchTUI(ctx, cfg, log, healthServer)
}

// startTelemetry installs the trace and meter providers when telemetry is enabled.
func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	traceProvider, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.Provider(cfg.Telemetry.TraceExporter),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, err
	}

	metricsCfg := metrics.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Prometheus:  true,
	}
	// Metrics follow traces to the collector when it speaks gRPC.
	if apm.Provider(cfg.Telemetry.TraceExporter) == apm.OTLPGRPCProvider {
		metricsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
		metricsCfg.OTLPHeaders = apm.ParseHeaders(cfg.Telemetry.OTLPHeaders)
	}

	meterProvider, err := metrics.NewMetricProvider(ctx, metricsCfg)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, err
	}

	metricsServer := metrics.NewServer(cfg.Telemetry.PrometheusPort, log)
	metricsServer.Start(ctx)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Stop(shutdownCtx)
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

// registerChecks exposes node reachability and pricing sources on /health.
func registerChecks(healthServer *health.Server, mono monolith.Monolith) {
	healthServer.RegisterCheck("node", func(ctx context.Context) (bool, string) {
		n, err := mono.EthClient().BlockNumber(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("block %d", n)
	})
	healthServer.RegisterCheck("pricing", func(ctx context.Context) (bool, string) {
		sources := pricingDI.GetPricingService(mono.Services()).Sources()
		if len(sources) == 0 {
			return false, "no price source"
		}
		return true, fmt.Sprintf("%v", sources)
	})
}

// watchModules lists the modules in dependency order. Pairs come from
// pricing.watch_pairs, which --pair overrides.
func watchModules(reporter watchApp.Reporter) []monolith.Module {
	return []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		&watch.Module{Reporter: reporter},
	}
}

func runWatchCLI(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, healthServer *health.Server) error {
	mono, closeFn, err := startModules(ctx, cfg, log, watchModules(infra.NewConsoleReporter(os.Stdout))...)
	if err != nil {
		return err
	}
	defer closeFn()
	registerChecks(healthServer, mono)

	log.Info(ctx, "all modules started, watching prices")
	<-ctx.Done()
	log.Info(ctx, "shutting down")

	return watchDI.GetWatcher(mono.Services()).Stop()
}

func runWatchTUI(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, healthServer *health.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Channel to receive the start signal from the welcome screen
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := ui.NewProgram(ui.Options{})
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		mono, closeFn, err := startWatchSteps(ctx, cfg, log, infra.NewTUIReporter(p))
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}
		defer closeFn()
		registerChecks(healthServer, mono)

		<-ctx.Done()
		errCh <- watchDI.GetWatcher(mono.Services()).Stop()
	}()

	// Quitting the TUI cancels the watcher
	_, runErr := p.Run()
	cancel()
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		return nil
	}
}

// startWatchSteps starts the modules one at a time so the startup screen can
// show progress.
func startWatchSteps(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, reporter watchApp.Reporter) (monolith.Monolith, func(), error) {
	ui.Send(ui.StartupMsg{Step: ui.StepConfig, Status: ui.StatusConnected})
	ui.Send(ui.StartupMsg{Step: ui.StepNode, Status: ui.StatusConnecting})

	modules := watchModules(reporter)
	steps := []string{ui.StepNode, ui.StepPricing, ui.StepWatcher}

	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		ui.Send(ui.StartupMsg{Step: ui.StepNode, Status: ui.StatusFailed, Message: err.Error()})
		return nil, nil, err
	}

	for i, m := range modules {
		ui.Send(ui.StartupMsg{Step: steps[i], Status: ui.StatusConnecting})
		if err := mono.Run(ctx, m); err != nil {
			ui.Send(ui.StartupMsg{Step: steps[i], Status: ui.StatusFailed, Message: err.Error()})
			_ = mono.Close()
			return nil, nil, err
		}
		ui.Send(ui.StartupMsg{Step: steps[i], Status: ui.StatusConnected})
	}

	return mono, func() { _ = mono.Close() }, nil
}
