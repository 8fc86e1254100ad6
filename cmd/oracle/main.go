// Package main is the entry point of the chain-oracles CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fd1az/chain-oracles/internal/config"
	"github.com/fd1az/chain-oracles/internal/logger"
	"github.com/fd1az/chain-oracles/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "oracle",
		Short:         "On-chain price oracles and Gnosis Protocol order API client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "Ethereum JSON-RPC HTTP URL")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newPriceCmd(),
		newAvailableCmd(),
		newWatchCmd(),
		newOrdersCmd(),
		newEstimateCmd(),
		newFeeCmd(),
		newTradesCmd(),
		newPlaceOrderCmd(),
		newVersionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "oracle %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}

// loadConfig reads the config file named by --config with the command's flags applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger logs to stderr so command output on stdout stays parseable.
func newLogger(cfg *config.Config, w io.Writer) *logger.Logger {
	if w == nil {
		w = os.Stderr
	}
	return logger.New(w, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, map[string]any{
		"version": version,
	})
}

// startModules dials the node and starts modules in order. The returned
// func closes the node connection.
func startModules(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, modules ...monolith.Module) (monolith.Monolith, func(), error) {
	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := mono.Run(ctx, modules...); err != nil {
		_ = mono.Close()
		return nil, nil, err
	}
	return mono, func() { _ = mono.Close() }, nil
}
