// Package watch implements the watch bounded context: a live price board
// refreshed on every chain head.
package watch

import (
	"context"

	blockchainDI "github.com/fd1az/chain-oracles/business/blockchain/di"
	pricingDI "github.com/fd1az/chain-oracles/business/pricing/di"
	"github.com/fd1az/chain-oracles/business/watch/app"
	watchDI "github.com/fd1az/chain-oracles/business/watch/di"
	"github.com/fd1az/chain-oracles/business/watch/domain"
	"github.com/fd1az/chain-oracles/business/watch/infra"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/config"
	"github.com/fd1az/chain-oracles/internal/di"
	"github.com/fd1az/chain-oracles/internal/logger"
	"github.com/fd1az/chain-oracles/internal/monolith"
)

// Module implements the watch bounded context.
type Module struct {
	// Reporter receives the snapshots. Defaults to a console reporter on stdout.
	Reporter app.Reporter
	// Pairs overrides pricing.watch_pairs.
	Pairs []string
}

// RegisterServices registers all watch services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, watchDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		if m.Reporter != nil {
			return m.Reporter
		}
		return infra.NewConsoleReporter(nil)
	})

	di.RegisterToken(c, watchDI.Watcher, func(sr di.ServiceRegistry) *app.Watcher {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		registry := sr.Get(monolith.ServiceAssetRegistry).(*asset.Registry)
		network := blockchainDI.GetChainReader(sr).Network()

		pairs, err := domain.ParsePairs(m.pairs(cfg), registry, network.ChainID())
		if err != nil {
			panic("failed to parse watch pairs: " + err.Error())
		}

		w, err := app.NewWatcher(
			blockchainDI.GetHeadSubscriber(sr),
			pricingDI.GetPricingService(sr),
			watchDI.GetReporter(sr),
			app.WatcherConfig{Pairs: pairs, RefreshTimeout: cfg.Ethereum.CallTimeout * 2},
			log,
		)
		if err != nil {
			panic("failed to create watcher: " + err.Error())
		}
		return w
	})

	return nil
}

// Startup validates the pairs and starts the refresh loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	specs := m.pairs(cfg)
	if len(specs) == 0 {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("no pairs to watch, set pricing.watch_pairs or --pair"))
	}
	network := blockchainDI.GetChainReader(mono.Services()).Network()
	if _, err := domain.ParsePairs(specs, mono.AssetRegistry(), network.ChainID()); err != nil {
		return err
	}

	if err := watchDI.GetWatcher(mono.Services()).Start(ctx); err != nil {
		log.Error(ctx, "failed to start watcher", "error", err)
		return err
	}

	log.Info(ctx, "watch module started", "pairs", specs)
	return nil
}

func (m *Module) pairs(cfg *config.Config) []string {
	if len(m.Pairs) > 0 {
		return m.Pairs
	}
	return cfg.Pricing.WatchPairs
}
