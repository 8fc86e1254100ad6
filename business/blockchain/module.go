// Package blockchain implements the blockchain bounded context: read-only
// access to contracts on the configured node.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/chain-oracles/business/blockchain/app"
	blockchainDI "github.com/fd1az/chain-oracles/business/blockchain/di"
	"github.com/fd1az/chain-oracles/business/blockchain/infra/ethereum"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/config"
	"github.com/fd1az/chain-oracles/internal/di"
	"github.com/fd1az/chain-oracles/internal/logger"
	"github.com/fd1az/chain-oracles/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.ChainReader, func(sr di.ServiceRegistry) app.ChainReader {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		reader, err := ethereum.NewReader(client, log,
			ethereum.WithCallTimeout(cfg.Ethereum.CallTimeout))
		if err != nil {
			panic("failed to create chain reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, blockchainDI.TokenResolver, func(sr di.ServiceRegistry) app.TokenResolver {
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		registry := sr.Get(monolith.ServiceAssetRegistry).(*asset.Registry)

		resolver, err := ethereum.NewTokenResolver(blockchainDI.GetChainReader(sr), registry, log)
		if err != nil {
			panic("failed to create token resolver: " + err.Error())
		}
		return resolver
	})

	// heads are only consumed by watch, so the subscription starts on demand
	di.RegisterToken(c, blockchainDI.HeadSubscriber, func(sr di.ServiceRegistry) app.HeadSubscriber {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		subCfg := ethereum.DefaultHeadSubscriberConfig(cfg.Ethereum.WSURL)
		if cfg.Pricing.WatchInterval > 0 {
			subCfg.PollInterval = cfg.Pricing.WatchInterval
		}
		sub, err := ethereum.NewHeadSubscriber(subCfg, client, log)
		if err != nil {
			panic("failed to create head subscriber: " + err.Error())
		}
		return sub
	})

	return nil
}

// Startup resolves the network of the configured node. Failing here stops the
// process: nothing in the application works without a reachable node.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	reader := blockchainDI.GetChainReader(mono.Services())
	if connector, ok := reader.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect chain reader", "error", err)
			return err
		}
	}

	log.Info(ctx, "blockchain module started", "network", reader.Network().String())
	return nil
}
