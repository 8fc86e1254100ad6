// Package pricing implements the pricing bounded context: on-chain price
// oracles and the multi-source pricing service built on them.
package pricing

import (
	"context"

	chain "github.com/fd1az/chain-oracles/business/blockchain/app"
	blockchainDI "github.com/fd1az/chain-oracles/business/blockchain/di"
	"github.com/fd1az/chain-oracles/business/pricing/app"
	pricingDI "github.com/fd1az/chain-oracles/business/pricing/di"
	"github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/business/pricing/infra/uniswapv2"
	"github.com/fd1az/chain-oracles/business/pricing/infra/uniswapv3"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/config"
	"github.com/fd1az/chain-oracles/internal/di"
	"github.com/fd1az/chain-oracles/internal/logger"
	"github.com/fd1az/chain-oracles/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// builtOracles keeps the construction error for Startup, since factories cannot fail.
type builtOracles struct {
	oracles []app.PriceOracle
	err     error
}

var oraclesToken = di.NewToken[builtOracles]("pricing:oracles")

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Oracles - private dependency, one per configured source that can run on the network
	di.RegisterToken(c, oraclesToken, func(sr di.ServiceRegistry) builtOracles {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Ethereum.CallTimeout)
		defer cancel()

		oracles, err := BuildOracles(ctx, cfg.Pricing.Sources,
			blockchainDI.GetChainReader(sr), blockchainDI.GetTokenResolver(sr), log)
		return builtOracles{oracles: oracles, err: err}
	})

	// PricingService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)

		svcCfg := app.DefaultServiceConfig()
		svcCfg.CacheTTL = cfg.Pricing.CacheTTL
		svcCfg.CacheSizeMB = cfg.Pricing.CacheSizeMB
		svcCfg.Tolerance = cfg.Pricing.Tolerance

		return app.NewPricingService(di.GetToken(sr, oraclesToken).oracles, svcCfg, log)
	})

	return nil
}

// Startup builds the oracles and fails when no configured source can run on
// the connected network, or when the node could not be reached.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	if built := di.GetToken(mono.Services(), oraclesToken); built.err != nil {
		return built.err
	}

	svc := pricingDI.GetPricingService(mono.Services())
	sources := svc.Sources()
	if len(sources) == 0 {
		network := blockchainDI.GetChainReader(mono.Services()).Network()
		return apperror.New(apperror.CodeNoPriceSource,
			apperror.WithContext(network.String()))
	}

	log.Info(ctx, "pricing module started", "sources", sources)
	return nil
}

// BuildOracles builds the oracles for sources in order. Sources that cannot
// run on the reader's network are skipped; any other failure, such as an
// unreachable node, is returned.
func BuildOracles(ctx context.Context, sources []string, reader chain.ChainReader, tokens chain.TokenResolver, log logger.LoggerInterface) ([]app.PriceOracle, error) {
	oracles := make([]app.PriceOracle, 0, len(sources))
	for _, source := range sources {
		oracle, err := NewOracle(ctx, source, reader, tokens, log)
		if err != nil {
			if !domain.IsConfigurationError(err) {
				return nil, err
			}
			log.Warn(ctx, "price source unavailable, skipping",
				"source", source, "network", reader.Network().String(), "error", err)
			continue
		}
		oracles = append(oracles, oracle)
	}
	return oracles, nil
}

// NewOracle builds the oracle for a configured source name.
func NewOracle(ctx context.Context, source string, reader chain.ChainReader, tokens chain.TokenResolver, log logger.LoggerInterface) (app.PriceOracle, error) {
	switch source {
	case config.SourceUniswapV3:
		return uniswapv3.NewOracle(ctx, reader, tokens, log)
	case config.SourceUniswapV2:
		return uniswapv2.NewOracle(ctx, reader, tokens, uniswapv2.UniswapV2, log)
	case config.SourceSushiswap:
		return uniswapv2.NewOracle(ctx, reader, tokens, uniswapv2.Sushiswap, log)
	default:
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("unknown pricing source "+source))
	}
}

// IsAvailable reports whether source's router is deployed on the reader's network.
func IsAvailable(ctx context.Context, source string, reader chain.ChainReader) (bool, error) {
	switch source {
	case config.SourceUniswapV3:
		return uniswapv3.IsAvailable(ctx, reader)
	case config.SourceUniswapV2:
		return uniswapv2.IsAvailable(ctx, reader, uniswapv2.UniswapV2)
	case config.SourceSushiswap:
		return uniswapv2.IsAvailable(ctx, reader, uniswapv2.Sushiswap)
	default:
		return false, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("unknown pricing source "+source))
	}
}
