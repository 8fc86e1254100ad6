// Package protocol implements the order protocol bounded context: a client
// for the off-chain order book of the batch-auction settlement contract.
package protocol

import (
	"context"

	blockchainDI "github.com/fd1az/chain-oracles/business/blockchain/di"
	blockchain "github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/business/protocol/app"
	protocolDI "github.com/fd1az/chain-oracles/business/protocol/di"
	"github.com/fd1az/chain-oracles/business/protocol/domain"
	"github.com/fd1az/chain-oracles/business/protocol/infra/gnosis"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/config"
	"github.com/fd1az/chain-oracles/internal/di"
	"github.com/fd1az/chain-oracles/internal/logger"
	"github.com/fd1az/chain-oracles/internal/monolith"
)

// Module implements the protocol bounded context. It needs the blockchain
// module for the network the node is on.
type Module struct{}

// RegisterServices registers the order API client with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, protocolDI.OrderAPI, func(sr di.ServiceRegistry) app.OrderAPI {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		network := blockchainDI.GetChainReader(sr).Network()

		client, err := NewOrderAPI(network, cfg, log)
		if err != nil {
			panic("failed to create order API client: " + err.Error())
		}
		return client
	})
	return nil
}

// Startup checks the node's network has an order API before resolving the client.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	network := blockchainDI.GetChainReader(mono.Services()).Network()
	if _, err := BaseURL(network, mono.Config()); err != nil {
		return err
	}

	protocolDI.GetOrderAPI(mono.Services())
	mono.Logger().Info(ctx, "protocol module started", "network", network.String())
	return nil
}

// BaseURL returns the order API URL for network, honoring the config override.
func BaseURL(network blockchain.Network, cfg *config.Config) (string, error) {
	if cfg.OrderAPI.BaseURL != "" {
		return cfg.OrderAPI.BaseURL, nil
	}
	contracts, known := network.Contracts()
	if !known || contracts.OrderAPIURL == "" {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("order API is not available for network "+network.String()),
			apperror.WithContext(network.String()))
	}
	return contracts.OrderAPIURL, nil
}

// NewOrderAPI builds the order API client for network from config.
func NewOrderAPI(network blockchain.Network, cfg *config.Config, log logger.LoggerInterface) (*gnosis.Client, error) {
	baseURL, err := BaseURL(network, cfg)
	if err != nil {
		return nil, err
	}

	scheme := domain.SchemeEthSign
	if cfg.OrderAPI.SigningScheme != "" {
		if scheme, err = domain.ParseSigningScheme(cfg.OrderAPI.SigningScheme); err != nil {
			return nil, err
		}
	}

	contracts, _ := network.Contracts()
	return gnosis.NewClient(gnosis.Config{
		BaseURL:           baseURL,
		ChainID:           network.ChainID(),
		Settlement:        contracts.Settlement,
		Scheme:            scheme,
		RequestsPerMinute: cfg.OrderAPI.RequestsPerMinute,
		Timeout:           cfg.OrderAPI.RequestTimeout,
	}, log)
}
