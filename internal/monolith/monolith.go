// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/config"
	"github.com/fd1az/chain-oracles/internal/di"
	"github.com/fd1az/chain-oracles/internal/logger"
)

// Well-known service names registered by New.
const (
	ServiceConfig        = "config"
	ServiceLogger        = "logger"
	ServiceEthClient     = "ethClient"
	ServiceAssetRegistry = "assetRegistry"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	assetRegistry *asset.Registry
	container     di.Container
}

// New dials the configured node and creates the container with the shared services registered.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	if cfg.Ethereum.HTTPURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("ethereum.http_url is required"))
	}

	ethClient, err := ethclient.DialContext(ctx, cfg.Ethereum.HTTPURL)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(cfg.Ethereum.HTTPURL))
	}

	assetRegistry := asset.DefaultRegistry()
	container := di.NewContainer()

	container.Register(ServiceConfig, cfg)
	container.Register(ServiceLogger, log)
	container.Register(ServiceEthClient, ethClient)
	container.Register(ServiceAssetRegistry, assetRegistry)

	return &app{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		assetRegistry: assetRegistry,
		container:     container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Run registers every module's services, then starts them in order.
func (a *app) Run(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
