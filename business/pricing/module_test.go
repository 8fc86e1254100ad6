package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/chain-oracles/business/blockchain/chaintest"
	blockchain "github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/business/blockchain/infra/ethereum"
	"github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/config"
	"github.com/fd1az/chain-oracles/internal/logger"
)

func TestNewOracle_BySourceName(t *testing.T) {
	chain := chaintest.New(blockchain.Mainnet)
	contracts, _ := blockchain.Mainnet.Contracts()
	chain.Deploy(contracts.UniswapV3.Router)
	chain.Deploy(contracts.Sushiswap.Router)

	tokens, err := ethereum.NewTokenResolver(chain, asset.DefaultRegistry(), logger.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	o, err := NewOracle(ctx, config.SourceUniswapV3, chain, tokens, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceUniswapV3, o.Name())
	assert.Equal(t, asset.AddrWETHMainnet, o.ReferenceToken())

	o, err = NewOracle(ctx, config.SourceSushiswap, chain, tokens, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSushiswap, o.Name())

	// Uniswap V2 router was not deployed
	_, err = NewOracle(ctx, config.SourceUniswapV2, chain, tokens, logger.NewNop())
	assert.True(t, domain.IsConfigurationError(err))

	_, err = NewOracle(ctx, "curve", chain, tokens, logger.NewNop())
	assert.True(t, domain.IsConfigurationError(err))
}

func TestIsAvailable_BySourceName(t *testing.T) {
	chain := chaintest.New(blockchain.Goerli)
	contracts, _ := blockchain.Goerli.Contracts()
	chain.Deploy(contracts.UniswapV3.Router)
	ctx := context.Background()

	ok, err := IsAvailable(ctx, config.SourceUniswapV3, chain)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsAvailable(ctx, config.SourceSushiswap, chain)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = IsAvailable(ctx, "curve", chain)
	assert.Error(t, err)
}

func TestBuildOracles_SkipsSourcesNotOnNetwork(t *testing.T) {
	chain := chaintest.New(blockchain.Mainnet)
	contracts, _ := blockchain.Mainnet.Contracts()
	chain.Deploy(contracts.UniswapV3.Router)

	tokens, err := ethereum.NewTokenResolver(chain, asset.DefaultRegistry(), logger.NewNop())
	require.NoError(t, err)

	oracles, err := BuildOracles(context.Background(),
		[]string{config.SourceUniswapV2, config.SourceUniswapV3, "curve"}, chain, tokens, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, oracles, 1)
	assert.Equal(t, domain.SourceUniswapV3, oracles[0].Name())
}

func TestBuildOracles_TransportErrorPropagates(t *testing.T) {
	chain := chaintest.New(blockchain.Mainnet)
	contracts, _ := blockchain.Mainnet.Contracts()
	chain.Deploy(contracts.UniswapV3.Router)
	chain.FailTransport(errors.New("dial tcp 127.0.0.1:8545: connection refused"))

	tokens, err := ethereum.NewTokenResolver(chain, asset.DefaultRegistry(), logger.NewNop())
	require.NoError(t, err)

	oracles, err := BuildOracles(context.Background(),
		[]string{config.SourceUniswapV3, config.SourceSushiswap}, chain, tokens, logger.NewNop())
	require.Error(t, err)
	assert.Nil(t, oracles)
	assert.True(t, blockchain.IsTransportError(err))
	assert.False(t, apperror.HasCode(err, apperror.CodeNoPriceSource))
	assert.False(t, domain.IsConfigurationError(err))
}
