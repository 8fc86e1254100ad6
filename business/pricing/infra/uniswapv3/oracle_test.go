package uniswapv3

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/chain-oracles/business/blockchain/chaintest"
	blockchain "github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/business/blockchain/infra/ethereum"
	"github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/logger"
)

var (
	router  = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	factory = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")

	weth = asset.AddrWETHMainnet
	usdc = asset.AddrUSDCMainnet
	dai  = asset.AddrDAIMainnet
	gno  = asset.AddrGNOMainnet

	q96 = new(big.Int).Lsh(big.NewInt(1), 96)
)

type poolKey struct {
	token0, token1 common.Address
	fee            uint32
}

func sortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// fixture is a mainnet-like chain with a Uniswap V3 factory.
type fixture struct {
	chain *chaintest.Chain
	pools map[poolKey]common.Address
	next  int64
}

func newFixture(network blockchain.Network) *fixture {
	f := &fixture{
		chain: chaintest.New(network),
		pools: make(map[poolKey]common.Address),
		next:  0x1000,
	}
	f.chain.Handle(factory, factoryABI, "getPool", func(args []interface{}) ([]interface{}, error) {
		t0, t1 := sortTokens(args[0].(common.Address), args[1].(common.Address))
		fee := uint32(args[2].(*big.Int).Uint64())
		return []interface{}{f.pools[poolKey{t0, t1, fee}]}, nil
	})
	return f
}

func (f *fixture) deployRouter() {
	f.chain.Deploy(router)
}

// addPool creates a pool where one unit of a is worth price units of b.
func (f *fixture) addPool(a common.Address, aDec uint8, b common.Address, bDec uint8, price float64, fee uint32, liquidity int64) common.Address {
	t0, t1 := sortTokens(a, b)
	dec0, dec1 := aDec, bDec
	oneForZero := price
	if t0 != a {
		dec0, dec1 = bDec, aDec
		oneForZero = 1 / price
	}

	f.next++
	pool := common.BigToAddress(big.NewInt(f.next))
	f.pools[poolKey{t0, t1, fee}] = pool

	sqrtP := sqrtPriceX96(oneForZero, dec0, dec1)
	f.chain.Handle(pool, poolABI, "slot0", chaintest.Returns(
		sqrtP, big.NewInt(0), uint16(0), uint16(1), uint16(1), uint8(0), true))
	f.chain.Handle(pool, poolABI, "liquidity", chaintest.Returns(big.NewInt(liquidity)))
	return pool
}

func sqrtPriceX96(price float64, dec0, dec1 uint8) *big.Int {
	raw := new(big.Float).SetPrec(256).SetFloat64(price)
	raw.Mul(raw, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dec1)), nil)))
	raw.Quo(raw, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dec0)), nil)))
	raw.Sqrt(raw)
	raw.Mul(raw, new(big.Float).SetInt(q96))
	out, _ := raw.Int(nil)
	return out
}

func (f *fixture) oracle(t *testing.T, opts ...Option) *Oracle {
	t.Helper()
	tokens, err := ethereum.NewTokenResolver(f.chain, asset.DefaultRegistry(), logger.NewNop())
	require.NoError(t, err)

	o, err := NewOracle(context.Background(), f.chain, tokens, logger.NewNop(), opts...)
	require.NoError(t, err)
	return o
}

func mainnetFixture() *fixture {
	f := newFixture(blockchain.Mainnet)
	f.deployRouter()
	f.addPool(weth, 18, usdc, 6, 3400, FeeTier005, 5_000_000)
	f.addPool(weth, 18, usdc, 6, 3000, FeeTier030, 1_000)
	f.addPool(dai, 18, usdc, 6, 1.0002, FeeTier001, 2_000_000)
	f.addPool(gno, 18, weth, 18, 0.05, FeeTier030, 300_000)
	return f
}

func TestOracle_SameTokenIsOneWithoutCalls(t *testing.T) {
	f := mainnetFixture()
	o := f.oracle(t)
	before := f.chain.Calls()

	for _, token := range []common.Address{weth, usdc, gno, common.HexToAddress("0x1234")} {
		p, err := o.GetPrice(context.Background(), token, token)
		require.NoError(t, err)
		assert.Equal(t, 1.0, p)
	}

	p, err := o.GetPrice(context.Background(), weth)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)

	assert.Equal(t, before, f.chain.Calls())
}

func TestOracle_LessValuableTokenAgainstReference(t *testing.T) {
	o := mainnetFixture().oracle(t)

	p, err := o.GetPrice(context.Background(), gno)
	require.NoError(t, err)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 1.0)
	assert.InDelta(t, 0.05, p, 1e-9)
}

func TestOracle_ReferenceAgainstStable(t *testing.T) {
	o := mainnetFixture().oracle(t)

	p, err := o.GetPrice(context.Background(), weth, usdc)
	require.NoError(t, err)
	// the 0.05% pool is deeper than the 0.30% one
	assert.InDelta(t, 3400, p, 1e-6)

	inv, err := o.GetPrice(context.Background(), usdc)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3400, inv, 1e-12)
}

func TestOracle_StablePairWithDifferentDecimals(t *testing.T) {
	o := mainnetFixture().oracle(t)
	ctx := context.Background()

	p, err := o.GetPrice(ctx, usdc, dai)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p, 0.5)

	p, err = o.GetPrice(ctx, dai, usdc)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p, 0.5)
	assert.InDelta(t, 1.0002, p, 1e-9)
}

func TestOracle_TwoHopThroughReference(t *testing.T) {
	o := mainnetFixture().oracle(t)

	p, err := o.GetPrice(context.Background(), gno, usdc)
	require.NoError(t, err)
	assert.InDelta(t, 170, p, 1e-6)
}

func TestOracle_UnknownToken(t *testing.T) {
	o := mainnetFixture().oracle(t)
	token := common.HexToAddress("0x2f9840a85d5af5bf1d1762f925bdaddc4201f984")

	_, err := o.GetPrice(context.Background(), token)
	require.Error(t, err)
	assert.True(t, domain.IsCannotGetPrice(err))
	assert.Contains(t, err.Error(),
		"Uniswap V3 pool does not exist for "+token.Hex()+" and 0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
}

func TestOracle_UnknownPairNamesBothTokensInOrder(t *testing.T) {
	o := mainnetFixture().oracle(t)
	token := common.HexToAddress("0x2f9840a85d5af5bf1d1762f925bdaddc4201f984")

	_, err := o.GetPrice(context.Background(), usdc, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool does not exist for "+usdc.Hex()+" and "+token.Hex())
}

func TestOracle_EmptyPool(t *testing.T) {
	f := mainnetFixture()
	f.addPool(dai, 18, weth, 18, 0.0003, FeeTier030, 0)
	o := f.oracle(t)

	_, err := o.GetPrice(context.Background(), dai)
	require.Error(t, err)
	assert.True(t, domain.IsCannotGetPrice(err))
	assert.Contains(t, err.Error(), "Uniswap V3 pool does not have liquidity for "+dai.Hex()+" and "+weth.Hex())
}

func TestOracle_TokenWithoutDecimalsIsNoPool(t *testing.T) {
	f := mainnetFixture()
	// a pool exists but the token has no decimals() getter
	token := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	f.addPool(token, 18, weth, 18, 0.5, FeeTier030, 1_000)
	o := f.oracle(t)

	_, err := o.GetPrice(context.Background(), token)
	require.Error(t, err)
	assert.True(t, domain.IsCannotGetPrice(err))
	assert.Contains(t, err.Error(), "Uniswap V3 pool does not exist for "+token.Hex()+" and "+weth.Hex())
}

func TestOracle_RevertingSlot0IsNoPool(t *testing.T) {
	f := mainnetFixture()
	pool := f.addPool(dai, 18, weth, 18, 0.0003, FeeTier030, 1_000)
	f.chain.Handle(pool, poolABI, "slot0", func([]interface{}) ([]interface{}, error) {
		return nil, chaintest.Revert("locked")
	})
	o := f.oracle(t)

	_, err := o.GetPrice(context.Background(), dai)
	require.Error(t, err)
	assert.True(t, domain.IsCannotGetPrice(err))
}

func TestOracle_FeeTierOption(t *testing.T) {
	o := mainnetFixture().oracle(t, WithFeeTiers(FeeTier030))

	p, err := o.GetPrice(context.Background(), weth, usdc)
	require.NoError(t, err)
	assert.InDelta(t, 3000, p, 1e-6)
}

func TestOracle_TransportErrorIsNotNoPool(t *testing.T) {
	f := mainnetFixture()
	o := f.oracle(t)
	f.chain.FailTransport(errors.New("dial tcp 127.0.0.1:8545: connection refused"))

	_, err := o.GetPrice(context.Background(), gno)
	require.Error(t, err)
	assert.True(t, blockchain.IsTransportError(err))
	assert.False(t, domain.IsCannotGetPrice(err))
}

func TestIsAvailable(t *testing.T) {
	f := mainnetFixture()
	ok, err := IsAvailable(context.Background(), f.chain)
	require.NoError(t, err)
	assert.True(t, ok)

	// a local node: mainnet addresses, no bytecode
	dev := newFixture(blockchain.Network(1337))
	ok, err = IsAvailable(context.Background(), dev.chain)
	require.NoError(t, err)
	assert.False(t, ok)

	xdai := newFixture(blockchain.XDai)
	ok, err = IsAvailable(context.Background(), xdai.chain)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAvailable_TransportError(t *testing.T) {
	f := mainnetFixture()
	f.chain.FailTransport(errors.New("connection refused"))

	_, err := IsAvailable(context.Background(), f.chain)
	assert.True(t, blockchain.IsTransportError(err))
}

func TestNewOracle_RouterNotDeployed(t *testing.T) {
	dev := newFixture(blockchain.Network(1337))
	tokens, err := ethereum.NewTokenResolver(dev.chain, asset.DefaultRegistry(), logger.NewNop())
	require.NoError(t, err)

	_, err = NewOracle(context.Background(), dev.chain, tokens, logger.NewNop())
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "Uniswap V3 Router Contract 0xE592427A0AEce92De3Edee1F18E0157C05861564 does not exist")
	assert.Contains(t, err.Error(), "chain-1337")
}

func TestNewOracle_UnknownChainUsesMainnetAddresses(t *testing.T) {
	fork := newFixture(blockchain.Network(31337))
	fork.deployRouter()
	fork.chain.AddERC20(weth, "WETH", 18)
	fork.chain.AddERC20(usdc, "USDC", 6)
	fork.addPool(weth, 18, usdc, 6, 3400, FeeTier005, 5_000_000)

	o := fork.oracle(t)
	assert.Equal(t, weth, o.ReferenceToken())

	p, err := o.GetPrice(context.Background(), weth, usdc)
	require.NoError(t, err)
	assert.InDelta(t, 3400, p, 1e-6)
}

func TestNewOracle_NetworkWithoutDeployment(t *testing.T) {
	xdai := newFixture(blockchain.XDai)
	tokens, err := ethereum.NewTokenResolver(xdai.chain, asset.DefaultRegistry(), logger.NewNop())
	require.NoError(t, err)

	_, err = NewOracle(context.Background(), xdai.chain, tokens, logger.NewNop())
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "not configured")
}

func TestNewOracle_ReferenceOverride(t *testing.T) {
	o := mainnetFixture().oracle(t, WithReferenceToken(usdc))

	assert.Equal(t, usdc, o.ReferenceToken())
	p, err := o.GetPrice(context.Background(), weth)
	require.NoError(t, err)
	assert.InDelta(t, 3400, p, 1e-6)
}
