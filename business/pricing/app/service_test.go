package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/chain-oracles/business/blockchain/domain"
	pricingdomain "github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/logger"
)

var (
	weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

type stubOracle struct {
	name   string
	prices map[pricingdomain.PriceQuery]float64
	err    error
	calls  atomic.Int32
}

func (o *stubOracle) Name() string                   { return o.name }
func (o *stubOracle) ReferenceToken() common.Address { return weth }

func (o *stubOracle) GetPrice(_ context.Context, base common.Address, quote ...common.Address) (float64, error) {
	o.calls.Add(1)
	q := pricingdomain.NewPriceQuery(base, weth, quote...)
	if o.err != nil {
		return 0, o.err
	}
	if p, ok := o.prices[q]; ok {
		return p, nil
	}
	return 0, pricingdomain.NewCannotGetPrice(o.name, q.Base, q.Quote, false)
}

func noCache() ServiceConfig {
	cfg := DefaultServiceConfig()
	cfg.CacheTTL = 0
	return cfg
}

func TestPricingService_Identity(t *testing.T) {
	src := &stubOracle{name: "A"}
	svc := NewPricingService([]PriceOracle{src}, noCache(), logger.NewNop())

	q, err := svc.GetPrice(context.Background(), usdc, usdc)
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.Price)
	assert.Zero(t, src.calls.Load())
}

func TestPricingService_DefaultsToReferenceToken(t *testing.T) {
	src := &stubOracle{name: "A", prices: map[pricingdomain.PriceQuery]float64{
		{Base: usdc, Quote: weth}: 0.0003,
	}}
	svc := NewPricingService([]PriceOracle{src}, noCache(), logger.NewNop())

	q, err := svc.GetPrice(context.Background(), usdc)
	require.NoError(t, err)
	assert.Equal(t, weth, q.Query.Quote)
	assert.Equal(t, 0.0003, q.Price)
}

func TestPricingService_FallsThroughOnNoPool(t *testing.T) {
	first := &stubOracle{name: "A"}
	second := &stubOracle{name: "B", prices: map[pricingdomain.PriceQuery]float64{
		{Base: dai, Quote: usdc}: 1.001,
	}}
	svc := NewPricingService([]PriceOracle{first, second}, noCache(), logger.NewNop())

	q, err := svc.GetPrice(context.Background(), dai, usdc)
	require.NoError(t, err)
	assert.Equal(t, "B", q.Source)
	assert.Equal(t, 1.001, q.Price)
	assert.EqualValues(t, 1, first.calls.Load())
}

func TestPricingService_AllSourcesFail(t *testing.T) {
	svc := NewPricingService([]PriceOracle{&stubOracle{name: "A"}, &stubOracle{name: "B"}}, noCache(), logger.NewNop())

	_, err := svc.GetPrice(context.Background(), dai, usdc)
	require.Error(t, err)
	assert.True(t, pricingdomain.IsCannotGetPrice(err))
	assert.Contains(t, err.Error(), "B pool does not exist")
}

func TestPricingService_TransportErrorStops(t *testing.T) {
	first := &stubOracle{name: "A", err: domain.NewRPCError("eth_call", errors.New("connection refused"))}
	second := &stubOracle{name: "B", prices: map[pricingdomain.PriceQuery]float64{
		{Base: dai, Quote: usdc}: 1,
	}}
	svc := NewPricingService([]PriceOracle{first, second}, noCache(), logger.NewNop())

	_, err := svc.GetPrice(context.Background(), dai, usdc)
	require.Error(t, err)
	assert.True(t, domain.IsTransportError(err))
	assert.False(t, pricingdomain.IsCannotGetPrice(err))
	assert.Zero(t, second.calls.Load())
}

func TestPricingService_NoSources(t *testing.T) {
	svc := NewPricingService(nil, noCache(), logger.NewNop())

	_, err := svc.GetPrice(context.Background(), dai, usdc)
	assert.True(t, apperror.HasCode(err, apperror.CodeNoPriceSource))
}

func TestPricingService_CachesWithinBucket(t *testing.T) {
	src := &stubOracle{name: "A", prices: map[pricingdomain.PriceQuery]float64{
		{Base: weth, Quote: usdc}: 3400.5,
	}}
	cfg := DefaultServiceConfig()
	cfg.CacheTTL = 10 * time.Second
	svc := NewPricingService([]PriceOracle{src}, cfg, logger.NewNop())

	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	q, err := svc.GetPrice(ctx, weth, usdc)
	require.NoError(t, err)
	assert.False(t, q.Cached)

	q, err = svc.GetPrice(ctx, weth, usdc)
	require.NoError(t, err)
	assert.True(t, q.Cached)
	assert.Equal(t, 3400.5, q.Price)
	assert.EqualValues(t, 1, src.calls.Load())

	now = now.Add(10 * time.Second)
	q, err = svc.GetPrice(ctx, weth, usdc)
	require.NoError(t, err)
	assert.False(t, q.Cached)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestPricingService_CheckedPrice(t *testing.T) {
	src := &stubOracle{name: "A", prices: map[pricingdomain.PriceQuery]float64{
		{Base: weth, Quote: usdc}: 3400,
		{Base: usdc, Quote: weth}: 1.0 / 3410,
		{Base: weth, Quote: dai}:  3400,
		{Base: dai, Quote: weth}:  1,
	}}
	svc := NewPricingService([]PriceOracle{src}, noCache(), logger.NewNop())
	ctx := context.Background()

	q, c, err := svc.CheckedPrice(ctx, weth, usdc)
	require.NoError(t, err)
	assert.Equal(t, 3400.0, q.Price)
	assert.True(t, c.Within(0.01))

	_, _, err = svc.CheckedPrice(ctx, weth, dai)
	assert.True(t, apperror.HasCode(err, apperror.CodeInconsistentPrice))
}

func TestPricingService_GetPrices(t *testing.T) {
	src := &stubOracle{name: "A", prices: map[pricingdomain.PriceQuery]float64{
		{Base: weth, Quote: usdc}: 3400,
	}}
	svc := NewPricingService([]PriceOracle{src}, noCache(), logger.NewNop())

	results := svc.GetPrices(context.Background(), []pricingdomain.PriceQuery{
		{Base: weth, Quote: usdc},
		{Base: dai, Quote: usdc},
	})

	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 3400.0, results[0].Quote.Price)
	assert.True(t, pricingdomain.IsCannotGetPrice(results[1].Err))
	assert.Equal(t, dai, results[1].Quote.Query.Base)
}

func TestPricingService_Sources(t *testing.T) {
	svc := NewPricingService([]PriceOracle{&stubOracle{name: "A"}, &stubOracle{name: "B"}}, noCache(), logger.NewNop())
	assert.Equal(t, []string{"A", "B"}, svc.Sources())
}
