// Package uniswapv3 implements a PriceOracle over Uniswap V3 pool state.
package uniswapv3

import (
	"bytes"
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	chain "github.com/fd1az/chain-oracles/business/blockchain/app"
	"github.com/fd1az/chain-oracles/business/pricing/app"
	"github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/logger"
)

const (
	tracerName = "github.com/fd1az/chain-oracles/business/pricing/infra/uniswapv3"
	meterName  = "github.com/fd1az/chain-oracles/business/pricing/infra/uniswapv3"
)

// Ensure Oracle implements PriceOracle.
var _ app.PriceOracle = (*Oracle)(nil)

// oracleMetrics holds OTEL metric instruments.
type oracleMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	poolHits metric.Int64Counter
}

// Oracle prices tokens from the spot price of the deepest Uniswap V3 pool.
type Oracle struct {
	reader    chain.ChainReader
	tokens    chain.TokenResolver
	router    common.Address
	factory   common.Address
	reference common.Address
	feeTiers  []uint32

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *oracleMetrics
}

type options struct {
	router    *common.Address
	factory   *common.Address
	reference *common.Address
	feeTiers  []uint32
}

// Option overrides an address from the network table.
type Option func(*options)

// WithRouter sets the router whose bytecode gates construction.
func WithRouter(addr common.Address) Option {
	return func(o *options) { o.router = &addr }
}

// WithFactory sets the factory used for getPool.
func WithFactory(addr common.Address) Option {
	return func(o *options) { o.factory = &addr }
}

// WithReferenceToken sets the default quote and two-hop intermediate.
func WithReferenceToken(addr common.Address) Option {
	return func(o *options) { o.reference = &addr }
}

// WithFeeTiers restricts the fee tiers searched.
func WithFeeTiers(tiers ...uint32) Option {
	return func(o *options) { o.feeTiers = tiers }
}

// IsAvailable reports whether the Uniswap V3 router is deployed on the
// reader's network. Only transport failures are returned as errors.
func IsAvailable(ctx context.Context, reader chain.ChainReader) (bool, error) {
	contracts, _ := reader.Network().Contracts()
	if contracts.UniswapV3 == nil {
		return false, nil
	}
	return reader.ContractExists(ctx, contracts.UniswapV3.Router)
}

// NewOracle binds an oracle to the reader's network. It fails with
// CONFIGURATION_ERROR when the router has no bytecode there.
func NewOracle(ctx context.Context, reader chain.ChainReader, tokens chain.TokenResolver, log logger.LoggerInterface, opts ...Option) (*Oracle, error) {
	network := reader.Network()
	contracts, _ := network.Contracts()

	o := options{feeTiers: DefaultFeeTiers}
	if contracts.UniswapV3 != nil {
		o.router = &contracts.UniswapV3.Router
		o.factory = &contracts.UniswapV3.Factory
	}
	if contracts.WrappedNative != (common.Address{}) {
		o.reference = &contracts.WrappedNative
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.router == nil || o.factory == nil || o.reference == nil || len(o.feeTiers) == 0 {
		return nil, domain.NewNotConfigured(domain.SourceUniswapV3, network.String())
	}

	exists, err := reader.ContractExists(ctx, *o.router)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.NewRouterMissing(domain.SourceUniswapV3, *o.router, network.String())
	}

	oracle := &Oracle{
		reader:    reader,
		tokens:    tokens,
		router:    *o.router,
		factory:   *o.factory,
		reference: *o.reference,
		feeTiers:  o.feeTiers,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
	if err := oracle.initMetrics(); err != nil {
		return nil, err
	}

	log.Debug(ctx, "uniswap v3 oracle ready",
		"network", network.String(), "router", oracle.router.Hex(), "factory", oracle.factory.Hex())
	return oracle, nil
}

func (o *Oracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &oracleMetrics{}

	o.metrics.requests, err = meter.Int64Counter(
		"oracle_price_requests_total",
		metric.WithDescription("Price requests by source and outcome"),
	)
	if err != nil {
		return err
	}

	o.metrics.latency, err = meter.Float64Histogram(
		"oracle_price_latency_ms",
		metric.WithDescription("Price request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	o.metrics.poolHits, err = meter.Int64Counter(
		"oracle_uniswap_v3_pool_selected_total",
		metric.WithDescription("Pools selected per fee tier"),
	)
	return err
}

// Name returns "Uniswap V3".
func (o *Oracle) Name() string { return domain.SourceUniswapV3 }

// ReferenceToken returns the network's wrapped native token unless overridden.
func (o *Oracle) ReferenceToken() common.Address { return o.reference }

// GetPrice returns units of quote per unit of base, quote defaulting to the
// reference token.
func (o *Oracle) GetPrice(ctx context.Context, base common.Address, quote ...common.Address) (float64, error) {
	q := domain.NewPriceQuery(base, o.reference, quote...)
	if q.IsIdentity() {
		return 1.0, nil
	}

	ctx, span := o.tracer.Start(ctx, "uniswapv3.get_price",
		trace.WithAttributes(
			attribute.String("base", q.Base.Hex()),
			attribute.String("quote", q.Quote.Hex()),
		),
	)
	defer span.End()

	start := time.Now()
	price, err := app.ResolvePrice(ctx, o.Name(), o.reference, q, o.leg)

	outcome := "ok"
	switch {
	case domain.IsCannotGetPrice(err):
		outcome = "no_pool"
	case err != nil:
		outcome = "error"
	}
	o.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))
	o.metrics.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", o.Name()),
		attribute.String("outcome", outcome),
	))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return 0, err
	}

	result := domain.ToFloat(price)
	span.SetAttributes(attribute.Float64("price", result))
	span.SetStatus(codes.Ok, "")

	o.logger.Debug(ctx, "uniswap v3 price",
		"base", q.Base.Hex(),
		"quote", q.Quote.Hex(),
		"price", price.String(),
	)
	return result, nil
}

type candidate struct {
	fee       uint32
	pool      common.Address
	liquidity *big.Int
}

// leg prices in against out using the pool with the most liquidity.
func (o *Oracle) leg(ctx context.Context, in, out common.Address) (decimal.Decimal, app.LegStatus, error) {
	best, status, err := o.deepestPool(ctx, in, out)
	if err != nil || status != app.LegOK {
		return decimal.Zero, status, err
	}

	values, err := chain.Call(ctx, o.reader, best.pool, poolABI, "slot0")
	if err != nil {
		return decimal.Zero, app.LegNoPool, err
	}
	sqrtPrice, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, app.LegNoPool, apperror.New(apperror.CodeContractDecodeFailed,
			apperror.WithContext(best.pool.Hex()+".slot0"))
	}
	if sqrtPrice.Sign() == 0 {
		return decimal.Zero, app.LegNoLiquidity, nil
	}

	inAsset, err := o.tokens.Resolve(ctx, in)
	if err != nil {
		return decimal.Zero, app.LegNoPool, err
	}
	outAsset, err := o.tokens.Resolve(ctx, out)
	if err != nil {
		return decimal.Zero, app.LegNoPool, err
	}

	zeroForOne := bytes.Compare(in.Bytes(), out.Bytes()) < 0
	rawIn, rawOut := domain.SqrtPriceLeg(sqrtPrice, zeroForOne)
	price, ok := domain.NormalizePrice(rawIn, inAsset.Decimals(), rawOut, outAsset.Decimals())
	if !ok {
		return decimal.Zero, app.LegNoLiquidity, nil
	}

	o.metrics.poolHits.Add(ctx, 1, metric.WithAttributes(attribute.Int("fee_tier", int(best.fee))))
	return price, app.LegOK, nil
}

// deepestPool looks up every fee tier concurrently. The first transport
// error cancels the remaining lookups.
func (o *Oracle) deepestPool(ctx context.Context, a, b common.Address) (candidate, app.LegStatus, error) {
	found := make([]*candidate, len(o.feeTiers))

	g, gctx := errgroup.WithContext(ctx)
	for i, fee := range o.feeTiers {
		g.Go(func() error {
			c, err := o.lookup(gctx, a, b, fee)
			if err != nil {
				return err
			}
			found[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return candidate{}, app.LegNoPool, err
	}

	var best *candidate
	exists := false
	for _, c := range found {
		if c == nil {
			continue
		}
		exists = true
		if c.liquidity.Sign() > 0 && (best == nil || c.liquidity.Cmp(best.liquidity) > 0) {
			best = c
		}
	}

	switch {
	case best != nil:
		return *best, app.LegOK, nil
	case exists:
		return candidate{}, app.LegNoLiquidity, nil
	default:
		return candidate{}, app.LegNoPool, nil
	}
}

// lookup returns nil when the factory has no pool for the tier.
func (o *Oracle) lookup(ctx context.Context, a, b common.Address, fee uint32) (*candidate, error) {
	values, err := chain.Call(ctx, o.reader, o.factory, factoryABI, "getPool", a, b, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		if apperror.HasCode(err, apperror.CodeContractCallFailed) {
			o.logger.Debug(ctx, "getPool reverted", "fee_tier", fee, "error", err)
			return nil, nil
		}
		return nil, err
	}
	pool, _ := values[0].(common.Address)
	if pool == (common.Address{}) {
		return nil, nil
	}

	values, err = chain.Call(ctx, o.reader, pool, poolABI, "liquidity")
	if err != nil {
		if apperror.HasCode(err, apperror.CodeContractCallFailed) {
			return nil, nil
		}
		return nil, err
	}
	liquidity, ok := values[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeContractDecodeFailed,
			apperror.WithContext(pool.Hex()+".liquidity"))
	}

	return &candidate{fee: fee, pool: pool, liquidity: liquidity}, nil
}
