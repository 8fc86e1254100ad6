// Package uniswapv2 implements PriceOracles over Uniswap V2 style pairs:
// Uniswap V2 itself and Sushiswap.
package uniswapv2

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

	chain "github.com/fd1az/chain-oracles/business/blockchain/app"
	blockchain "github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/business/pricing/app"
	"github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/logger"
)

const (
	tracerName = "github.com/fd1az/chain-oracles/business/pricing/infra/uniswapv2"
	meterName  = "github.com/fd1az/chain-oracles/business/pricing/infra/uniswapv2"
)

var _ app.PriceOracle = (*Oracle)(nil)

// Flavor selects which V2 deployment an oracle reads.
type Flavor int

const (
	UniswapV2 Flavor = iota
	Sushiswap
)

// Name returns the source name of the flavor.
func (f Flavor) Name() string {
	if f == Sushiswap {
		return domain.SourceSushiswap
	}
	return domain.SourceUniswapV2
}

func (f Flavor) deployment(c blockchain.Contracts) *blockchain.Deployment {
	if f == Sushiswap {
		return c.Sushiswap
	}
	return c.UniswapV2
}

type oracleMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// Oracle prices tokens from the reserves of a V2 pair.
type Oracle struct {
	flavor    Flavor
	reader    chain.ChainReader
	tokens    chain.TokenResolver
	router    common.Address
	factory   common.Address
	reference common.Address

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *oracleMetrics
}

type options struct {
	router    *common.Address
	factory   *common.Address
	reference *common.Address
}

// Option overrides an address from the network table.
type Option func(*options)

// WithRouter sets the router whose bytecode gates construction.
func WithRouter(addr common.Address) Option {
	return func(o *options) { o.router = &addr }
}

// WithFactory sets the factory used for getPair.
func WithFactory(addr common.Address) Option {
	return func(o *options) { o.factory = &addr }
}

// WithReferenceToken sets the default quote and two-hop intermediate.
func WithReferenceToken(addr common.Address) Option {
	return func(o *options) { o.reference = &addr }
}

// IsAvailable reports whether the flavor's router is deployed on the
// reader's network.
func IsAvailable(ctx context.Context, reader chain.ChainReader, flavor Flavor) (bool, error) {
	contracts, _ := reader.Network().Contracts()
	dep := flavor.deployment(contracts)
	if dep == nil {
		return false, nil
	}
	return reader.ContractExists(ctx, dep.Router)
}

// NewOracle binds an oracle of flavor to the reader's network.
func NewOracle(ctx context.Context, reader chain.ChainReader, tokens chain.TokenResolver, flavor Flavor, log logger.LoggerInterface, opts ...Option) (*Oracle, error) {
	network := reader.Network()
	contracts, _ := network.Contracts()

	var o options
	if dep := flavor.deployment(contracts); dep != nil {
		o.router = &dep.Router
		o.factory = &dep.Factory
	}
	if contracts.WrappedNative != (common.Address{}) {
		o.reference = &contracts.WrappedNative
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.router == nil || o.factory == nil || o.reference == nil {
		return nil, domain.NewNotConfigured(flavor.Name(), network.String())
	}

	exists, err := reader.ContractExists(ctx, *o.router)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.NewRouterMissing(flavor.Name(), *o.router, network.String())
	}

	oracle := &Oracle{
		flavor:    flavor,
		reader:    reader,
		tokens:    tokens,
		router:    *o.router,
		factory:   *o.factory,
		reference: *o.reference,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
	if err := oracle.initMetrics(); err != nil {
		return nil, err
	}
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
	return err
}

// Name returns "Uniswap V2" or "Sushiswap".
func (o *Oracle) Name() string { return o.flavor.Name() }

// ReferenceToken returns the network's wrapped native token unless overridden.
func (o *Oracle) ReferenceToken() common.Address { return o.reference }

// GetPrice returns units of quote per unit of base, quote defaulting to the
// reference token.
func (o *Oracle) GetPrice(ctx context.Context, base common.Address, quote ...common.Address) (float64, error) {
	q := domain.NewPriceQuery(base, o.reference, quote...)
	if q.IsIdentity() {
		return 1.0, nil
	}

	ctx, span := o.tracer.Start(ctx, "uniswapv2.get_price",
		trace.WithAttributes(
			attribute.String("source", o.Name()),
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

	span.SetStatus(codes.Ok, "")
	return domain.ToFloat(price), nil
}

func (o *Oracle) leg(ctx context.Context, in, out common.Address) (decimal.Decimal, app.LegStatus, error) {
	values, err := chain.Call(ctx, o.reader, o.factory, factoryABI, "getPair", in, out)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeContractCallFailed) {
			return decimal.Zero, app.LegNoPool, nil
		}
		return decimal.Zero, app.LegNoPool, err
	}
	pair, _ := values[0].(common.Address)
	if pair == (common.Address{}) {
		return decimal.Zero, app.LegNoPool, nil
	}

	values, err = chain.Call(ctx, o.reader, pair, pairABI, "getReserves")
	if err != nil {
		if apperror.HasCode(err, apperror.CodeContractCallFailed) {
			return decimal.Zero, app.LegNoPool, nil
		}
		return decimal.Zero, app.LegNoPool, err
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return decimal.Zero, app.LegNoPool, apperror.New(apperror.CodeContractDecodeFailed,
			apperror.WithContext(pair.Hex()+".getReserves"))
	}

	reserveIn, reserveOut := reserve0, reserve1
	if bytes.Compare(in.Bytes(), out.Bytes()) > 0 {
		reserveIn, reserveOut = reserve1, reserve0
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
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

	price, ok := domain.NormalizePrice(reserveIn, inAsset.Decimals(), reserveOut, outAsset.Decimals())
	if !ok {
		return decimal.Zero, app.LegNoLiquidity, nil
	}

	o.logger.Debug(ctx, "v2 pair reserves",
		"source", o.Name(), "pair", pair.Hex(),
		"reserve_in", reserveIn.String(), "reserve_out", reserveOut.String())
	return price, app.LegOK, nil
}
