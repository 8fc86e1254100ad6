// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/chain-oracles/business/blockchain/app"
	"github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/cache"
	"github.com/fd1az/chain-oracles/internal/circuitbreaker"
	"github.com/fd1az/chain-oracles/internal/logger"
)

const (
	tracerName = "github.com/fd1az/chain-oracles/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/chain-oracles/business/blockchain/infra/ethereum"
)

var _ app.ChainReader = (*Reader)(nil)

// Client is the subset of *ethclient.Client the reader uses.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type readerMetrics struct {
	calls   metric.Int64Counter
	latency metric.Float64Histogram
}

// Reader implements app.ChainReader over a JSON-RPC client.
//
// Every RPC goes through a circuit breaker. Positive code-existence answers are
// cached: deployed bytecode does not disappear outside self-destructs, which
// the contracts we query do not have.
type Reader struct {
	client      Client
	logger      logger.LoggerInterface
	network     atomic.Uint64
	callTimeout time.Duration

	cb        *circuitbreaker.CircuitBreaker[[]byte]
	codeCache *cache.Cache[common.Address, bool]

	tracer  trace.Tracer
	metrics *readerMetrics
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithCallTimeout bounds calls whose context has no deadline.
func WithCallTimeout(d time.Duration) ReaderOption {
	return func(r *Reader) {
		r.callTimeout = d
	}
}

// WithNetwork pins the network instead of resolving it on Connect.
func WithNetwork(n domain.Network) ReaderOption {
	return func(r *Reader) {
		r.network.Store(uint64(n))
	}
}

// NewReader creates a reader. Call Connect to resolve the network.
func NewReader(client Client, log logger.LoggerInterface, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		client:      client,
		logger:      log,
		callTimeout: 10 * time.Second,
		codeCache:   cache.New[common.Address, bool](cache.DefaultSize, 0),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}

	cbCfg := circuitbreaker.DefaultConfig("eth-rpc")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		r.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	// A revert is a valid answer from a healthy node.
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || isRevert(err)
	}
	r.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := r.initMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

// Dial creates a reader and resolves its network from the node.
func Dial(ctx context.Context, client Client, log logger.LoggerInterface, opts ...ReaderOption) (*Reader, error) {
	r, err := NewReader(client, log, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.Connect(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.calls, err = meter.Int64Counter(
		"eth_rpc_calls_total",
		metric.WithDescription("JSON-RPC calls issued by the chain reader"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	r.metrics.latency, err = meter.Float64Histogram(
		"eth_rpc_latency_ms",
		metric.WithDescription("JSON-RPC call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Connect resolves the network from eth_chainId unless it was pinned.
func (r *Reader) Connect(ctx context.Context) error {
	if r.network.Load() != 0 {
		return nil
	}

	raw, err := r.do(ctx, "eth_chainId", func(ctx context.Context) ([]byte, error) {
		id, err := r.client.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		return id.Bytes(), nil
	})
	if err != nil {
		return err
	}

	network := domain.FromChainID(new(big.Int).SetBytes(raw).Uint64())
	r.network.Store(uint64(network))

	if !network.IsKnown() {
		r.logger.Warn(ctx, "connected to unknown network, using mainnet contract addresses",
			"chain_id", network.ChainID())
	} else {
		r.logger.Info(ctx, "chain reader connected", "network", network.String())
	}
	return nil
}

// Network returns the connected network, Unknown before Connect.
func (r *Reader) Network() domain.Network {
	return domain.Network(r.network.Load())
}

// ContractExists reports whether bytecode is deployed at addr.
func (r *Reader) ContractExists(ctx context.Context, addr common.Address) (bool, error) {
	if ok, found := r.codeCache.Get(ctx, addr); found && ok {
		return true, nil
	}

	code, err := r.do(ctx, "eth_getCode", func(ctx context.Context) ([]byte, error) {
		return r.client.CodeAt(ctx, addr, nil)
	})
	if err != nil {
		return false, err
	}

	exists := len(code) > 0
	if exists {
		r.codeCache.Set(ctx, addr, true)
	}
	return exists, nil
}

// CallContract executes an eth_call. Reverts come back as CONTRACT_CALL_FAILED,
// everything else as a transport error.
func (r *Reader) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return r.do(ctx, "eth_call", func(ctx context.Context) ([]byte, error) {
		return r.client.CallContract(ctx, msg, block)
	})
}

func (r *Reader) do(ctx context.Context, method string, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	ctx, span := r.tracer.Start(ctx, "eth."+method,
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
	defer span.End()

	if _, ok := ctx.Deadline(); !ok && r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := r.cb.Execute(func() ([]byte, error) {
		return fn(ctx)
	})

	r.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("method", method)))
	r.metrics.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.Bool("success", err == nil),
	))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		return nil, r.classify(ctx, method, err)
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}

func (r *Reader) classify(ctx context.Context, method string, err error) error {
	switch {
	case circuitbreaker.IsOpenError(err):
		return apperror.New(apperror.CodeCircuitOpen,
			apperror.WithCause(err),
			apperror.WithContext(method))
	case isRevert(err):
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(method))
	default:
		r.logger.Debug(ctx, "rpc call failed", "method", method, "error", err)
		return domain.NewRPCError(method, err)
	}
}

func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}
