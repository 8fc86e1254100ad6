package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/chain-oracles/business/blockchain/app"
	"github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/circuitbreaker"
	"github.com/fd1az/chain-oracles/internal/logger"
	"github.com/fd1az/chain-oracles/internal/wsconn"
)

var _ app.HeadSubscriber = (*HeadSubscriber)(nil)

// HeaderFetcher is the subset of *ethclient.Client used for polling.
type HeaderFetcher interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// HeadSubscriberConfig holds configuration for the head subscriber.
type HeadSubscriberConfig struct {
	WSURL        string        // newHeads subscription endpoint, optional
	PollInterval time.Duration // polling interval when WS is not available
	BufferSize   int
}

// DefaultHeadSubscriberConfig returns sensible defaults.
func DefaultHeadSubscriberConfig(wsURL string) HeadSubscriberConfig {
	return HeadSubscriberConfig{
		WSURL:        wsURL,
		PollInterval: 12 * time.Second, // ~1 block time
		BufferSize:   16,
	}
}

type headMetrics struct {
	received metric.Int64Counter
	errors   metric.Int64Counter
}

// HeadSubscriber streams heads over an eth_subscribe("newHeads") WebSocket
// and falls back to polling the latest header over HTTP.
type HeadSubscriber struct {
	config  HeadSubscriberConfig
	fetcher HeaderFetcher
	logger  logger.LoggerInterface

	ws        *wsconn.Client
	cb        *circuitbreaker.CircuitBreaker[*types.Header]
	heads     chan domain.Head
	lastBlock atomic.Uint64
	usingHTTP atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
	metrics   *headMetrics
}

// NewHeadSubscriber creates a subscriber. fetcher is used for polling.
func NewHeadSubscriber(cfg HeadSubscriberConfig, fetcher HeaderFetcher, log logger.LoggerInterface) (*HeadSubscriber, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	s := &HeadSubscriber{
		config:  cfg,
		fetcher: fetcher,
		logger:  log,
		heads:   make(chan domain.Head, cfg.BufferSize),
		done:    make(chan struct{}),
	}

	cbCfg := circuitbreaker.DefaultConfig("eth-head-poll")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		s.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	s.cb = circuitbreaker.New[*types.Header](cbCfg)

	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HeadSubscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &headMetrics{}

	s.metrics.received, err = meter.Int64Counter(
		"eth_heads_received_total",
		metric.WithDescription("Chain heads received"),
	)
	if err != nil {
		return err
	}

	s.metrics.errors, err = meter.Int64Counter(
		"eth_head_errors_total",
		metric.WithDescription("Head subscription and polling errors"),
	)
	return err
}

// Subscribe starts streaming heads. WebSocket is tried first when configured.
func (s *HeadSubscriber) Subscribe(ctx context.Context) (<-chan domain.Head, error) {
	select {
	case <-s.done:
		return nil, errors.New("head subscriber is closed")
	default:
	}

	if s.config.WSURL != "" {
		err := s.connectWS(ctx)
		if err == nil {
			return s.heads, nil
		}
		s.logger.Warn(ctx, "ws head subscription failed, polling over http", "error", err)
	}

	if s.fetcher == nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ws url and no http client for head polling"))
	}

	s.usingHTTP.Store(true)
	go s.runPoller(ctx)
	return s.heads, nil
}

// UsingHTTP reports whether heads come from polling.
func (s *HeadSubscriber) UsingHTTP() bool {
	return s.usingHTTP.Load()
}

// Close stops the stream.
func (s *HeadSubscriber) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.ws != nil {
			_ = s.ws.Close()
		}
	})
	return nil
}

type subscribeRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      int      `json:"id"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
}

type subscriptionMessage struct {
	Method string `json:"method"`
	Params struct {
		Subscription string `json:"subscription"`
		Result       struct {
			Number    *hexutil.Big   `json:"number"`
			Hash      common.Hash    `json:"hash"`
			Timestamp hexutil.Uint64 `json:"timestamp"`
		} `json:"result"`
	} `json:"params"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *HeadSubscriber) connectWS(ctx context.Context) error {
	client, err := wsconn.New(wsconn.DefaultConfig(s.config.WSURL, "eth-heads"))
	if err != nil {
		return err
	}

	client.OnConnect(func(ctx context.Context) error {
		return client.SendJSON(ctx, subscribeRequest{
			JSONRPC: "2.0",
			ID:      1,
			Method:  "eth_subscribe",
			Params:  []string{"newHeads"},
		})
	})
	client.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			s.metrics.errors.Add(context.Background(), 1)
			s.logger.Warn(context.Background(), "head websocket state change", "state", string(state), "error", err)
		}
	})
	client.OnMessage(s.handleMessage)

	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		return err
	}

	s.ws = client
	s.logger.Info(ctx, "subscribed to new heads via ws")
	return nil
}

func (s *HeadSubscriber) handleMessage(ctx context.Context, msg []byte) {
	var m subscriptionMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		s.logger.Debug(ctx, "ignoring undecodable ws message", "error", err)
		return
	}
	if m.Error != nil {
		s.metrics.errors.Add(ctx, 1)
		s.logger.Error(ctx, "eth_subscribe failed", "code", m.Error.Code, "message", m.Error.Message)
		return
	}
	if m.Method != "eth_subscription" || m.Params.Result.Number == nil {
		return
	}

	s.emit(ctx, domain.Head{
		Number:    m.Params.Result.Number.ToInt().Uint64(),
		Hash:      m.Params.Result.Hash,
		Timestamp: time.Unix(int64(m.Params.Result.Timestamp), 0),
	}, "ws")
}

func (s *HeadSubscriber) runPoller(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info(ctx, "polling chain head", "interval", s.config.PollInterval)
	s.poll(ctx)

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *HeadSubscriber) poll(ctx context.Context) {
	header, err := s.cb.Execute(func() (*types.Header, error) {
		return s.fetcher.HeaderByNumber(ctx, nil) // nil = latest
	})
	if err != nil {
		s.metrics.errors.Add(ctx, 1)
		s.logger.Warn(ctx, "head poll failed", "error", err)
		return
	}

	s.emit(ctx, domain.Head{
		Number:    header.Number.Uint64(),
		Hash:      header.Hash(),
		Timestamp: time.Unix(int64(header.Time), 0),
	}, "http")
}

// emit drops duplicate and old heads, and drops heads when the consumer is
// behind.
func (s *HeadSubscriber) emit(ctx context.Context, head domain.Head, source string) {
	for {
		last := s.lastBlock.Load()
		if head.Number <= last {
			return
		}
		if s.lastBlock.CompareAndSwap(last, head.Number) {
			break
		}
	}

	select {
	case s.heads <- head:
		s.metrics.received.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
		s.logger.Debug(ctx, "head received", "number", head.Number, "source", source)
	default:
		s.logger.Warn(ctx, "head channel full, dropping head", "number", head.Number)
	}
}
