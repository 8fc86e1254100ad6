// Package gnosis is an OrderAPI client for the Gnosis Protocol v2 (CoW)
// order-matching service.
package gnosis

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/chain-oracles/business/protocol/app"
	"github.com/fd1az/chain-oracles/business/protocol/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/circuitbreaker"
	"github.com/fd1az/chain-oracles/internal/httpclient"
	"github.com/fd1az/chain-oracles/internal/logger"
	"github.com/fd1az/chain-oracles/internal/ratelimit"
)

const (
	tracerName   = "github.com/fd1az/chain-oracles/business/protocol/infra/gnosis"
	providerName = "gnosis_protocol"

	defaultTimeout           = 15 * time.Second
	defaultRequestsPerMinute = 300
)

// Ensure Client implements OrderAPI.
var _ app.OrderAPI = (*Client)(nil)

// Config holds the order API client settings.
type Config struct {
	BaseURL           string // e.g. https://api.cow.fi/mainnet/api/v1/
	ChainID           uint64
	Settlement        common.Address // zero means the canonical settlement contract
	Scheme            domain.SigningScheme
	RequestsPerMinute int
	Timeout           time.Duration
}

// Client talks to one network's order API.
type Client struct {
	http    httpclient.Client
	breaker *circuitbreaker.CircuitBreaker[*httpclient.Response]
	signing domain.SigningDomain
	scheme  domain.SigningScheme
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient builds a rate-limited, circuit-broken client. Extra options are
// passed to the underlying HTTP client.
func NewClient(cfg Config, log logger.LoggerInterface, opts ...httpclient.ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("order API base URL is required"))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	if cfg.Scheme == "" {
		cfg.Scheme = domain.SchemeEthSign
	}

	signing := domain.NewSigningDomain(cfg.ChainID)
	if cfg.Settlement != (common.Address{}) {
		signing.VerifyingContract = cfg.Settlement
	}

	tracer := otel.Tracer(tracerName)

	base := []httpclient.ClientOption{
		httpclient.WithProviderName(providerName),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithLimiter(ratelimit.New(cfg.RequestsPerMinute)),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	}
	client, err := httpclient.NewInstrumentedClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	c := &Client{
		http:    client,
		signing: signing,
		scheme:  cfg.Scheme,
		logger:  log,
		tracer:  tracer,
	}

	breakerCfg := circuitbreaker.DefaultConfig(providerName)
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	// Waiting on our own limiter says nothing about the service.
	breakerCfg.IsSuccessful = func(err error) bool {
		return err == nil || apperror.HasCode(err, apperror.CodeRateLimitExceeded)
	}
	c.breaker = circuitbreaker.New[*httpclient.Response](breakerCfg)

	return c, nil
}

// GetOrders lists the orders placed by owner. Unused addresses yield an empty slice.
func (c *Client) GetOrders(ctx context.Context, owner common.Address) (domain.Result[[]domain.OrderRecord], error) {
	ctx, span := c.tracer.Start(ctx, "gnosis.get_orders",
		trace.WithAttributes(attribute.String("owner", owner.Hex())))
	defer span.End()

	path := "account/" + owner.Hex() + "/orders"
	resp, err := c.get(ctx, "orders", path, nil)
	if err != nil {
		span.RecordError(err)
		return domain.Result[[]domain.OrderRecord]{}, err
	}

	res, err := decode[[]domain.OrderRecord](resp, path)
	if err != nil {
		span.RecordError(err)
		return domain.Result[[]domain.OrderRecord]{}, err
	}
	if res.IsError() {
		span.SetAttributes(attribute.String("error_type", res.Failure.ErrorType))
		return res, nil
	}
	if res.Value == nil {
		res.Value = []domain.OrderRecord{}
	}

	span.SetAttributes(attribute.Int("orders", len(res.Value)))
	c.logger.Debug(ctx, "fetched orders", "owner", owner.Hex(), "count", len(res.Value))
	return res, nil
}

// GetEstimatedAmount quotes the counter amount of a sell or buy order.
// Identical tokens are answered locally with SameBuyAndSellToken.
func (c *Client) GetEstimatedAmount(ctx context.Context, sellToken, buyToken common.Address, kind domain.OrderKind, amount *big.Int) (domain.Result[domain.Estimate], error) {
	if sellToken == buyToken {
		return domain.Fail[domain.Estimate](domain.SameBuyAndSellToken()), nil
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.Result[domain.Estimate]{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("amount must be positive"))
	}
	if _, err := domain.ParseOrderKind(string(kind)); err != nil {
		return domain.Result[domain.Estimate]{}, err
	}

	ctx, span := c.tracer.Start(ctx, "gnosis.get_estimated_amount",
		trace.WithAttributes(
			attribute.String("sell_token", sellToken.Hex()),
			attribute.String("buy_token", buyToken.Hex()),
			attribute.String("kind", string(kind)),
		))
	defer span.End()

	path := fmt.Sprintf("markets/%s-%s/%s/%s", sellToken.Hex(), buyToken.Hex(), kind, amount.String())
	resp, err := c.get(ctx, "markets", path, nil)
	if err != nil {
		span.RecordError(err)
		return domain.Result[domain.Estimate]{}, err
	}
	return decode[domain.Estimate](resp, path)
}

type feeResponse struct {
	Amount         domain.Amount `json:"amount"`
	ExpirationDate string        `json:"expirationDate"`
}

// GetFee returns the minimal fee for order. The service answering with an
// error body (unknown token, unsupported pair) yields 0.
func (c *Client) GetFee(ctx context.Context, order domain.Order) (*big.Int, error) {
	ctx, span := c.tracer.Start(ctx, "gnosis.get_fee",
		trace.WithAttributes(
			attribute.String("sell_token", order.SellToken.Hex()),
			attribute.String("buy_token", order.BuyToken.Hex()),
			attribute.String("kind", string(order.Kind)),
		))
	defer span.End()

	amount := order.SellAmount
	if order.Kind == domain.KindBuy {
		amount = order.BuyAmount
	}
	if amount == nil {
		amount = new(big.Int)
	}

	query := map[string]string{
		"sellToken": order.SellToken.Hex(),
		"buyToken":  order.BuyToken.Hex(),
		"amount":    amount.String(),
		"kind":      string(order.Kind),
	}
	resp, err := c.get(ctx, "fee", "fee", query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	res, err := decode[feeResponse](resp, "fee")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if res.IsError() {
		c.logger.Debug(ctx, "fee unavailable, using 0",
			"error_type", res.Failure.ErrorType, "description", res.Failure.Description)
		return new(big.Int), nil
	}
	return res.Value.Amount.Big(), nil
}

// GetTrades lists settled trades of an order or an owner.
func (c *Client) GetTrades(ctx context.Context, q domain.TradesQuery) (domain.Result[[]domain.Trade], error) {
	if err := q.Validate(); err != nil {
		return domain.Result[[]domain.Trade]{}, err
	}

	ctx, span := c.tracer.Start(ctx, "gnosis.get_trades")
	defer span.End()

	query := make(map[string]string, 1)
	if q.OrderUID != nil {
		query["orderUid"] = q.OrderUID.String()
	} else {
		query["owner"] = q.Owner.Hex()
	}

	resp, err := c.get(ctx, "trades", "trades", query)
	if err != nil {
		span.RecordError(err)
		return domain.Result[[]domain.Trade]{}, err
	}

	res, err := decode[[]domain.Trade](resp, "trades")
	if err != nil {
		span.RecordError(err)
		return domain.Result[[]domain.Trade]{}, err
	}
	if res.IsError() {
		span.SetAttributes(attribute.String("error_type", res.Failure.ErrorType))
		return res, nil
	}
	if res.Value == nil {
		res.Value = []domain.Trade{}
	}

	span.SetAttributes(attribute.Int("trades", len(res.Value)))
	return res, nil
}

// orderCreation is the POST orders body.
type orderCreation struct {
	SellToken         common.Address       `json:"sellToken"`
	BuyToken          common.Address       `json:"buyToken"`
	Receiver          *common.Address      `json:"receiver,omitempty"`
	SellAmount        domain.Amount        `json:"sellAmount"`
	BuyAmount         domain.Amount        `json:"buyAmount"`
	ValidTo           uint32               `json:"validTo"`
	AppData           common.Hash          `json:"appData"`
	FeeAmount         domain.Amount        `json:"feeAmount"`
	Kind              domain.OrderKind     `json:"kind"`
	PartiallyFillable bool                 `json:"partiallyFillable"`
	SellTokenBalance  domain.TokenBalance  `json:"sellTokenBalance"`
	BuyTokenBalance   domain.TokenBalance  `json:"buyTokenBalance"`
	SigningScheme     domain.SigningScheme `json:"signingScheme"`
	Signature         string               `json:"signature"`
	From              common.Address       `json:"from"`
}

func newOrderCreation(s domain.SignedOrder) orderCreation {
	o := s.Order
	body := orderCreation{
		SellToken:         o.SellToken,
		BuyToken:          o.BuyToken,
		SellAmount:        domain.NewAmount(o.SellAmount),
		BuyAmount:         domain.NewAmount(o.BuyAmount),
		ValidTo:           o.ValidTo,
		AppData:           o.AppData,
		FeeAmount:         domain.NewAmount(o.FeeAmount),
		Kind:              o.Kind,
		PartiallyFillable: o.PartiallyFillable,
		SellTokenBalance:  o.SellTokenBalance,
		BuyTokenBalance:   o.BuyTokenBalance,
		SigningScheme:     s.Scheme,
		Signature:         s.Signature.String(),
		From:              s.Owner,
	}
	if o.Receiver != (common.Address{}) {
		receiver := o.Receiver
		body.Receiver = &receiver
	}
	return body
}

// PlaceOrder validates, signs and submits order. Defaults and a fee from
// GetFee are written back into order before signing.
func (c *Client) PlaceOrder(ctx context.Context, order *domain.Order, key *ecdsa.PrivateKey) (domain.Result[domain.OrderUID], error) {
	if order == nil {
		return domain.Result[domain.OrderUID]{}, apperror.New(apperror.CodeInvalidOrder,
			apperror.WithMessage("order is required"))
	}
	if key == nil {
		return domain.Result[domain.OrderUID]{}, apperror.New(apperror.CodeInvalidSignerKey)
	}
	if err := order.Validate(); err != nil {
		return domain.Result[domain.OrderUID]{}, err
	}
	*order = order.WithDefaults()

	if order.SellToken == order.BuyToken {
		return domain.Fail[domain.OrderUID](domain.SameBuyAndSellToken()), nil
	}

	ctx, span := c.tracer.Start(ctx, "gnosis.place_order",
		trace.WithAttributes(
			attribute.String("sell_token", order.SellToken.Hex()),
			attribute.String("buy_token", order.BuyToken.Hex()),
			attribute.String("scheme", string(c.scheme)),
		))
	defer span.End()

	if order.FeeAmount.Sign() == 0 {
		fee, err := c.GetFee(ctx, *order)
		if err != nil {
			span.RecordError(err)
			return domain.Result[domain.OrderUID]{}, err
		}
		order.FeeAmount = fee
	}

	signed, err := c.signing.Sign(*order, key, c.scheme)
	if err != nil {
		span.RecordError(err)
		return domain.Result[domain.OrderUID]{}, err
	}

	resp, err := c.post(ctx, "orders", "orders", newOrderCreation(signed))
	if err != nil {
		span.RecordError(err)
		return domain.Result[domain.OrderUID]{}, err
	}

	res, err := decode[domain.OrderUID](resp, "orders")
	if err != nil {
		span.RecordError(err)
		return domain.Result[domain.OrderUID]{}, err
	}
	if res.IsError() {
		c.logger.Info(ctx, "order rejected",
			"error_type", res.Failure.ErrorType, "description", res.Failure.Description)
		return res, nil
	}

	if res.Value != signed.UID {
		c.logger.Warn(ctx, "order API returned a different UID",
			"local", signed.UID.String(), "remote", res.Value.String())
	}
	span.SetAttributes(attribute.String("uid", res.Value.String()))
	c.logger.Info(ctx, "order placed", "uid", res.Value.String(), "owner", signed.Owner.Hex())
	return res, nil
}

// Ping checks the service answers its version endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, "version", "version", nil)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apperror.New(apperror.CodeServiceUnavailable,
			apperror.WithContext(fmt.Sprintf("order API version: HTTP %d", resp.StatusCode)))
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query map[string]string) (*httpclient.Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, path, query, nil)
}

func (c *Client) post(ctx context.Context, endpoint, path string, body interface{}) (*httpclient.Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, path, nil, body)
}

func (c *Client) do(ctx context.Context, method, endpoint, path string, query map[string]string, body interface{}) (*httpclient.Response, error) {
	resp, err := c.breaker.Execute(func() (*httpclient.Response, error) {
		req := c.http.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", endpoint)),
			httpclient.WithResponseErrorHandler(orderAPIErrorHandler),
		)
		for k, v := range query {
			req.SetQueryParam(k, v)
		}
		if body != nil {
			req.SetBody(body)
		}
		if method == http.MethodPost {
			return req.Post(ctx, path)
		}
		return req.Get(ctx, path)
	})
	if err != nil {
		return nil, classify(err, path)
	}
	return resp, nil
}

// orderAPIErrorHandler fails only server errors without an error body, so
// business rejections do not count against the circuit breaker.
func orderAPIErrorHandler(statusCode int, body []byte) error {
	if statusCode < http.StatusInternalServerError {
		return nil
	}
	if _, ok := parseFailure(body); ok {
		return nil
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, strings.TrimSpace(string(body)))
}

func classify(err error, path string) error {
	switch {
	case apperror.IsAppError(err):
		return err
	case circuitbreaker.IsOpenError(err):
		return apperror.New(apperror.CodeCircuitOpen,
			apperror.WithCause(err),
			apperror.WithContext(providerName))
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.New(apperror.CodeServiceTimeout,
			apperror.WithCause(err),
			apperror.WithContext(path))
	default:
		return apperror.New(apperror.CodeExternalServiceError,
			apperror.WithCause(err),
			apperror.WithContext(path))
	}
}

func parseFailure(body []byte) (domain.ErrorResponse, bool) {
	var failure domain.ErrorResponse
	if err := json.Unmarshal(body, &failure); err != nil || failure.ErrorType == "" {
		return failure, false
	}
	return failure, true
}

// decode turns a response into a value, an ErrorResponse, or an error when
// the service failed without saying why.
func decode[T any](resp *httpclient.Response, path string) (domain.Result[T], error) {
	if resp.IsError() {
		if failure, ok := parseFailure(resp.Body()); ok {
			return domain.Fail[T](failure), nil
		}
		return domain.Result[T]{}, apperror.New(apperror.CodeExternalServiceError,
			apperror.WithMessage(fmt.Sprintf("order API returned HTTP %d", resp.StatusCode)),
			apperror.WithContext(path))
	}

	var v T
	if err := json.Unmarshal(resp.Body(), &v); err != nil {
		return domain.Result[T]{}, apperror.New(apperror.CodeOrderAPIDecode,
			apperror.WithCause(err),
			apperror.WithContext(path))
	}
	return domain.Ok(v), nil
}
