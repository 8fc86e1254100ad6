package gnosis

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/chain-oracles/business/protocol/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/logger"
)

const rinkebyChainID = 4

var (
	gno        = common.HexToAddress("0x6810e776880C02933D47DB1b9fc05908e5386b96")
	weth       = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	rinkebyDAI = common.HexToAddress("0x5592EC0cfb4dbc12D3aB100b257153436a1f0FEa")
	unknown    = common.HexToAddress("0x6820e776880c02933d47db1b9fc05908e5386b96")

	tradeUID = "0x9c79b5883b7f2bacbedef554a835fb07c21f4b1b046edf510554a6ba0444d2665ac255889882acd3da2aa939679e3f3d4cea221e72eb7b80"
)

const tradeJSON = `[{
	"blockNumber": 9269212,
	"logIndex": 0,
	"orderUid": "0x9c79b5883b7f2bacbedef554a835fb07c21f4b1b046edf510554a6ba0444d2665ac255889882acd3da2aa939679e3f3d4cea221e72eb7b80",
	"buyAmount": "480792",
	"sellAmount": "400000000200001",
	"sellAmountBeforeFees": "1",
	"owner": "0x5ac255889882acd3da2aa939679e3f3d4cea221e",
	"buyToken": "0x5592ec0cfb4dbc12d3ab100b257153436a1f0fea",
	"sellToken": "0xc778417e063141139fce010982780140aa0cd5ab",
	"txHash": "0x4c888ddeac38b195c9ff7220b61df836a49f8fe2fd9a448da2caf56308db1c61"
}]`

// fakeAPI mimics the order API: GNO, WETH and DAI are supported tokens and
// no account holds any balance unless funded.
type fakeAPI struct {
	mu     sync.Mutex
	funded map[common.Address]bool
	placed []orderCreation
	hits   map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{funded: make(map[common.Address]bool), hits: make(map[string]int)}
}

func supported(addr common.Address) bool {
	return addr == gno || addr == weth || addr == rinkebyDAI
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func unsupportedToken(w http.ResponseWriter, addr common.Address) {
	writeJSON(w, http.StatusBadRequest, domain.ErrorResponse{
		ErrorType:   domain.ErrorUnsupportedToken,
		Description: "Token address " + strings.ToLower(addr.Hex()),
	})
}

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	f.hits[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) fund(addr common.Address) {
	f.mu.Lock()
	f.funded[addr] = true
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[name]
}

func (f *fakeAPI) submitted() []orderCreation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]orderCreation(nil), f.placed...)
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "v2.0.0")
	})

	mux.HandleFunc("GET /api/v1/account/{owner}/orders", func(w http.ResponseWriter, r *http.Request) {
		f.hit("orders")
		w.Write([]byte(`[]`))
	})

	mux.HandleFunc("GET /api/v1/markets/{pair}/{kind}/{amount}", func(w http.ResponseWriter, r *http.Request) {
		f.hit("markets")
		tokens := strings.Split(r.PathValue("pair"), "-")
		sell, buy := common.HexToAddress(tokens[0]), common.HexToAddress(tokens[1])
		for _, t := range []common.Address{sell, buy} {
			if !supported(t) {
				unsupportedToken(w, t)
				return
			}
		}
		amount, _ := new(big.Int).SetString(r.PathValue("amount"), 10)
		// 1 GNO = 0.05 WETH
		out := new(big.Int).Div(amount, big.NewInt(20))
		writeJSON(w, http.StatusOK, map[string]string{"amount": out.String(), "token": strings.ToLower(buy.Hex())})
	})

	mux.HandleFunc("GET /api/v1/fee", func(w http.ResponseWriter, r *http.Request) {
		f.hit("fee")
		q := r.URL.Query()
		sell, buy := common.HexToAddress(q.Get("sellToken")), common.HexToAddress(q.Get("buyToken"))
		if sell == buy {
			writeJSON(w, http.StatusBadRequest, domain.SameBuyAndSellToken())
			return
		}
		if !supported(sell) {
			unsupportedToken(w, sell)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"amount":         "1500000000000000",
			"expirationDate": "2021-07-07T10:00:00.000Z",
		})
	})

	mux.HandleFunc("GET /api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		f.hit("trades")
		if r.URL.Query().Get("orderUid") == tradeUID {
			w.Write([]byte(tradeJSON))
			return
		}
		w.Write([]byte(`[]`))
	})

	mux.HandleFunc("POST /api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		f.hit("place")
		var body orderCreation
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, domain.ErrorResponse{ErrorType: "InvalidJSON", Description: err.Error()})
			return
		}
		f.mu.Lock()
		f.placed = append(f.placed, body)
		funded := f.funded[body.From]
		f.mu.Unlock()

		if !funded {
			writeJSON(w, http.StatusBadRequest, domain.ErrorResponse{
				ErrorType:   domain.ErrorInsufficientBalance,
				Description: "order owner must have funds worth at least x in his account",
			})
			return
		}

		order := domain.Order{
			SellToken:         body.SellToken,
			BuyToken:          body.BuyToken,
			SellAmount:        body.SellAmount.Big(),
			BuyAmount:         body.BuyAmount.Big(),
			ValidTo:           body.ValidTo,
			AppData:           body.AppData,
			FeeAmount:         body.FeeAmount.Big(),
			Kind:              body.Kind,
			PartiallyFillable: body.PartiallyFillable,
			SellTokenBalance:  body.SellTokenBalance,
			BuyTokenBalance:   body.BuyTokenBalance,
		}
		if body.Receiver != nil {
			order.Receiver = *body.Receiver
		}
		digest, err := domain.NewSigningDomain(rinkebyChainID).Digest(order)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, err.Error())
			return
		}
		sig := common.FromHex(body.Signature)
		signer, err := domain.RecoverOwner(digest, sig, body.SigningScheme)
		if err != nil || signer != body.From {
			writeJSON(w, http.StatusBadRequest, domain.ErrorResponse{ErrorType: "InvalidSignature", Description: "signature does not match owner"})
			return
		}
		writeJSON(w, http.StatusCreated, domain.NewOrderUID(digest, body.From, body.ValidTo).String())
	})

	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL: srv.URL + "/api/v1/",
		ChainID: rinkebyChainID,
	}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func sellWETHForDAI() *domain.Order {
	return &domain.Order{
		SellToken:  weth,
		BuyToken:   rinkebyDAI,
		SellAmount: big.NewInt(1_000_000_000_000_000),
		BuyAmount:  big.NewInt(2),
		ValidTo:    1900000000,
		AppData:    crypto.Keccak256Hash([]byte("hola")),
		Kind:       domain.KindSell,
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{ChainID: 1}, logger.NewNop())
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))
}

func TestGetOrders_UnusedOwnerIsEmpty(t *testing.T) {
	c := newTestClient(t, newFakeAPI())

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	res, err := c.GetOrders(context.Background(), crypto.PubkeyToAddress(key.PublicKey))
	require.NoError(t, err)
	require.False(t, res.IsError())
	assert.NotNil(t, res.Value)
	assert.Empty(t, res.Value)
}

// rejectingAPI answers every request with an order API error body.
func rejectingAPI(t *testing.T, errorType, description string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, domain.ErrorResponse{ErrorType: errorType, Description: description})
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/api/v1/", ChainID: 1}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestGetOrders_ErrorBodyIsValue(t *testing.T) {
	c := rejectingAPI(t, "InvalidOwner", "bad owner")

	res, err := c.GetOrders(context.Background(), weth)
	require.NoError(t, err)
	require.True(t, res.IsError())
	assert.Equal(t, domain.ErrorResponse{ErrorType: "InvalidOwner", Description: "bad owner"}, *res.Failure)
	assert.Nil(t, res.Value)
}

func TestGetEstimatedAmount(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	ctx := context.Background()

	t.Run("same token", func(t *testing.T) {
		res, err := c.GetEstimatedAmount(ctx, gno, gno, domain.KindSell, big.NewInt(1))
		require.NoError(t, err)
		require.True(t, res.IsError())
		assert.Equal(t, domain.ErrorResponse{
			ErrorType:   "SameBuyAndSellToken",
			Description: "Buy token is the same as the sell token.",
		}, *res.Failure)
		assert.Zero(t, api.count("markets"), "answered locally")
	})

	t.Run("unknown token", func(t *testing.T) {
		res, err := c.GetEstimatedAmount(ctx, unknown, gno, domain.KindSell, big.NewInt(1))
		require.NoError(t, err)
		require.True(t, res.IsError())
		assert.NotEmpty(t, res.Failure.ErrorType)
		assert.NotEmpty(t, res.Failure.Description)
	})

	t.Run("priced", func(t *testing.T) {
		oneGNO := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
		res, err := c.GetEstimatedAmount(ctx, gno, weth, domain.KindSell, oneGNO)
		require.NoError(t, err)
		require.False(t, res.IsError())

		amount, _ := new(big.Float).Quo(new(big.Float).SetInt(res.Value.Amount.Big()), new(big.Float).SetInt(oneGNO)).Float64()
		assert.Greater(t, amount, 0.0)
		assert.Less(t, amount, 1.0)
		assert.Equal(t, weth, res.Value.Token)
	})

	t.Run("non positive amount", func(t *testing.T) {
		_, err := c.GetEstimatedAmount(ctx, gno, weth, domain.KindSell, big.NewInt(0))
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
	})
}

func TestGetFee(t *testing.T) {
	c := newTestClient(t, newFakeAPI())
	ctx := context.Background()

	fee, err := c.GetFee(ctx, *sellWETHForDAI())
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000", fee.String())

	o := sellWETHForDAI()
	o.SellToken = unknown
	fee, err = c.GetFee(ctx, *o)
	require.NoError(t, err)
	assert.Equal(t, 0, fee.Sign(), "error-shaped response yields 0")
}

func TestGetTrades_FixedShape(t *testing.T) {
	c := newTestClient(t, newFakeAPI())

	uid, err := domain.ParseOrderUID(tradeUID)
	require.NoError(t, err)

	res, err := c.GetTrades(context.Background(), domain.TradesQuery{OrderUID: &uid})
	require.NoError(t, err)
	require.False(t, res.IsError())
	require.Len(t, res.Value, 1)

	tr := res.Value[0]
	assert.Equal(t, uint64(9269212), tr.BlockNumber)
	assert.Equal(t, uint64(0), tr.LogIndex)
	assert.Equal(t, uid, tr.OrderUID)
	assert.Equal(t, "480792", tr.BuyAmount.String())
	assert.Equal(t, "400000000200001", tr.SellAmount.String())
	assert.Equal(t, "1", tr.SellAmountBeforeFees.String())
	assert.Equal(t, common.HexToAddress("0x5ac255889882acd3da2aa939679e3f3d4cea221e"), tr.Owner)
	assert.Equal(t, rinkebyDAI, tr.BuyToken)
	assert.Equal(t, common.HexToAddress("0xc778417e063141139fce010982780140aa0cd5ab"), tr.SellToken)
	assert.Equal(t, common.HexToHash("0x4c888ddeac38b195c9ff7220b61df836a49f8fe2fd9a448da2caf56308db1c61"), tr.TxHash)
}

func TestGetTrades_ByOwner(t *testing.T) {
	c := newTestClient(t, newFakeAPI())

	owner := common.HexToAddress("0x5ac255889882acd3da2aa939679e3f3d4cea221e")
	res, err := c.GetTrades(context.Background(), domain.TradesQuery{Owner: &owner})
	require.NoError(t, err)
	require.False(t, res.IsError())
	assert.Empty(t, res.Value)

	_, err = c.GetTrades(context.Background(), domain.TradesQuery{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}

func TestGetTrades_ErrorBodyIsValue(t *testing.T) {
	c := rejectingAPI(t, "InvalidOrderUid", "bad uid")

	uid, err := domain.ParseOrderUID(tradeUID)
	require.NoError(t, err)

	res, err := c.GetTrades(context.Background(), domain.TradesQuery{OrderUID: &uid})
	require.NoError(t, err)
	require.True(t, res.IsError())
	assert.Equal(t, "InvalidOrderUid", res.Failure.ErrorType)
	assert.Equal(t, "bad uid", res.Failure.Description)
}

func TestPlaceOrder_SameTokenKeepsZeroFee(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	order := sellWETHForDAI()
	order.BuyToken = order.SellToken

	res, err := c.PlaceOrder(context.Background(), order, key)
	require.NoError(t, err)
	require.True(t, res.IsError())
	assert.Equal(t, domain.ErrorSameBuyAndSellToken, res.Failure.ErrorType)
	assert.Equal(t, 0, order.FeeAmount.Sign())
	assert.Zero(t, api.count("place"))
}

func TestPlaceOrder_InsufficientBalance(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	order := sellWETHForDAI()
	res, err := c.PlaceOrder(context.Background(), order, key)
	require.NoError(t, err)
	require.True(t, res.IsError())
	assert.Equal(t, domain.ErrorResponse{
		ErrorType:   "InsufficientBalance",
		Description: "order owner must have funds worth at least x in his account",
	}, *res.Failure)

	assert.Equal(t, "1500000000000000", order.FeeAmount.String(), "fee filled before signing")
	placed := api.submitted()
	require.Len(t, placed, 1)
	assert.Equal(t, "1500000000000000", placed[0].FeeAmount.String())
	assert.Equal(t, domain.SchemeEthSign, placed[0].SigningScheme)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), placed[0].From)
	assert.Nil(t, placed[0].Receiver)
}

func TestPlaceOrder_Accepted(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	api.fund(owner)

	order := sellWETHForDAI()
	order.FeeAmount = big.NewInt(7)

	res, err := c.PlaceOrder(context.Background(), order, key)
	require.NoError(t, err)
	require.False(t, res.IsError(), "%v", res.Failure)

	assert.Equal(t, owner, res.Value.Owner())
	assert.Equal(t, uint32(1900000000), res.Value.ValidTo())
	assert.Zero(t, api.count("fee"), "explicit fee is kept")

	digest, err := domain.NewSigningDomain(rinkebyChainID).Digest(*order)
	require.NoError(t, err)
	assert.Equal(t, digest, res.Value.Digest())
}

func TestPlaceOrder_EIP712Scheme(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	c, err := NewClient(Config{
		BaseURL: srv.URL + "/api/v1/",
		ChainID: rinkebyChainID,
		Scheme:  domain.SchemeEIP712,
	}, logger.NewNop())
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	api.fund(crypto.PubkeyToAddress(key.PublicKey))

	res, err := c.PlaceOrder(context.Background(), sellWETHForDAI(), key)
	require.NoError(t, err)
	require.False(t, res.IsError(), "%v", res.Failure)
	assert.Equal(t, domain.SchemeEIP712, api.submitted()[0].SigningScheme)
}

func TestPlaceOrder_InvalidOrder(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	order := sellWETHForDAI()
	order.Kind = "swap"
	_, err = c.PlaceOrder(context.Background(), order, key)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOrder))

	_, err = c.PlaceOrder(context.Background(), sellWETHForDAI(), nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidSignerKey))
	assert.Zero(t, api.count("place"))
}

func TestServerErrors_AreGoErrorsAndTripBreaker(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/api/v1/", ChainID: 1}, logger.NewNop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := c.GetOrders(context.Background(), weth)
		assert.True(t, apperror.HasCode(err, apperror.CodeExternalServiceError), "call %d: %v", i, err)
	}

	_, err = c.GetOrders(context.Background(), weth)
	assert.True(t, apperror.HasCode(err, apperror.CodeCircuitOpen), "got %v", err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, calls)
}

func TestBusinessRejections_DoNotTripBreaker(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)

	for i := 0; i < 8; i++ {
		res, err := c.GetEstimatedAmount(context.Background(), unknown, gno, domain.KindSell, big.NewInt(1))
		require.NoError(t, err)
		assert.True(t, res.IsError())
	}
	require.NoError(t, c.Ping(context.Background()))
}
