// Package domain holds the order API types of the batch-auction protocol:
// orders, their UIDs and signatures, trades and the API's error values.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/fd1az/chain-oracles/internal/apperror"
)

// OrderKind says which side of an order is fixed.
type OrderKind string

const (
	KindSell OrderKind = "sell"
	KindBuy  OrderKind = "buy"
)

// ParseOrderKind accepts "sell" or "buy".
func ParseOrderKind(s string) (OrderKind, error) {
	switch k := OrderKind(s); k {
	case KindSell, KindBuy:
		return k, nil
	}
	return "", apperror.New(apperror.CodeInvalidInput,
		apperror.WithMessage("order kind must be sell or buy"),
		apperror.WithContext(s))
}

// TokenBalance names where the settlement contract takes or puts tokens.
type TokenBalance string

const (
	BalanceERC20    TokenBalance = "erc20"
	BalanceExternal TokenBalance = "external"
	BalanceInternal TokenBalance = "internal"
)

// SigningScheme selects how the order digest is signed.
type SigningScheme string

const (
	SchemeEthSign SigningScheme = "ethsign"
	SchemeEIP712  SigningScheme = "eip712"
)

// ParseSigningScheme accepts "ethsign" or "eip712".
func ParseSigningScheme(s string) (SigningScheme, error) {
	switch sc := SigningScheme(s); sc {
	case SchemeEthSign, SchemeEIP712:
		return sc, nil
	}
	return "", apperror.New(apperror.CodeInvalidInput,
		apperror.WithMessage("signing scheme must be ethsign or eip712"),
		apperror.WithContext(s))
}

// Order is the signed intent submitted to the order API.
// A zero Receiver means the owner receives the bought tokens.
type Order struct {
	SellToken         common.Address `validate:"required"`
	BuyToken          common.Address `validate:"required"`
	Receiver          common.Address
	SellAmount        *big.Int `validate:"required"`
	BuyAmount         *big.Int `validate:"required"`
	ValidTo           uint32   `validate:"required"`
	AppData           common.Hash
	FeeAmount         *big.Int
	Kind              OrderKind `validate:"required,oneof=sell buy"`
	PartiallyFillable bool
	SellTokenBalance  TokenBalance `validate:"omitempty,oneof=erc20 external internal"`
	BuyTokenBalance   TokenBalance `validate:"omitempty,oneof=erc20 internal"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(orderAmounts, Order{})
	return v
}

func orderAmounts(sl validator.StructLevel) {
	o := sl.Current().Interface().(Order)
	if o.SellAmount != nil && o.SellAmount.Sign() <= 0 {
		sl.ReportError(o.SellAmount, "SellAmount", "SellAmount", "gt0", "")
	}
	if o.BuyAmount != nil && o.BuyAmount.Sign() <= 0 {
		sl.ReportError(o.BuyAmount, "BuyAmount", "BuyAmount", "gt0", "")
	}
	if o.FeeAmount != nil && o.FeeAmount.Sign() < 0 {
		sl.ReportError(o.FeeAmount, "FeeAmount", "FeeAmount", "gte0", "")
	}
}

// Validate checks the order is complete enough to sign.
func (o *Order) Validate() error {
	if err := validate.Struct(o); err != nil {
		return apperror.New(apperror.CodeInvalidOrder,
			apperror.WithCause(err),
			apperror.WithContext(o.SellToken.Hex()+"->"+o.BuyToken.Hex()))
	}
	return nil
}

// WithDefaults returns a copy with a zero fee and erc20 balances filled in.
func (o Order) WithDefaults() Order {
	if o.FeeAmount == nil {
		o.FeeAmount = new(big.Int)
	}
	if o.SellTokenBalance == "" {
		o.SellTokenBalance = BalanceERC20
	}
	if o.BuyTokenBalance == "" {
		o.BuyTokenBalance = BalanceERC20
	}
	return o
}

// OrderRecord is an order as stored by the order API.
type OrderRecord struct {
	UID                    OrderUID       `json:"uid"`
	Owner                  common.Address `json:"owner"`
	CreationDate           time.Time      `json:"creationDate"`
	SellToken              common.Address `json:"sellToken"`
	BuyToken               common.Address `json:"buyToken"`
	Receiver               common.Address `json:"receiver"`
	SellAmount             Amount         `json:"sellAmount"`
	BuyAmount              Amount         `json:"buyAmount"`
	ValidTo                uint32         `json:"validTo"`
	AppData                common.Hash    `json:"appData"`
	FeeAmount              Amount         `json:"feeAmount"`
	Kind                   OrderKind      `json:"kind"`
	PartiallyFillable      bool           `json:"partiallyFillable"`
	SigningScheme          SigningScheme  `json:"signingScheme"`
	Status                 string         `json:"status"`
	Invalidated            bool           `json:"invalidated"`
	ExecutedSellAmount     Amount         `json:"executedSellAmount"`
	ExecutedBuyAmount      Amount         `json:"executedBuyAmount"`
	ExecutedFeeAmount      Amount         `json:"executedFeeAmount"`
	SellTokenBalance       TokenBalance   `json:"sellTokenBalance"`
	BuyTokenBalance        TokenBalance   `json:"buyTokenBalance"`
	AvailableBalance       *Amount        `json:"availableBalance,omitempty"`
	ExecutedSellBeforeFees Amount         `json:"executedSellAmountBeforeFees"`
}

// Trade is one settlement event of an order.
type Trade struct {
	BlockNumber          uint64         `json:"blockNumber"`
	LogIndex             uint64         `json:"logIndex"`
	OrderUID             OrderUID       `json:"orderUid"`
	BuyAmount            Amount         `json:"buyAmount"`
	SellAmount           Amount         `json:"sellAmount"`
	SellAmountBeforeFees Amount         `json:"sellAmountBeforeFees"`
	Owner                common.Address `json:"owner"`
	BuyToken             common.Address `json:"buyToken"`
	SellToken            common.Address `json:"sellToken"`
	TxHash               common.Hash    `json:"txHash"`
}

// Estimate is the counter amount quoted for a sell or buy amount.
type Estimate struct {
	Amount Amount         `json:"amount"`
	Token  common.Address `json:"token"`
}

// TradesQuery selects trades by exactly one of order UID or owner.
type TradesQuery struct {
	OrderUID *OrderUID
	Owner    *common.Address
}

// Validate rejects queries with none or both filters set.
func (q TradesQuery) Validate() error {
	if (q.OrderUID == nil) == (q.Owner == nil) {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("trades query needs exactly one of order UID or owner"))
	}
	return nil
}
