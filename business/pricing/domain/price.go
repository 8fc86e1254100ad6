// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Source names reported by the oracles and used in error messages.
const (
	SourceUniswapV3 = "Uniswap V3"
	SourceUniswapV2 = "Uniswap V2"
	SourceSushiswap = "Sushiswap"
)

// PriceQuery asks for the amount of Quote one unit of Base is worth.
type PriceQuery struct {
	Base  common.Address
	Quote common.Address
}

// NewPriceQuery builds a query. When quote is omitted the reference token is used.
func NewPriceQuery(base, reference common.Address, quote ...common.Address) PriceQuery {
	q := PriceQuery{Base: base, Quote: reference}
	if len(quote) > 0 {
		q.Quote = quote[0]
	}
	return q
}

// IsIdentity reports whether base and quote are the same token.
func (q PriceQuery) IsIdentity() bool {
	return q.Base == q.Quote
}

// Inverse swaps base and quote.
func (q PriceQuery) Inverse() PriceQuery {
	return PriceQuery{Base: q.Quote, Quote: q.Base}
}

// String returns "<base>/<quote>" with checksummed addresses.
func (q PriceQuery) String() string {
	return q.Base.Hex() + "/" + q.Quote.Hex()
}

// Quote is a price answered by one source.
type Quote struct {
	Query     PriceQuery
	Price     float64
	Source    string
	Cached    bool
	Timestamp time.Time
}
