package asset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Price is an observed exchange rate: units of quote per one unit of base.
type Price struct {
	rate      decimal.Decimal
	base      *Asset
	quote     *Asset
	source    string
	timestamp time.Time
}

// NewPrice creates a price observation.
func NewPrice(base, quote *Asset, rate decimal.Decimal, source string, timestamp time.Time) Price {
	if base == nil || quote == nil {
		panic("asset: nil base or quote in price")
	}
	if rate.IsNegative() {
		panic("asset: negative price rate")
	}
	return Price{rate: rate, base: base, quote: quote, source: source, timestamp: timestamp}
}

func (p Price) Rate() decimal.Decimal { return p.rate }
func (p Price) Base() *Asset          { return p.base }
func (p Price) Quote() *Asset         { return p.quote }
func (p Price) Source() string        { return p.source }
func (p Price) Timestamp() time.Time  { return p.timestamp }
func (p Price) IsZero() bool          { return p.rate.IsZero() }

// Float64 returns the rate as a float64.
func (p Price) Float64() float64 {
	f, _ := p.rate.Float64()
	return f
}

// Pair returns e.g. "WETH/USDC".
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

// Invert returns the quote/base price. A zero price inverts to zero.
func (p Price) Invert() Price {
	inv := decimal.Zero
	if !p.rate.IsZero() {
		inv = decimal.NewFromInt(1).DivRound(p.rate, 36)
	}
	return Price{rate: inv, base: p.quote, quote: p.base, source: p.source, timestamp: p.timestamp}
}

// IsStale returns true if the price is older than maxAge.
func (p Price) IsStale(maxAge time.Duration) bool {
	return time.Since(p.timestamp) > maxAge
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.rate.String(), p.Pair())
}
