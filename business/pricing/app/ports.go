// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// PriceOracle derives token exchange rates from one on-chain liquidity source.
type PriceOracle interface {
	// Name identifies the source, e.g. "Uniswap V3".
	Name() string

	// ReferenceToken is the quote used when none is given, and the
	// intermediate hop for two-hop prices.
	ReferenceToken() common.Address

	// GetPrice returns units of quote per one unit of base. quote defaults
	// to ReferenceToken.
	GetPrice(ctx context.Context, base common.Address, quote ...common.Address) (float64, error)
}
