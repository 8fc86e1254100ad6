// Package app contains port definitions for the order protocol context.
package app

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/business/protocol/domain"
)

// OrderAPI is the off-chain order book of the batch-auction protocol.
//
// Business failures reported by the service (unknown token, same buy and
// sell token, insufficient balance) come back as Result failures. Go errors
// mean the request itself failed.
type OrderAPI interface {
	// GetOrders lists the orders placed by owner. Unused addresses yield an empty slice.
	GetOrders(ctx context.Context, owner common.Address) (domain.Result[[]domain.OrderRecord], error)

	// GetEstimatedAmount quotes the counter amount for selling (or buying) amount of sellToken.
	GetEstimatedAmount(ctx context.Context, sellToken, buyToken common.Address, kind domain.OrderKind, amount *big.Int) (domain.Result[domain.Estimate], error)

	// GetFee returns the fee for the order in sell token units, 0 when the
	// service cannot compute one.
	GetFee(ctx context.Context, order domain.Order) (*big.Int, error)

	// GetTrades lists settled trades by order UID or by owner.
	GetTrades(ctx context.Context, query domain.TradesQuery) (domain.Result[[]domain.Trade], error)

	// PlaceOrder signs and submits order. A zero FeeAmount is filled in
	// with GetFee before signing.
	PlaceOrder(ctx context.Context, order *domain.Order, key *ecdsa.PrivateKey) (domain.Result[domain.OrderUID], error)
}
