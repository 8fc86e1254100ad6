package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	chainDomain "github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
)

// LegStatus is the outcome of pricing one pool.
type LegStatus int

const (
	LegOK LegStatus = iota
	LegNoPool
	LegNoLiquidity
)

// LegFunc prices one unit of in in units of out using a single pool.
type LegFunc func(ctx context.Context, in, out common.Address) (decimal.Decimal, LegStatus, error)

// unusableCodes mark a pool or token that answered but cannot be priced
// from: a token without decimals(), a reverted or undecodable pool call.
var unusableCodes = []apperror.Code{
	apperror.CodeTokenDecimalsUnavailable,
	apperror.CodeContractCallFailed,
	apperror.CodeContractDecodeFailed,
}

// settleLeg reports unusable pools and tokens as LegNoPool so they read as
// "no pool" to callers. Transport errors are returned unchanged.
func settleLeg(price decimal.Decimal, status LegStatus, err error) (decimal.Decimal, LegStatus, error) {
	if err == nil || chainDomain.IsTransportError(err) {
		return price, status, err
	}
	for _, code := range unusableCodes {
		if apperror.HasCode(err, code) {
			return decimal.Zero, LegNoPool, nil
		}
	}
	return price, status, err
}

// ResolvePrice tries the direct pool between base and quote, then the
// two-hop path through reference. It fails with CANNOT_GET_PRICE_FROM_ORACLE
// naming base and quote when neither route is usable, which includes pools
// whose tokens or state cannot be read. Other errors from leg stop the search.
func ResolvePrice(ctx context.Context, source string, reference common.Address, q domain.PriceQuery, rawLeg LegFunc) (decimal.Decimal, error) {
	leg := func(ctx context.Context, in, out common.Address) (decimal.Decimal, LegStatus, error) {
		return settleLeg(rawLeg(ctx, in, out))
	}

	price, status, err := leg(ctx, q.Base, q.Quote)
	if err != nil {
		return decimal.Zero, err
	}
	if status == LegOK {
		return price, nil
	}
	noLiquidity := status == LegNoLiquidity

	if q.Base != reference && q.Quote != reference {
		first, status, err := leg(ctx, q.Base, reference)
		if err != nil {
			return decimal.Zero, err
		}
		noLiquidity = noLiquidity || status == LegNoLiquidity

		if status == LegOK {
			second, status, err := leg(ctx, reference, q.Quote)
			if err != nil {
				return decimal.Zero, err
			}
			if status == LegOK {
				return first.Mul(second), nil
			}
			noLiquidity = noLiquidity || status == LegNoLiquidity
		}
	}

	return decimal.Zero, domain.NewCannotGetPrice(source, q.Base, q.Quote, noLiquidity)
}
