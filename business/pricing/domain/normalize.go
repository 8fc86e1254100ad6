package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of decimal places kept when dividing raw amounts.
const DivisionPrecision = 36

// Q192 is 2^192, the denominator of a squared Uniswap V3 sqrtPriceX96.
var Q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// NormalizePrice converts raw integer amounts into units of out per unit of in:
//
//	price = rawOut / 10^decOut * 10^decIn / rawIn
//
// The result is false when either amount is zero, meaning the pool is empty.
func NormalizePrice(rawIn *big.Int, decIn uint8, rawOut *big.Int, decOut uint8) (decimal.Decimal, bool) {
	if rawIn == nil || rawOut == nil || rawIn.Sign() <= 0 || rawOut.Sign() <= 0 {
		return decimal.Zero, false
	}

	in := decimal.NewFromBigInt(rawIn, -int32(decIn))
	out := decimal.NewFromBigInt(rawOut, -int32(decOut))
	return out.DivRound(in, DivisionPrecision), true
}

// SqrtPriceLeg returns the raw in/out amounts implied by a Uniswap V3 pool
// price. zeroForOne is true when the in token is the pool's token0.
func SqrtPriceLeg(sqrtPriceX96 *big.Int, zeroForOne bool) (rawIn, rawOut *big.Int) {
	squared := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	if zeroForOne {
		return new(big.Int).Set(Q192), squared
	}
	return squared, new(big.Int).Set(Q192)
}

// ToFloat converts a normalized price at the API boundary.
func ToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
