package domain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name   string
		rawIn  *big.Int
		decIn  uint8
		rawOut *big.Int
		decOut uint8
		want   string
	}{
		{
			name:   "same_decimals",
			rawIn:  new(big.Int).Mul(big.NewInt(2), pow10(18)),
			decIn:  18,
			rawOut: pow10(18),
			decOut: 18,
			want:   "0.5",
		},
		{
			name:   "usdc_to_dai",
			rawIn:  new(big.Int).Mul(big.NewInt(1_000_000), pow10(6)),
			decIn:  6,
			rawOut: new(big.Int).Mul(big.NewInt(999_000), pow10(18)),
			decOut: 18,
			want:   "0.999",
		},
		{
			name:   "weth_to_usdc",
			rawIn:  new(big.Int).Mul(big.NewInt(100), pow10(18)),
			decIn:  18,
			rawOut: new(big.Int).Mul(big.NewInt(340_000), pow10(6)),
			decOut: 6,
			want:   "3400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePrice(tt.rawIn, tt.decIn, tt.rawOut, tt.decOut)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalizePrice_EmptyPool(t *testing.T) {
	_, ok := NormalizePrice(big.NewInt(0), 18, big.NewInt(10), 18)
	assert.False(t, ok)

	_, ok = NormalizePrice(big.NewInt(10), 18, big.NewInt(0), 18)
	assert.False(t, ok)

	_, ok = NormalizePrice(nil, 18, big.NewInt(10), 18)
	assert.False(t, ok)
}

func TestSqrtPriceLeg(t *testing.T) {
	// sqrtPriceX96 = 2 * 2^96 means token1/token0 = 4 in raw units
	sqrtP := new(big.Int).Lsh(big.NewInt(2), 96)

	rawIn, rawOut := SqrtPriceLeg(sqrtP, true)
	price, ok := NormalizePrice(rawIn, 0, rawOut, 0)
	require.True(t, ok)
	assert.Equal(t, "4", price.String())

	rawIn, rawOut = SqrtPriceLeg(sqrtP, false)
	price, ok = NormalizePrice(rawIn, 0, rawOut, 0)
	require.True(t, ok)
	assert.Equal(t, "0.25", price.String())
}

func TestSqrtPriceLeg_DoesNotAliasQ192(t *testing.T) {
	rawIn, _ := SqrtPriceLeg(big.NewInt(1), true)
	rawIn.SetInt64(0)

	assert.Equal(t, 193, Q192.BitLen())
}
