package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/chain-oracles/internal/apperror"
)

func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr bool
	}{
		{"valid", func(*Order) {}, false},
		{"same tokens are left to the API", func(o *Order) { o.BuyToken = o.SellToken }, false},
		{"missing sell token", func(o *Order) { o.SellToken = common.Address{} }, true},
		{"missing buy amount", func(o *Order) { o.BuyAmount = nil }, true},
		{"zero sell amount", func(o *Order) { o.SellAmount = big.NewInt(0) }, true},
		{"negative fee", func(o *Order) { o.FeeAmount = big.NewInt(-1) }, true},
		{"no expiry", func(o *Order) { o.ValidTo = 0 }, true},
		{"bad kind", func(o *Order) { o.Kind = "swap" }, true},
		{"bad balance", func(o *Order) { o.BuyTokenBalance = BalanceExternal }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOrder()
			tt.mutate(&o)
			err := o.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOrder), "got %v", err)
		})
	}
}

func TestTradesQuery_Validate(t *testing.T) {
	uid := NewOrderUID(common.Hash{1}, common.Address{2}, 3)
	owner := common.Address{2}

	assert.NoError(t, TradesQuery{OrderUID: &uid}.Validate())
	assert.NoError(t, TradesQuery{Owner: &owner}.Validate())
	assert.Error(t, TradesQuery{}.Validate())
	assert.Error(t, TradesQuery{OrderUID: &uid, Owner: &owner}.Validate())
}

func TestParseOrderKind(t *testing.T) {
	k, err := ParseOrderKind("buy")
	assert.NoError(t, err)
	assert.Equal(t, KindBuy, k)

	_, err = ParseOrderKind("BUY")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}

func TestResult(t *testing.T) {
	ok := Ok(42)
	assert.False(t, ok.IsError())
	assert.Equal(t, 42, ok.Value)

	failed := Fail[int](SameBuyAndSellToken())
	assert.True(t, failed.IsError())
	assert.Equal(t, ErrorSameBuyAndSellToken, failed.Failure.ErrorType)
	assert.Equal(t, "SameBuyAndSellToken: Buy token is the same as the sell token.", failed.Failure.String())
}
