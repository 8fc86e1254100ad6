package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/asset"
)

func TestParsePair_Symbols(t *testing.T) {
	p, err := ParsePair("WETH/USDC", asset.DefaultRegistry(), asset.ChainIDMainnet)
	require.NoError(t, err)

	assert.Equal(t, asset.AddrWETHMainnet, p.Base.Address())
	assert.Equal(t, asset.AddrUSDCMainnet, p.Quote.Address())
	assert.Equal(t, "WETH/USDC", p.String())
	assert.Equal(t, asset.AddrWETHMainnet, p.Query().Base)
	assert.Equal(t, asset.AddrUSDCMainnet, p.Query().Quote)
}

func TestParsePair_UnregisteredAddress(t *testing.T) {
	addr := common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984")

	p, err := ParsePair(addr.Hex()+"/DAI", asset.DefaultRegistry(), asset.ChainIDMainnet)
	require.NoError(t, err)

	assert.Equal(t, addr, p.Base.Address())
	assert.Equal(t, "0x1f98..F984/DAI", p.String())
}

func TestParsePair_Errors(t *testing.T) {
	registry := asset.DefaultRegistry()

	tests := []struct {
		name string
		in   string
		code apperror.Code
	}{
		{"no separator", "WETHUSDC", apperror.CodeInvalidFormat},
		{"too many parts", "WETH/USDC/DAI", apperror.CodeInvalidFormat},
		{"unknown symbol", "WETH/NOPE", apperror.CodeNotFound},
		{"symbol of another chain", "WMATIC/USDC", apperror.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePair(tt.in, registry, asset.ChainIDMainnet)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestParsePairs_StopsOnFirstError(t *testing.T) {
	_, err := ParsePairs([]string{"WETH/USDC", "bad"}, asset.DefaultRegistry(), asset.ChainIDMainnet)
	assert.Error(t, err)

	pairs, err := ParsePairs([]string{"WETH/USDC", "WBTC/DAI"}, asset.DefaultRegistry(), asset.ChainIDMainnet)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestChangeBps(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur string
		want      string
		dir       Direction
	}{
		{"up one percent", "2000", "2020", "100", DirectionUp},
		{"down half a percent", "2000", "1990", "-50", DirectionDown},
		{"unchanged", "1.5", "1.5", "0", DirectionFlat},
		{"no previous price", "0", "1.5", "0", DirectionFlat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangeBps(decimal.RequireFromString(tt.prev), decimal.RequireFromString(tt.cur))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
			assert.Equal(t, tt.dir, DirectionOf(got))
		})
	}
}

func TestSnapshot_Counts(t *testing.T) {
	snap := Snapshot{Rows: []Row{
		{Cached: true},
		{Err: assert.AnError},
		{},
	}}
	assert.Equal(t, 1, snap.Failed())
	assert.Equal(t, 1, snap.Cached())
}
