package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/internal/apperror"
)

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		input   string
		want    Network
		wantErr bool
	}{
		{"mainnet", Mainnet, false},
		{" Goerli ", Goerli, false},
		{"gnosis", XDai, false},
		{"xdai", XDai, false},
		{"arbitrum", Arbitrum, false},
		{"arbitrum_one", Arbitrum, false},
		{"11155111", Sepolia, false},
		{"31337", Network(31337), false},
		{"0", Unknown, true},
		{"moonbeam", Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNetwork(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNetwork(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseNetwork(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNetwork_String(t *testing.T) {
	if Arbitrum.String() != "arbitrum_one" {
		t.Errorf("unexpected name %q", Arbitrum.String())
	}
	if Network(1337).String() != "chain-1337" {
		t.Errorf("unexpected name %q", Network(1337).String())
	}
}

func TestNetwork_Contracts(t *testing.T) {
	c, ok := Mainnet.Contracts()
	if !ok {
		t.Fatal("expected mainnet to be known")
	}
	if c.WrappedNative != common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2") {
		t.Errorf("unexpected WETH %s", c.WrappedNative.Hex())
	}
	if c.OrderAPIURL != "https://api.cow.fi/mainnet/api/v1/" {
		t.Errorf("unexpected order API URL %q", c.OrderAPIURL)
	}

	xdai, _ := XDai.Contracts()
	if xdai.UniswapV3 != nil {
		t.Error("expected no Uniswap V3 deployment on xdai")
	}
	if xdai.Sushiswap == nil || xdai.Sushiswap.Router != common.HexToAddress("0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506") {
		t.Error("expected sidechain Sushiswap router on xdai")
	}

	dev, ok := Network(1337).Contracts()
	if ok {
		t.Error("expected unknown network")
	}
	if dev.UniswapV3 == nil || dev.UniswapV3.Router != common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564") {
		t.Error("expected unknown networks to fall back to the mainnet table")
	}
}

func TestNetworks_Sorted(t *testing.T) {
	ns := Networks()
	if len(ns) != 8 {
		t.Fatalf("expected 8 networks, got %d", len(ns))
	}
	for i := 1; i < len(ns); i++ {
		if ns[i-1] >= ns[i] {
			t.Fatalf("networks not sorted: %v", ns)
		}
	}
}

func TestIsTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), false},
		{"rpc", NewRPCError("eth_call", errors.New("refused")), true},
		{"wrapped circuit", fmt.Errorf("call: %w", apperror.New(apperror.CodeCircuitOpen)), true},
		{"business", apperror.New(apperror.CodeCannotGetPriceFromOracle), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransportError(tt.err); got != tt.want {
				t.Errorf("IsTransportError() = %v, want %v", got, tt.want)
			}
		})
	}
}
