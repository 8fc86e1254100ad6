package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/internal/asset"
)

// token resolves a symbol or address on chainID. Unregistered addresses get
// an unlabeled asset with unknown decimals.
type token struct {
	*asset.Asset
	known bool
}

func resolveToken(registry *asset.Registry, chainID uint64, s string) (token, error) {
	addr, a, ok := registry.Lookup(chainID, s)
	if ok {
		return token{Asset: a, known: true}, nil
	}
	if addr != (common.Address{}) {
		return token{Asset: asset.NewUnlabeledToken(chainID, addr, 0)}, nil
	}
	return token{}, fmt.Errorf("unknown token %q on chain %d", s, chainID)
}

// parseAmount reads a human-readable amount in t's units, or base units when raw is set.
func parseAmount(t token, s string, raw bool) (*big.Int, error) {
	if raw {
		v, ok := new(big.Int).SetString(s, 0)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("invalid raw amount %q", s)
		}
		return v, nil
	}
	if !t.known {
		return nil, fmt.Errorf("decimals of %s are unknown, pass the amount in base units with --raw", t.Address().Hex())
	}
	amt, err := asset.ParseString(t.Asset, s)
	if err != nil {
		return nil, err
	}
	return amt.Raw(), nil
}

// formatAmount renders base units in t's units when its decimals are known.
func formatAmount(t token, raw *big.Int) string {
	if !t.known {
		return raw.String() + " (base units)"
	}
	return asset.NewAmount(t.Asset, raw).String()
}
