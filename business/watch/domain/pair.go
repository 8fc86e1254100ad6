// Package domain contains the core domain types for the watch context.
package domain

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	pricing "github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/asset"
)

// Pair is a watched market. Tokens given by address that the registry does
// not know get an unlabeled asset.
type Pair struct {
	Base  *asset.Asset
	Quote *asset.Asset
}

// ParsePair accepts "BASE/QUOTE" where each side is a symbol or an address.
func ParsePair(s string, registry *asset.Registry, chainID uint64) (Pair, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return Pair{}, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithMessage("pair must look like BASE/QUOTE"),
			apperror.WithContext(s))
	}

	base, err := resolve(parts[0], registry, chainID)
	if err != nil {
		return Pair{}, err
	}
	quote, err := resolve(parts[1], registry, chainID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Base: base, Quote: quote}, nil
}

// ParsePairs parses every entry, failing on the first bad one.
func ParsePairs(specs []string, registry *asset.Registry, chainID uint64) ([]Pair, error) {
	pairs := make([]Pair, 0, len(specs))
	for _, s := range specs {
		p, err := ParsePair(s, registry, chainID)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func resolve(s string, registry *asset.Registry, chainID uint64) (*asset.Asset, error) {
	addr, a, ok := registry.Lookup(chainID, s)
	if ok {
		return a, nil
	}
	if addr != (common.Address{}) {
		return asset.NewUnlabeledToken(chainID, addr, 0), nil
	}
	return nil, apperror.New(apperror.CodeNotFound,
		apperror.WithMessage("unknown token "+strings.TrimSpace(s)),
		apperror.WithContext("chain "+strconv.FormatUint(chainID, 10)))
}

// Query returns the price query of the pair.
func (p Pair) Query() pricing.PriceQuery {
	return pricing.PriceQuery{Base: p.Base.Address(), Quote: p.Quote.Address()}
}

func (p Pair) String() string {
	return p.Base.Symbol() + "/" + p.Quote.Symbol()
}
