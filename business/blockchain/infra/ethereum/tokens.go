package ethereum

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/business/blockchain/app"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/cache"
	"github.com/fd1az/chain-oracles/internal/logger"
)

// erc20ABI covers the metadata getters only.
const erc20ABI = `[
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

var _ app.TokenResolver = (*TokenResolver)(nil)

// resolvedTokens bounds the tokens remembered outside the registry.
const resolvedTokens = 1024

// TokenResolver resolves token metadata from the asset registry first and
// from the ERC20 contract otherwise. On-chain answers are cached for the
// resolver's lifetime since decimals never change.
type TokenResolver struct {
	reader   app.ChainReader
	registry *asset.Registry
	logger   logger.LoggerInterface
	erc20    abi.ABI
	resolved *cache.Cache[common.Address, *asset.Asset]
}

// NewTokenResolver creates a resolver bound to reader's network.
func NewTokenResolver(reader app.ChainReader, registry *asset.Registry, log logger.LoggerInterface) (*TokenResolver, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}

	return &TokenResolver{
		reader:   reader,
		registry: registry,
		logger:   log,
		erc20:    parsed,
		resolved: cache.New[common.Address, *asset.Asset](resolvedTokens, 0),
	}, nil
}

// Resolve returns the asset for token. Addresses without a decimals() getter
// fail with TOKEN_DECIMALS_UNAVAILABLE; node failures propagate as transport errors.
func (t *TokenResolver) Resolve(ctx context.Context, token common.Address) (*asset.Asset, error) {
	chainID := t.reader.Network().ChainID()

	if a, ok := t.registry.GetToken(chainID, token); ok {
		return a, nil
	}
	if a, ok := t.resolved.Get(ctx, token); ok {
		return a, nil
	}

	decimals, err := t.decimals(ctx, token)
	if err != nil {
		return nil, err
	}

	var a *asset.Asset
	if symbol := t.symbol(ctx, token); symbol != "" {
		a = asset.NewToken(chainID, token, symbol, "", decimals)
	} else {
		a = asset.NewUnlabeledToken(chainID, token, decimals)
	}

	t.resolved.Set(ctx, token, a)
	t.logger.Debug(ctx, "resolved token from chain",
		"token", token.Hex(), "symbol", a.Symbol(), "decimals", decimals)

	return a, nil
}

func (t *TokenResolver) decimals(ctx context.Context, token common.Address) (uint8, error) {
	unavailable := func(cause error) error {
		return apperror.New(apperror.CodeTokenDecimalsUnavailable,
			apperror.WithCause(cause),
			apperror.WithContext(token.Hex()))
	}

	data, err := t.erc20.Pack("decimals")
	if err != nil {
		return 0, err
	}

	out, err := t.reader.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeContractCallFailed) {
			return 0, unavailable(err)
		}
		return 0, err
	}
	if len(out) == 0 {
		// no code at token, or a fallback that returns nothing
		return 0, unavailable(nil)
	}

	values, err := t.erc20.Unpack("decimals", out)
	if err != nil || len(values) != 1 {
		return 0, unavailable(err)
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, unavailable(nil)
	}
	return d, nil
}

// symbol is best effort: some tokens return bytes32 or nothing.
func (t *TokenResolver) symbol(ctx context.Context, token common.Address) string {
	data, err := t.erc20.Pack("symbol")
	if err != nil {
		return ""
	}
	out, err := t.reader.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil || len(out) == 0 {
		return ""
	}
	values, err := t.erc20.Unpack("symbol", out)
	if err != nil || len(values) != 1 {
		return ""
	}
	s, _ := values[0].(string)
	return strings.TrimSpace(s)
}
