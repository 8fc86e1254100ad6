// Package asset models on-chain tokens and the amounts and prices denominated in them.
// The core uses big.Int for exact on-chain representation;
// decimal.Decimal is only used at boundaries (normalization, parsing, display).
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID uniquely identifies an asset by chain and contract address.
// For native coins (ETH, xDAI, MATIC) the address is zero.
type AssetID struct {
	chainID uint64
	address common.Address
}

// NewNativeAssetID creates an AssetID for a chain's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID creates an AssetID for an ERC20 token.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if addr == (common.Address{}) {
		panic("token address cannot be zero - use NewNativeAssetID for native coins")
	}
	return AssetID{chainID: chainID, address: addr}
}

// ChainID returns the chain the asset lives on.
func (id AssetID) ChainID() uint64 { return id.chainID }

// Address returns the token contract address (zero for native coins).
func (id AssetID) Address() common.Address { return id.address }

// IsNative returns true for a chain's native coin.
func (id AssetID) IsNative() bool { return id.address == (common.Address{}) }

func (id AssetID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.chainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

// Asset is the metadata of a token. The symbol is display metadata, not identity.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates a new Asset.
func NewAsset(id AssetID, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 77 {
		// 10^78 overflows uint256
		panic("asset: decimals out of range")
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}
}

// NewToken creates an ERC20 asset.
func NewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	return NewAsset(NewTokenAssetID(chainID, address), symbol, name, decimals)
}

// NewUnlabeledToken creates an asset for a token that is only known by address.
// Its symbol is the abbreviated address.
func NewUnlabeledToken(chainID uint64, address common.Address, decimals uint8) *Asset {
	hex := address.Hex()
	return NewToken(chainID, address, hex[:6]+".."+hex[len(hex)-4:], "", decimals)
}

// NewNative creates a native coin asset.
func NewNative(chainID uint64, symbol, name string) *Asset {
	return NewAsset(NewNativeAssetID(chainID), symbol, name, 18)
}

func (a *Asset) ID() AssetID             { return a.id }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) ChainID() uint64         { return a.id.ChainID() }
func (a *Asset) Address() common.Address { return a.id.Address() }
func (a *Asset) IsNative() bool          { return a.id.IsNative() }
func (a *Asset) String() string          { return a.symbol }

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Equals compares two Assets by their ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}
