package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe registry of known assets.
type Registry struct {
	byID     map[AssetID]*Asset
	bySymbol map[string][]*Asset // upper-cased symbol -> assets on different chains
	mu       sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[string][]*Asset),
	}
}

// Register adds an asset to the registry.
// Panics if an asset with the same ID is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.byID[id]; exists {
		panic(fmt.Sprintf("asset: %s already registered", id))
	}

	r.byID[id] = a
	key := strings.ToUpper(a.Symbol())
	r.bySymbol[key] = append(r.bySymbol[key], a)
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// GetNative retrieves the native coin for a chain.
func (r *Registry) GetNative(chainID uint64) (*Asset, bool) {
	return r.Get(NewNativeAssetID(chainID))
}

// GetToken retrieves a token by chain and address.
func (r *Registry) GetToken(chainID uint64, address common.Address) (*Asset, bool) {
	if address == (common.Address{}) {
		return nil, false
	}
	return r.Get(NewTokenAssetID(chainID, address))
}

// GetBySymbolAndChain retrieves a token by case-insensitive symbol on a chain.
// Native coins are skipped: they have no contract to price.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.bySymbol[strings.ToUpper(symbol)] {
		if a.ChainID() == chainID && !a.IsNative() {
			return a, true
		}
	}
	return nil, false
}

// Lookup resolves a token on chainID from either a hex address or a symbol.
// A well-formed address that is not registered returns its address with ok=false.
func (r *Registry) Lookup(chainID uint64, s string) (common.Address, *Asset, bool) {
	s = strings.TrimSpace(s)
	if common.IsHexAddress(s) {
		addr := common.HexToAddress(s)
		a, ok := r.GetToken(chainID, addr)
		return addr, a, ok
	}
	if a, ok := r.GetBySymbolAndChain(s, chainID); ok {
		return a.Address(), a, true
	}
	return common.Address{}, nil, false
}

// OnChain returns all registered tokens of a chain.
func (r *Registry) OnChain(chainID uint64) []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Asset
	for id, a := range r.byID {
		if id.ChainID() == chainID && !id.IsNative() {
			out = append(out, a)
		}
	}
	return out
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
