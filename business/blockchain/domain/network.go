// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Network identifies an EVM chain by its chain ID.
type Network uint64

const (
	Unknown  Network = 0
	Mainnet  Network = 1
	Rinkeby  Network = 4
	Goerli   Network = 5
	Optimism Network = 10
	XDai     Network = 100
	Polygon  Network = 137
	Arbitrum Network = 42161
	Sepolia  Network = 11155111
)

// Deployment is a router/factory pair of an AMM.
type Deployment struct {
	Router  common.Address
	Factory common.Address
}

// Contracts are the well-known addresses of a network.
// A nil deployment or zero address means "not deployed here".
type Contracts struct {
	WrappedNative common.Address
	UniswapV3     *Deployment
	UniswapV2     *Deployment
	Sushiswap     *Deployment
	Settlement    common.Address
	OrderAPIURL   string
}

type networkInfo struct {
	name      string
	contracts Contracts
}

var (
	uniswapV3 = &Deployment{
		Router:  common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
		Factory: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
	}
	uniswapV2 = &Deployment{
		Router:  common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Factory: common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
	}
	sushiswapMainnet = &Deployment{
		Router:  common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"),
		Factory: common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"),
	}
	// Sushiswap uses the same addresses on every sidechain and testnet.
	sushiswapOther = &Deployment{
		Router:  common.HexToAddress("0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506"),
		Factory: common.HexToAddress("0xc35DADB65012eC5796536bD9864eD8773aBc74C4"),
	}
	settlement = common.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41")
)

const orderAPIBase = "https://api.cow.fi/"

var networks = map[Network]networkInfo{
	Mainnet: {"mainnet", Contracts{
		WrappedNative: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		UniswapV3:     uniswapV3,
		UniswapV2:     uniswapV2,
		Sushiswap:     sushiswapMainnet,
		Settlement:    settlement,
		OrderAPIURL:   orderAPIBase + "mainnet/api/v1/",
	}},
	Rinkeby: {"rinkeby", Contracts{
		WrappedNative: common.HexToAddress("0xc778417E063141139Fce010982780140Aa0cD5Ab"),
		UniswapV3:     uniswapV3,
		UniswapV2:     uniswapV2,
		Sushiswap:     sushiswapOther,
		Settlement:    settlement,
		OrderAPIURL:   orderAPIBase + "rinkeby/api/v1/",
	}},
	Goerli: {"goerli", Contracts{
		WrappedNative: common.HexToAddress("0xB4FBF271143F4FBf7B91A5ded31805e42b2208d6"),
		UniswapV3:     uniswapV3,
		UniswapV2:     uniswapV2,
		Sushiswap:     sushiswapOther,
		Settlement:    settlement,
		OrderAPIURL:   orderAPIBase + "goerli/api/v1/",
	}},
	Optimism: {"optimism", Contracts{
		WrappedNative: common.HexToAddress("0x4200000000000000000000000000000000000006"),
		UniswapV3:     uniswapV3,
	}},
	XDai: {"xdai", Contracts{
		WrappedNative: common.HexToAddress("0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d"),
		Sushiswap:     sushiswapOther,
		Settlement:    settlement,
		OrderAPIURL:   orderAPIBase + "xdai/api/v1/",
	}},
	Polygon: {"polygon", Contracts{
		WrappedNative: common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
		UniswapV3:     uniswapV3,
		Sushiswap:     sushiswapOther,
	}},
	Arbitrum: {"arbitrum_one", Contracts{
		WrappedNative: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		UniswapV3:     uniswapV3,
		Sushiswap:     sushiswapOther,
		Settlement:    settlement,
		OrderAPIURL:   orderAPIBase + "arbitrum_one/api/v1/",
	}},
	Sepolia: {"sepolia", Contracts{
		WrappedNative: common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
		UniswapV3: &Deployment{
			Router:  common.HexToAddress("0x3bFA4769FB09eefC5a80d6E87c3B9C650f7Ae48E"),
			Factory: common.HexToAddress("0x0227628f3F023bb0B980b67D528571c95c6DaC1c"),
		},
		Settlement:  settlement,
		OrderAPIURL: orderAPIBase + "sepolia/api/v1/",
	}},
}

var aliases = map[string]Network{
	"ethereum": Mainnet,
	"gnosis":   XDai,
	"arbitrum": Arbitrum,
	"matic":    Polygon,
}

// ChainID returns the EIP-155 chain ID.
func (n Network) ChainID() uint64 { return uint64(n) }

// IsKnown reports whether n has an address table.
func (n Network) IsKnown() bool {
	_, ok := networks[n]
	return ok
}

// String returns the network name, or "chain-<id>" for unknown networks.
func (n Network) String() string {
	if info, ok := networks[n]; ok {
		return info.name
	}
	return "chain-" + strconv.FormatUint(uint64(n), 10)
}

// Contracts returns the address table of n.
//
// Unknown networks (local nodes, mainnet forks) get the mainnet table with
// ok=false: callers still verify bytecode before relying on any address.
func (n Network) Contracts() (Contracts, bool) {
	if info, ok := networks[n]; ok {
		return info.contracts, true
	}
	return networks[Mainnet].contracts, false
}

// FromChainID maps a chain ID to a Network. The result may be unknown.
func FromChainID(id uint64) Network {
	return Network(id)
}

// ParseNetwork accepts a network name, an alias or a decimal chain ID.
func ParseNetwork(s string) (Network, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := aliases[s]; ok {
		return n, nil
	}
	for n, info := range networks {
		if info.name == s {
			return n, nil
		}
	}
	if id, err := strconv.ParseUint(s, 10, 64); err == nil && id != 0 {
		return Network(id), nil
	}
	return Unknown, fmt.Errorf("unknown network %q", s)
}

// Networks returns all known networks ordered by chain ID.
func Networks() []Network {
	out := make([]Network, 0, len(networks))
	for n := range networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
