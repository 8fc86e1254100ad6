package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs of the supported networks.
const (
	ChainIDMainnet  uint64 = 1
	ChainIDRinkeby  uint64 = 4
	ChainIDGoerli   uint64 = 5
	ChainIDOptimism uint64 = 10
	ChainIDXDai     uint64 = 100
	ChainIDPolygon  uint64 = 137
	ChainIDArbitrum uint64 = 42161
	ChainIDSepolia  uint64 = 11155111
)

// Frequently referenced mainnet tokens.
var (
	AddrWETHMainnet = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrUSDCMainnet = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTMainnet = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAIMainnet  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrWBTCMainnet = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	AddrGNOMainnet  = common.HexToAddress("0x6810e776880C02933D47DB1b9fc05908e5386b96")
)

type tokenSpec struct {
	addr     string
	symbol   string
	name     string
	decimals uint8
}

var wellKnownTokens = map[uint64][]tokenSpec{
	ChainIDMainnet: {
		{AddrWETHMainnet.Hex(), "WETH", "Wrapped Ether", 18},
		{AddrUSDCMainnet.Hex(), "USDC", "USD Coin", 6},
		{AddrUSDTMainnet.Hex(), "USDT", "Tether USD", 6},
		{AddrDAIMainnet.Hex(), "DAI", "Dai Stablecoin", 18},
		{AddrWBTCMainnet.Hex(), "WBTC", "Wrapped BTC", 8},
		{AddrGNOMainnet.Hex(), "GNO", "Gnosis Token", 18},
	},
	ChainIDRinkeby: {
		{"0xc778417E063141139Fce010982780140Aa0cD5Ab", "WETH", "Wrapped Ether", 18},
		{"0xc7AD46e0b8a400Bb3C915120d284AafbA8fc4735", "DAI", "Dai Stablecoin", 18},
	},
	ChainIDGoerli: {
		{"0xB4FBF271143F4FBf7B91A5ded31805e42b2208d6", "WETH", "Wrapped Ether", 18},
		{"0x07865c6E87B9F70255377e024ace6630C1Eaa37F", "USDC", "USD Coin", 6},
	},
	ChainIDOptimism: {
		{"0x4200000000000000000000000000000000000006", "WETH", "Wrapped Ether", 18},
		{"0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", "USDC", "USD Coin", 6},
		{"0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", "DAI", "Dai Stablecoin", 18},
	},
	ChainIDXDai: {
		{"0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d", "WXDAI", "Wrapped XDAI", 18},
		{"0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83", "USDC", "USD Coin", 6},
		{"0x6A023CCd1ff6F2045C3309768eAd9E68F978f6e1", "WETH", "Wrapped Ether", 18},
		{"0x9C58BAcC331c9aa871AFD802DB6379a98e80CEdb", "GNO", "Gnosis Token", 18},
	},
	ChainIDPolygon: {
		{"0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", "WMATIC", "Wrapped Matic", 18},
		{"0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", "USDC", "USD Coin (PoS)", 6},
		{"0xc2132D05D31c914a87C6611C10748AEb04B58e8F", "USDT", "Tether USD (PoS)", 6},
		{"0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", "WETH", "Wrapped Ether", 18},
		{"0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063", "DAI", "Dai Stablecoin (PoS)", 18},
	},
	ChainIDArbitrum: {
		{"0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", "WETH", "Wrapped Ether", 18},
		{"0xaf88d065e77c8cC2239327C5EDb3A432268e5831", "USDC", "USD Coin", 6},
		{"0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", "USDT", "Tether USD", 6},
		{"0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", "DAI", "Dai Stablecoin", 18},
	},
	ChainIDSepolia: {
		{"0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14", "WETH", "Wrapped Ether", 18},
		{"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", "USDC", "USD Coin", 6},
	},
}

var nativeCoins = map[uint64][2]string{
	ChainIDMainnet:  {"ETH", "Ether"},
	ChainIDRinkeby:  {"ETH", "Rinkeby Ether"},
	ChainIDGoerli:   {"ETH", "Goerli Ether"},
	ChainIDOptimism: {"ETH", "Ether"},
	ChainIDXDai:     {"XDAI", "xDai"},
	ChainIDPolygon:  {"MATIC", "Matic"},
	ChainIDArbitrum: {"ETH", "Ether"},
	ChainIDSepolia:  {"ETH", "Sepolia Ether"},
}

// DefaultRegistry returns a registry pre-populated with the native coin and
// well-known tokens of every supported network.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for chainID, coin := range nativeCoins {
		r.Register(NewNative(chainID, coin[0], coin[1]))
	}
	for chainID, tokens := range wellKnownTokens {
		for _, t := range tokens {
			r.Register(NewToken(chainID, common.HexToAddress(t.addr), t.symbol, t.name, t.decimals))
		}
	}

	return r
}
