package uniswapv2

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// FactoryABI is the subset of UniswapV2Factory used for pair lookup.
// Sushiswap deploys the same interface.
const FactoryABI = `[
	{
		"constant": true,
		"inputs": [
			{"internalType": "address", "name": "", "type": "address"},
			{"internalType": "address", "name": "", "type": "address"}
		],
		"name": "getPair",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// PairABI is the subset of UniswapV2Pair state the oracle reads.
const PairABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "_reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "_reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "_blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	factoryABI = mustParse(FactoryABI)
	pairABI    = mustParse(PairABI)
)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("uniswapv2: invalid ABI: " + err.Error())
	}
	return parsed
}
