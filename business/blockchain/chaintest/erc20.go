package chaintest

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ERC20ABI holds the metadata getters of ERC20.
var ERC20ABI = mustABI(`[
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`)

// AddERC20 deploys a token answering decimals() and symbol().
func (c *Chain) AddERC20(addr common.Address, symbol string, decimals uint8) {
	c.Handle(addr, ERC20ABI, "decimals", Returns(decimals))
	if symbol != "" {
		c.Handle(addr, ERC20ABI, "symbol", Returns(symbol))
	}
}

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
