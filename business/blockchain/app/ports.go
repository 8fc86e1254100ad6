// Package app contains the port definitions of the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/internal/asset"
)

// ChainReader is the read-only view of a node that oracles depend on.
// Implementations must be safe for concurrent use.
type ChainReader interface {
	// Network is the network the reader is connected to.
	Network() domain.Network

	// ContractExists reports whether bytecode is deployed at addr (latest block).
	ContractExists(ctx context.Context, addr common.Address) (bool, error)

	// CallContract executes an eth_call. A nil block means latest.
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
}

// TokenResolver returns token metadata, decimals in particular.
type TokenResolver interface {
	Resolve(ctx context.Context, token common.Address) (*asset.Asset, error)
}

// HeadSubscriber streams new chain heads. Consumers use heads as a refresh
// signal only: the stream may skip blocks and is not reorg-aware.
type HeadSubscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.Head, error)
	Close() error
}
