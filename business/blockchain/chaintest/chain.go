// Package chaintest provides an in-memory ChainReader that answers eth_call at
// the ABI level, for testing code that reads contracts.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/business/blockchain/app"
	"github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
)

var _ app.ChainReader = (*Chain)(nil)

// Handler answers one method of one contract. args are the ABI-decoded inputs.
type Handler func(args []interface{}) ([]interface{}, error)

type method struct {
	abi     abi.Method
	handler Handler
}

// Chain is a fake node. Contracts are registered with Deploy and their
// methods with Handle. Unhandled calls to deployed contracts revert, calls to
// addresses without code return empty data like a real node. Errors carry
// the same codes the ethereum reader produces.
type Chain struct {
	network domain.Network

	mu        sync.RWMutex
	code      map[common.Address]bool
	methods   map[common.Address]map[[4]byte]method
	transport error

	calls atomic.Int64
}

// New creates an empty chain for network.
func New(network domain.Network) *Chain {
	return &Chain{
		network: network,
		code:    make(map[common.Address]bool),
		methods: make(map[common.Address]map[[4]byte]method),
	}
}

// Deploy marks addr as holding bytecode.
func (c *Chain) Deploy(addr common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[addr] = true
}

// Handle deploys addr and routes calls of name in contractABI to h.
func (c *Chain) Handle(addr common.Address, contractABI abi.ABI, name string, h Handler) {
	m, ok := contractABI.Methods[name]
	if !ok {
		panic(fmt.Sprintf("chaintest: method %s not in ABI", name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[addr] = true
	if c.methods[addr] == nil {
		c.methods[addr] = make(map[[4]byte]method)
	}
	var sel [4]byte
	copy(sel[:], m.ID)
	c.methods[addr][sel] = method{abi: m, handler: h}
}

// Returns is a Handler that always answers values.
func Returns(values ...interface{}) Handler {
	return func([]interface{}) ([]interface{}, error) { return values, nil }
}

// FailTransport makes every subsequent call fail as if the node were unreachable.
// A nil error restores normal operation.
func (c *Chain) FailTransport(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = err
}

// Calls returns the number of ContractExists and CallContract invocations.
func (c *Chain) Calls() int64 {
	return c.calls.Load()
}

// Network returns the configured network.
func (c *Chain) Network() domain.Network {
	return c.network
}

// ContractExists reports whether addr was deployed.
func (c *Chain) ContractExists(_ context.Context, addr common.Address) (bool, error) {
	c.calls.Add(1)

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.transport != nil {
		return false, domain.NewRPCError("eth_getCode", c.transport)
	}
	return c.code[addr], nil
}

// CallContract dispatches to the registered handler.
func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, domain.NewRPCError("eth_call", err)
	}

	c.mu.RLock()
	transport := c.transport
	deployed := msg.To != nil && c.code[*msg.To]
	var m method
	var found bool
	if msg.To != nil && len(msg.Data) >= 4 {
		var sel [4]byte
		copy(sel[:], msg.Data[:4])
		m, found = c.methods[*msg.To][sel]
	}
	c.mu.RUnlock()

	if transport != nil {
		return nil, domain.NewRPCError("eth_call", transport)
	}
	if !deployed {
		return nil, nil
	}
	if !found {
		return nil, revert("unknown selector")
	}

	args, err := m.abi.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("chaintest: decode %s args: %w", m.abi.Name, err)
	}
	out, err := m.handler(args)
	if err != nil {
		return nil, err
	}
	return m.abi.Outputs.Pack(out...)
}

// Revert returns the error a reader reports for a reverted call.
func Revert(reason string) error {
	return revert(reason)
}

func revert(reason string) error {
	return apperror.New(apperror.CodeContractCallFailed,
		apperror.WithCause(errors.New("execution reverted: "+strings.TrimSpace(reason))),
		apperror.WithContext("eth_call"))
}
