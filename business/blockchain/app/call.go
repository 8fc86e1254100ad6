package app

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/internal/apperror"
)

// Call packs method with args, runs it against to and unpacks the result.
//
// An empty result (no code at to) is CONTRACT_CALL_FAILED like a revert.
// Output that does not match the ABI is CONTRACT_DECODE_FAILED. Reader
// errors are returned unchanged.
func Call(ctx context.Context, reader ChainReader, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	out, err := reader.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithMessage("empty result from "+method),
			apperror.WithContext(to.Hex()))
	}

	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractDecodeFailed,
			apperror.WithCause(err),
			apperror.WithContext(to.Hex()+"."+method))
	}
	return values, nil
}
