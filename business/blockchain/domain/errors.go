package domain

import (
	"github.com/fd1az/chain-oracles/internal/apperror"
)

// transportCodes are the codes of failures reaching the node, as opposed to
// business answers such as "no pool".
var transportCodes = []apperror.Code{
	apperror.CodeEthereumRPCError,
	apperror.CodeEthereumConnectionFailed,
	apperror.CodeCircuitOpen,
	apperror.CodeServiceTimeout,
}

// IsTransportError reports whether err means the node could not be reached
// or answered with an RPC-level failure.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	for _, code := range transportCodes {
		if apperror.HasCode(err, code) {
			return true
		}
	}
	return false
}

// NewRPCError wraps a failed JSON-RPC call.
func NewRPCError(method string, cause error) error {
	return apperror.New(apperror.CodeEthereumRPCError,
		apperror.WithCause(cause),
		apperror.WithContext(method),
	)
}
