// Package di contains dependency injection tokens for the protocol context.
package di

import (
	"github.com/fd1az/chain-oracles/business/protocol/app"
	"github.com/fd1az/chain-oracles/internal/di"
)

// Public service tokens - exposed to other modules
var (
	OrderAPI = di.NewToken[app.OrderAPI]("protocol.OrderAPI")
)

func GetOrderAPI(c di.ServiceRegistry) app.OrderAPI {
	return di.GetToken(c, OrderAPI)
}
