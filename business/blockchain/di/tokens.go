// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/chain-oracles/business/blockchain/app"
	"github.com/fd1az/chain-oracles/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainReader    = di.NewToken[app.ChainReader]("blockchain.ChainReader")
	TokenResolver  = di.NewToken[app.TokenResolver]("blockchain.TokenResolver")
	HeadSubscriber = di.NewToken[app.HeadSubscriber]("blockchain.HeadSubscriber")
)

// Helper functions for type-safe access
func GetChainReader(c di.ServiceRegistry) app.ChainReader {
	return di.GetToken(c, ChainReader)
}

func GetTokenResolver(c di.ServiceRegistry) app.TokenResolver {
	return di.GetToken(c, TokenResolver)
}

func GetHeadSubscriber(c di.ServiceRegistry) app.HeadSubscriber {
	return di.GetToken(c, HeadSubscriber)
}
