// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/chain-oracles/business/pricing/app"
	"github.com/fd1az/chain-oracles/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}
