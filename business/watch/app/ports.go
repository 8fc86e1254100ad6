// Package app contains application services and port definitions for the watch context.
package app

import (
	"context"
	"time"

	pricingApp "github.com/fd1az/chain-oracles/business/pricing/app"
	pricingDomain "github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/business/watch/domain"
)

// Reporter displays the snapshots produced by the watcher.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report publishes one refresh of every watched pair.
	Report(snap domain.Snapshot)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// PriceSource prices a batch of queries. Implemented by *pricingApp.PricingService.
type PriceSource interface {
	GetPrices(ctx context.Context, queries []pricingDomain.PriceQuery) []pricingApp.PriceResult
}
