// Package di contains dependency injection tokens for the watch context.
package di

import (
	"github.com/fd1az/chain-oracles/business/watch/app"
	"github.com/fd1az/chain-oracles/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Watcher = di.NewToken[*app.Watcher]("watch.Watcher")
)

// Private dependency tokens - internal to watch module
var (
	Reporter = di.NewToken[app.Reporter]("watch:reporter")
)

// Helper functions for type-safe access
func GetWatcher(c di.ServiceRegistry) *app.Watcher {
	return di.GetToken(c, Watcher)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
