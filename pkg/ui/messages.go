// Package ui provides the Bubble Tea price-watch dashboard.
package ui

import (
	"time"

	"github.com/fd1az/chain-oracles/business/watch/domain"
)

// Message types for TUI updates

// SnapshotMsg is sent after every refresh of the watched pairs.
type SnapshotMsg struct {
	Snapshot domain.Snapshot
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// Startup steps shown before the first snapshot.
const (
	StepConfig  = "config"
	StepNode    = "node"
	StepPricing = "pricing"
	StepWatcher = "watcher"
)

// Startup step statuses.
const (
	StatusPending    = "pending"
	StatusConnecting = "connecting"
	StatusConnected  = "connected"
	StatusFailed     = "failed"
)

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // one of the Step constants
	Status  string // one of the Status constants
	Message string // Optional message
}
