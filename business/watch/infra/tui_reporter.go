package infra

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/chain-oracles/business/watch/app"
	"github.com/fd1az/chain-oracles/business/watch/domain"
	"github.com/fd1az/chain-oracles/pkg/ui"
)

var _ app.Reporter = (*TUIReporter)(nil)

// Sender delivers messages to a running Bubble Tea program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// TUIReporter implements Reporter for the Bubble Tea dashboard.
type TUIReporter struct {
	program Sender
}

// NewTUIReporter creates a TUIReporter sending to program.
func NewTUIReporter(program Sender) *TUIReporter {
	return &TUIReporter{program: program}
}

// Start marks the watcher step of the startup screen as done.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.program.Send(ui.StartupMsg{Step: ui.StepWatcher, Status: ui.StatusConnected})
	return nil
}

// Report sends the snapshot to the dashboard.
func (r *TUIReporter) Report(snap domain.Snapshot) {
	if snap.BlockNumber > 0 {
		r.program.Send(ui.BlockMsg{Number: snap.BlockNumber, Timestamp: snap.Timestamp})
	}
	r.program.Send(ui.SnapshotMsg{Snapshot: snap})
}

// UpdateConnectionStatus sends connection status to the dashboard.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.program.Send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Stop is a no-op: the program is owned by the caller.
func (r *TUIReporter) Stop() error {
	return nil
}
