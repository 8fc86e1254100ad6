// Package infra contains infrastructure adapters for the watch context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fd1az/chain-oracles/business/watch/app"
	"github.com/fd1az/chain-oracles/business/watch/domain"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for plain terminal output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer

	// last connection state per name, changes are printed once
	status map[string]bool
}

// NewConsoleReporter creates a ConsoleReporter writing to out, or stdout when nil.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{
		out:    out,
		status: make(map[string]bool),
	}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Price Watch Started")
	fmt.Fprintln(r.out, "===================")
	return nil
}

// Report prints one table per snapshot.
func (r *ConsoleReporter) Report(snap domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	block := "-"
	if snap.BlockNumber > 0 {
		block = fmt.Sprintf("#%d", snap.BlockNumber)
	}
	fmt.Fprintf(r.out, "\n[%s] block %s (%s)\n",
		snap.Timestamp.Format("15:04:05"), block, snap.Duration.Round(time.Millisecond))

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAIR\tPRICE\tCHANGE\tSOURCE")
	for _, row := range snap.Rows {
		if row.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t%s\n", row.Pair, row.Err)
			continue
		}
		source := row.Price.Source()
		if row.Cached {
			source += " (cached)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s bps\t%s\n",
			row.Pair,
			row.Price.Rate().StringFixed(6),
			row.Direction().Arrow(),
			row.ChangeBps.StringFixed(2),
			source)
	}
	_ = tw.Flush()
}

// UpdateConnectionStatus prints connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.status[name]; ok && prev == connected {
		return
	}
	r.status[name] = connected

	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency.Round(time.Millisecond))
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop prints the closing line.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Price Watch Stopped")
	return nil
}
