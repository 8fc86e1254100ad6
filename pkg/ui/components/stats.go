package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds statistics for display.
type Stats struct {
	Refreshes    int64
	Blocks       int64
	Priced       int64
	Cached       int64
	Failures     int64
	AvgLatencyMs float64
}

// CacheHitRate is the share of priced rows served from the cache, in percent.
func (s Stats) CacheHitRate() float64 {
	if s.Priced == 0 {
		return 0
	}
	return float64(s.Cached) / float64(s.Priced) * 100
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Record folds one refresh into the running statistics.
func (s *StatsComponent) Record(priced, cached, failed int, latencyMs float64) {
	n := float64(s.stats.Refreshes)
	s.stats.AvgLatencyMs = (s.stats.AvgLatencyMs*n + latencyMs) / (n + 1)
	s.stats.Refreshes++
	s.stats.Priced += int64(priced)
	s.stats.Cached += int64(cached)
	s.stats.Failures += int64(failed)
}

// CountBlock counts a received block.
func (s *StatsComponent) CountBlock() {
	s.stats.Blocks++
}

// Stats returns the current statistics.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	failures := valueStyle.Render(fmt.Sprintf("%d", s.stats.Failures))
	if s.stats.Failures > 0 {
		failures = errorStyle.Render(fmt.Sprintf("%d", s.stats.Failures))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Blocks: %s  │  Refreshes: %s  │  Prices: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Blocks)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Refreshes)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Priced)),
		) +
		fmt.Sprintf("Avg refresh: %s  │  Cache hit rate: %s  │  Failures: %s",
			valueStyle.Render(fmt.Sprintf("%.0fms", s.stats.AvgLatencyMs)),
			valueStyle.Render(fmt.Sprintf("%.1f%%", s.stats.CacheHitRate())),
			failures,
		)
}
