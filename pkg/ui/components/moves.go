package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// MoveRow is a price change large enough to be listed.
type MoveRow struct {
	Timestamp   string
	BlockNumber uint64
	Pair        string
	From        decimal.Decimal
	To          decimal.Decimal
	ChangeBps   decimal.Decimal
}

// MovesComponent lists the most recent significant price moves, newest first.
type MovesComponent struct {
	rows      []MoveRow
	maxRows   int
	visible   int
	offset    int
	threshold decimal.Decimal // minimum |change| in bps
}

// NewMovesComponent creates a moves list keeping maxRows entries and showing
// visible of them at a time.
func NewMovesComponent(maxRows, visible int, thresholdBps decimal.Decimal) *MovesComponent {
	return &MovesComponent{
		rows:      make([]MoveRow, 0, maxRows),
		maxRows:   maxRows,
		visible:   visible,
		threshold: thresholdBps,
	}
}

// Add records row when its change reaches the threshold and reports whether it did.
func (m *MovesComponent) Add(row MoveRow) bool {
	if row.ChangeBps.Abs().LessThan(m.threshold) || row.ChangeBps.IsZero() {
		return false
	}
	m.rows = append([]MoveRow{row}, m.rows...)
	if len(m.rows) > m.maxRows {
		m.rows = m.rows[:m.maxRows]
	}
	return true
}

// Len returns the number of recorded moves.
func (m *MovesComponent) Len() int {
	return len(m.rows)
}

// Clear clears all moves.
func (m *MovesComponent) Clear() {
	m.rows = make([]MoveRow, 0, m.maxRows)
	m.offset = 0
}

// ScrollUp moves the window towards newer entries.
func (m *MovesComponent) ScrollUp() {
	if m.offset > 0 {
		m.offset--
	}
}

// ScrollDown moves the window towards older entries.
func (m *MovesComponent) ScrollDown() {
	if m.offset+m.visible < len(m.rows) {
		m.offset++
	}
}

// View renders the moves component.
func (m *MovesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	upStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	downStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("MOVES ≥ %s bps", m.threshold.String())))
	sb.WriteString("\n\n")

	if len(m.rows) == 0 {
		sb.WriteString(dimStyle.Render("  No significant moves yet..."))
		return sb.String()
	}

	end := m.offset + m.visible
	if end > len(m.rows) {
		end = len(m.rows)
	}
	for _, row := range m.rows[m.offset:end] {
		style, arrow := upStyle, "▲"
		if row.ChangeBps.IsNegative() {
			style, arrow = downStyle, "▼"
		}
		sb.WriteString(fmt.Sprintf("  %s %-9s %-14s %s → %s %s\n",
			dimStyle.Render(row.Timestamp),
			fmt.Sprintf("#%d", row.BlockNumber),
			row.Pair,
			row.From.StringFixed(4),
			row.To.StringFixed(4),
			style.Render(fmt.Sprintf("%s %+.1f bps", arrow, row.ChangeBps.InexactFloat64())),
		))
	}
	if len(m.rows) > m.visible {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", m.offset+1, end, len(m.rows))))
	}
	return sb.String()
}
