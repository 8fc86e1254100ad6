// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// PriceRow represents a row in the price board.
type PriceRow struct {
	Pair      string
	Price     decimal.Decimal
	ChangeBps decimal.Decimal
	Source    string
	Cached    bool
	Err       string // set when the pair could not be priced
}

// PricesComponent renders the price board.
type PricesComponent struct {
	table table.Model
	rows  []PriceRow
	block uint64
}

var priceColumns = []table.Column{
	{Title: "Pair", Width: 16},
	{Title: "Price", Width: 20},
	{Title: "Change", Width: 12},
	{Title: "Source", Width: 22},
}

// NewPricesComponent creates a new prices component.
func NewPricesComponent() *PricesComponent {
	t := table.New(
		table.WithColumns(priceColumns),
		table.WithFocused(false),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#374151")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))
	s.Selected = s.Cell
	t.SetStyles(s)

	return &PricesComponent{table: t}
}

// Update replaces the board with a new refresh.
func (p *PricesComponent) Update(block uint64, rows []PriceRow) {
	p.block = block
	p.rows = rows

	trs := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		trs = append(trs, r.cells())
	}
	p.table.SetRows(trs)
	if h := len(rows) + 1; h > p.table.Height() {
		p.table.SetHeight(h)
	}
}

// Rows returns the rows of the last refresh.
func (p *PricesComponent) Rows() []PriceRow {
	return p.rows
}

func (r PriceRow) cells() table.Row {
	if r.Err != "" {
		return table.Row{r.Pair, "-", "-", r.Err}
	}

	change := fmt.Sprintf("%+.1f bps", r.ChangeBps.InexactFloat64())
	source := r.Source
	if r.Cached {
		source += " *"
	}
	return table.Row{r.Pair, r.Price.StringFixed(6), change, source}
}

// View renders the prices component.
func (p *PricesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if len(p.rows) == 0 {
		return headerStyle.Render("PRICES") + "\n\n" + dimStyle.Render("Waiting for price data...")
	}

	title := "PRICES"
	if p.block > 0 {
		title = fmt.Sprintf("PRICES (block #%d)", p.block)
	}
	return headerStyle.Render(title) + "\n\n" +
		p.table.View() + "\n" +
		dimStyle.Render("* served from cache")
}
