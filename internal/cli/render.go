package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/tui/theme"
)

// Table is a bordered text table. Rows holding the single cell "---" render
// as separators.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Separator is a table row that renders as a horizontal rule.
var Separator = []string{"---"}

func styles() (title, header, value, dim lipgloss.Style) {
	t := theme.Active
	title = lipgloss.NewStyle().Bold(true).Foreground(t.TextPrimary).Align(lipgloss.Center)
	header = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	value = lipgloss.NewStyle().Foreground(t.TextPrimary)
	dim = lipgloss.NewStyle().Foreground(t.TextDim)
	return title, header, value, dim
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	titleStyle, _, _, _ := styles()
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Active.Border).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// RenderMuted renders a hint line in the muted color.
func RenderMuted(s string) string {
	return lipgloss.NewStyle().Foreground(theme.Active.TextMuted).Render(s)
}

// RenderTable renders t with box-drawing borders. The first column is left
// aligned, the rest right aligned.
func RenderTable(t Table) string {
	cols := len(t.Headers)
	if cols == 0 {
		for _, row := range t.Rows {
			cols = max(cols, len(row))
		}
	}
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			continue
		}
		for i, cell := range row[:min(len(row), cols)] {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	_, headerStyle, valueStyle, dim := styles()
	rule := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat("─", w+2))
			if i < cols-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		return dim.Render(b.String()) + "\n"
	}
	line := func(cells []string, style lipgloss.Style, alignRight bool) string {
		var b strings.Builder
		b.WriteString(dim.Render("│"))
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", w-lipgloss.Width(cell))
			if alignRight && i > 0 {
				b.WriteString(style.Render(" " + pad + cell + " "))
			} else {
				b.WriteString(style.Render(" " + cell + pad + " "))
			}
			b.WriteString(dim.Render("│"))
		}
		return b.String() + "\n"
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, headerStyle, false))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for _, row := range t.Rows {
		if isSeparator(row) {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}
		b.WriteString(line(row, valueStyle, true))
	}
	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == Separator[0]
}

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline draws one block character per value, scaled to the
// largest value.
func RenderSparkline(values []uint64) string {
	if len(values) == 0 {
		return ""
	}
	peak := max(values[0], 1)
	for _, v := range values[1:] {
		peak = max(peak, v)
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v * uint64(len(sparkBlocks)-1) / peak)
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// RenderBar draws a horizontal bar of up to width cells proportional to
// value/peak.
func RenderBar(value, peak uint64, width int) string {
	if peak == 0 || width <= 0 {
		return ""
	}
	n := int(value * uint64(width) / peak)
	return lipgloss.NewStyle().Foreground(theme.Active.Accent).Render(strings.Repeat("█", n))
}

// RenderProgress renders a "Scanning [n/total]" line for stderr.
func RenderProgress(current, total int) string {
	return fmt.Sprintf("\r  Scanning [%s/%s]", FormatNumber(uint64(current)), FormatNumber(uint64(total)))
}
