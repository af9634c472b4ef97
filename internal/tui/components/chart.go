package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/tui/theme"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders counts as a one-line block chart scaled to the peak.
func Sparkline(values []uint64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	peak := uint64(1)
	for _, v := range values {
		peak = max(peak, v)
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v * uint64(len(sparkBlocks)-1) / peak)
		buf.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(buf.String())
}

// BarChart renders a vertical bar chart with a labelled y axis. labels, when
// they match values in length, are spread along the x axis. Charts too small
// to draw fall back to a sparkline.
func BarChart(values []uint64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	peak := 1.0
	for _, v := range values {
		peak = max(peak, float64(v))
	}

	step := chartTickStep(peak)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(peak/step)) > maxIntervals {
		step *= 2
	}
	ceiling := math.Ceil(peak/step) * step
	intervals := max(int(math.Round(ceiling/step)), 1)
	rowsPerTick := max(height/intervals, 2)
	chartH := rowsPerTick * intervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string, intervals)
	for i := 1; i <= intervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(step * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	values, labels = sampleBars(values, labels, chartW)
	n := len(values)
	gap := 1
	barW := chartW
	if n > 1 {
		barW = (chartW - (n - 1)) / n
	} else {
		gap = 0
	}
	barW = min(max(barW, 2), 6)
	axisLen := n*barW + max(0, n-1)*gap

	blocks := append([]rune{' '}, sparkBlocks...)
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		barColor := t.Accent
		switch pct := float64(row) / float64(chartH); {
		case pct > 0.8:
			barColor = t.AccentBright
		case pct > 0.5:
			barColor = color
		}
		barStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", yLabelW, tickLabels[row])))
		for i, raw := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blank.Render(strings.Repeat(" ", gap)))
			}
			v := float64(raw)
			switch {
			case v >= rowTop:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := int((v - rowBottom) / (rowTop - rowBottom) * 8)
				idx = min(max(idx, 1), 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s└%s", yLabelW, "0", strings.Repeat("─", axisLen))))

	if len(labels) == n {
		axis := xAxisLabels(labels, barW+gap, axisLen)
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(axis))
	}
	return b.String()
}

// sampleBars thins the series so every bar gets at least two columns.
func sampleBars(values []uint64, labels []string, chartW int) ([]uint64, []string) {
	n := len(values)
	if n <= 1 || (chartW-(n-1))/n >= 2 {
		return values, labels
	}
	keep := max((chartW+1)/3, 2)
	sampled := make([]uint64, keep)
	var sampledLabels []string
	if len(labels) == n {
		sampledLabels = make([]string, keep)
	}
	for i := range sampled {
		src := i * (n - 1) / (keep - 1)
		sampled[i] = values[src]
		if sampledLabels != nil {
			sampledLabels[i] = labels[src]
		}
	}
	return sampled, sampledLabels
}

// xAxisLabels places labels under their bars, skipping any that would
// overlap. The last label is always shown when it fits.
func xAxisLabels(labels []string, stride, axisLen int) string {
	buf := []byte(strings.Repeat(" ", axisLen))
	n := len(labels)
	labelStep := max(1, (n*8)/(axisLen+1))

	lastEnd := -1
	for i := 0; i < n; i += labelStep {
		pos := i * stride
		lbl := labels[i]
		end := pos + len(lbl)
		if pos <= lastEnd {
			continue
		}
		if end > axisLen {
			end = axisLen
			if end-pos < 3 {
				continue
			}
			lbl = lbl[:end-pos]
		}
		copy(buf[pos:end], lbl)
		lastEnd = end + 1
	}
	if n > 1 {
		lbl := labels[n-1]
		pos := (n - 1) * stride
		if pos+len(lbl) > axisLen {
			pos = axisLen - len(lbl)
		}
		if pos >= 0 && pos > lastEnd {
			copy(buf[pos:pos+len(lbl)], lbl)
		}
	}
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep picks a 1/2/5 tick interval aiming at about five ticks.
func chartTickStep(peak float64) float64 {
	if peak <= 0 {
		return 1
	}
	rough := peak / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	for _, u := range []struct {
		div    float64
		suffix string
	}{{1e9, "B"}, {1e6, "M"}, {1e3, "k"}} {
		if v >= u.div {
			if v == math.Trunc(v/u.div)*u.div {
				return fmt.Sprintf("%.0f%s", v/u.div, u.suffix)
			}
			return fmt.Sprintf("%.1f%s", v/u.div, u.suffix)
		}
	}
	if v >= 1 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
