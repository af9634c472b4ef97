package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/tui/theme"
)

// Tab is one entry of the tab bar. Key is its shortcut and appears at
// KeyPos in Name.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int
}

// Tabs lists the dashboard tabs in display order.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Models", Key: 'm', KeyPos: 0},
	{Name: "Activity", Key: 'a', KeyPos: 0},
	{Name: "History", Key: 'h', KeyPos: 0},
}

// TabSeparatorWidth is the column width between two tabs.
const TabSeparatorWidth = 1

// TabVisualWidth returns the rendered width of tab i, padding included.
func TabVisualWidth(i int) int {
	if i < 0 || i >= len(Tabs) {
		return 0
	}
	return lipgloss.Width(Tabs[i].Name) + 2
}

// RenderTabBar renders the tab row with activeIdx highlighted. Inactive
// tabs underline their shortcut letter.
func RenderTabBar(activeIdx, width int) string {
	t := theme.Active

	base := lipgloss.NewStyle().Padding(0, 1).Background(t.Surface)
	active := base.Foreground(t.Accent).Background(t.SurfaceHover).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	key := inactive.Foreground(t.AccentBright).Underline(true)
	sep := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface).Render("│")

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts[i] = active.Render(tab.Name)
			continue
		}
		name := tab.Name
		if tab.KeyPos >= 0 && tab.KeyPos < len(name) {
			name = inactive.Render(name[:tab.KeyPos]) +
				key.Render(name[tab.KeyPos:tab.KeyPos+1]) +
				inactive.Render(name[tab.KeyPos+1:])
		} else {
			name = inactive.Render(name)
		}
		parts[i] = base.Render(name)
	}

	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(strings.Join(parts, sep))
}

// TabIdxByKey returns the tab index for a shortcut key, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
