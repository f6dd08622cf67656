package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/tripburn/internal/tui/theme"
)

// Tab is one destination in the tab bar. The first nine tabs get a number key.
type Tab struct {
	Flag string
	Name string
}

func tabLabel(tab Tab, idx int) string {
	label := tab.Name
	if tab.Flag != "" {
		label = tab.Flag + " " + label
	}
	if idx < 9 {
		label = strconv.Itoa(idx+1) + " " + label
	}
	return label
}

func tabStyles(active bool) lipgloss.Style {
	t := theme.Active
	if active {
		return lipgloss.NewStyle().
			Foreground(t.AccentBright).
			Background(t.SurfaceHover).
			Bold(true).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Padding(0, 1)
}

// TabVisualWidth returns the rendered width of one tab, as RenderTabBar draws it.
func TabVisualWidth(tabs []Tab, idx, activeIdx int) int {
	return lipgloss.Width(tabStyles(idx == activeIdx).Render(tabLabel(tabs[idx], idx)))
}

// RenderTabBar renders the destination tabs on one line, padded to width.
func RenderTabBar(tabs []Tab, activeIdx, width int) string {
	t := theme.Active
	sep := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface).Render("│")

	parts := make([]string, len(tabs))
	for i, tab := range tabs {
		parts[i] = tabStyles(i == activeIdx).Render(tabLabel(tab, i))
	}
	row := strings.Join(parts, sep)

	return lipgloss.NewStyle().Background(t.Surface).Width(width).MaxWidth(width).Render(row)
}
