package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/tui/theme"
)

// SyncIndicator is the sync state shown on the right of the status bar.
type SyncIndicator struct {
	Connected bool
	Pending   bool
	ShareCode string
	Message   string
	Tone      model.Tone
}

// RenderStatusBar renders the bottom bar: key hints left, then the pre-rendered
// usage segment if any, sync state right.
func RenderStatusBar(width int, hints, usage string, sync SyncIndicator) string {
	t := theme.Active

	base := lipgloss.NewStyle().Background(t.Surface)
	hintStyle := base.Foreground(t.TextMuted)
	dotColor := t.TextDim

	var right string
	switch {
	case !sync.Connected:
		right = "offline"
	case sync.Pending:
		dotColor = t.Yellow
		right = "syncing…"
	case sync.Message != "":
		dotColor = t.ForTone(sync.Tone)
		right = sync.Message
	default:
		dotColor = t.Green
		right = "synced"
	}
	if sync.ShareCode != "" {
		right = "share " + sync.ShareCode + " · " + right
	}
	rightRendered := base.Foreground(dotColor).Render("● ") + base.Foreground(t.TextMuted).Render(right+" ")

	left := hintStyle.Render(" " + hints)
	if usage != "" {
		left += base.Render("   ") + usage
	}
	padding := max(width-lipgloss.Width(left)-lipgloss.Width(rightRendered), 0)

	return left + base.Render(strings.Repeat(" ", padding)) + rightRendered
}
