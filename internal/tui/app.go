// Package tui provides the interactive Bubble Tea dashboard for tripburn.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/tripburn/internal/analytics"
	"github.com/theirongolddev/tripburn/internal/cloudsync"
	"github.com/theirongolddev/tripburn/internal/config"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/tracker"
	"github.com/theirongolddev/tripburn/internal/tui/components"
	"github.com/theirongolddev/tripburn/internal/tui/theme"
)

// ChangeMsg carries one tracker pipeline pass.
type ChangeMsg struct {
	Change tracker.Change
}

// RotateMsg is sent when the alert line advances on its timer.
type RotateMsg struct {
	Alert model.Alert
}

// SyncDoneMsg reports a manual push or pull started from the dashboard.
type SyncDoneMsg struct {
	Op  string
	Err error
}

type tickMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	tr     *tracker.Tracker
	events chan tea.Msg
	stop   func()

	// Data for the active destination
	dests   []model.DestinationConfig
	active  int
	summary analytics.Summary
	days    []analytics.Day
	alert   model.Alert
	alerts  int
	sync    cloudsync.Status

	// UI state
	width    int
	height   int
	showHelp bool
	flash    string
	flashErr bool
	flashAt  time.Time
	syncing  bool
	spinner  spinner.Model

	// Add-expense form
	form     *huh.Form
	formVals *expenseValues

	// First-run setup
	setupForm  *huh.Form
	setupVals  *setupValues
	needSetup  bool
	configPath string
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	eventBuffer      = 64
	flashFor         = 4 * time.Second
	syncTimeout      = 30 * time.Second
)

// Options configures NewApp.
type Options struct {
	// NeedSetup shows the first-run form before the dashboard.
	NeedSetup bool
	// ConfigPath is where the setup form saves; empty means the default path.
	ConfigPath string
}

// NewApp builds the dashboard over tr. Call Close when the program exits.
func NewApp(tr *tracker.Tracker, opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	events := make(chan tea.Msg, eventBuffer)
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}
	unsubscribe := tr.Subscribe(func(c tracker.Change) { send(ChangeMsg{Change: c}) })
	tr.Generator().OnRotate(func(al model.Alert) { send(RotateMsg{Alert: al}) })

	path := opts.ConfigPath
	if path == "" {
		path = config.ConfigPath()
	}
	a := App{
		tr:         tr,
		events:     events,
		stop:       unsubscribe,
		spinner:    sp,
		needSetup:  opts.NeedSetup,
		configPath: path,
	}
	a.refresh()
	return a
}

// Close detaches the app from the tracker.
func (a App) Close() {
	if a.stop != nil {
		a.stop()
	}
	a.tr.Generator().OnRotate(nil)
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		waitForEvent(a.events),
		tickCmd(),
	}
	if a.needSetup {
		cmds = append(cmds, func() tea.Msg { return startSetupMsg{} })
	}
	return tea.Batch(cmds...)
}

// refresh reloads everything the dashboard shows for the active destination.
func (a *App) refresh() {
	a.dests = a.tr.Destinations()
	activeSlug := a.tr.Active()
	a.active = 0
	for i, d := range a.dests {
		if d.Slug == activeSlug {
			a.active = i
		}
	}
	a.summary = analytics.Summary{}
	a.days = nil
	if activeSlug != "" {
		if sum, err := a.tr.Summary(activeSlug); err == nil {
			a.summary = sum
		}
		if days, err := a.tr.Days(activeSlug); err == nil {
			a.days = days
		}
	}
	a.alert = a.tr.Generator().Current()
	a.alerts = len(a.tr.Alerts())
	a.sync = a.tr.Sync().Status()
}

func (a App) activeConfig() (model.DestinationConfig, bool) {
	if a.active < 0 || a.active >= len(a.dests) {
		return model.DestinationConfig{}, false
	}
	return a.dests[a.active], true
}

func (a *App) setFlash(msg string, isErr bool) {
	a.flash = msg
	a.flashErr = isErr
	a.flashAt = time.Now()
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.form != nil {
			a.form = a.form.WithWidth(formWidth(msg.Width))
		}
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(formWidth(msg.Width))
		}
		return a, nil

	case startSetupMsg:
		if a.setupVals == nil {
			a.setupVals = defaultSetupValues()
		}
		a.setupForm = newSetupForm(a.setupVals).WithWidth(formWidth(a.width))
		return a, a.setupForm.Init()

	case tea.MouseMsg:
		if a.showHelp || a.form != nil || a.setupForm != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if idx := a.tabAtX(msg.X); idx >= 0 {
				return a.selectDestination(idx)
			}
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		if a.form != nil {
			return a.updateExpenseForm(msg)
		}
		return a.handleKey(msg)

	case ChangeMsg:
		a.refresh()
		return a, waitForEvent(a.events)

	case RotateMsg:
		a.alert = msg.Alert
		return a, waitForEvent(a.events)

	case SyncDoneMsg:
		a.syncing = false
		a.sync = a.tr.Sync().Status()
		if msg.Err != nil {
			a.setFlash(fmt.Sprintf("%s failed: %v", msg.Op, msg.Err), true)
		} else {
			a.setFlash(msg.Op+" complete", false)
		}
		a.refresh()
		return a, nil

	case spinner.TickMsg:
		if a.syncing || a.sync.Pending {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		wasPending := a.sync.Pending
		a.sync = a.tr.Sync().Status()
		if a.flash != "" && time.Since(a.flashAt) > flashFor {
			a.flash = ""
		}
		cmds := []tea.Cmd{tickCmd()}
		if a.sync.Pending && !wasPending && !a.syncing {
			cmds = append(cmds, a.spinner.Tick)
		}
		return a, tea.Batch(cmds...)
	}

	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.form != nil {
		return a.updateExpenseForm(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "left", "h", "shift+tab":
		if len(a.dests) > 0 {
			return a.selectDestination((a.active - 1 + len(a.dests)) % len(a.dests))
		}
	case "right", "l", "tab":
		if len(a.dests) > 0 {
			return a.selectDestination((a.active + 1) % len(a.dests))
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return a.selectDestination(int(key[0] - '1'))
	case "a":
		cfg, ok := a.activeConfig()
		if !ok {
			a.setFlash("add a destination first: tripburn dest add <name>", true)
			return a, nil
		}
		a.formVals = defaultExpenseValues(time.Now())
		a.form = newExpenseForm(cfg, a.formVals).WithWidth(formWidth(a.width))
		return a, a.form.Init()
	case "n":
		a.alert = a.tr.Generator().Advance()
		return a, nil
	case "r":
		if err := a.tr.Reload(); err != nil {
			a.setFlash("reload failed: "+err.Error(), true)
			return a, nil
		}
		a.refresh()
		a.setFlash("reloaded", false)
		return a, nil
	case "s":
		return a.startSync("push")
	case "p":
		return a.startSync("pull")
	}
	return a, nil
}

func (a App) selectDestination(idx int) (tea.Model, tea.Cmd) {
	if idx < 0 || idx >= len(a.dests) || idx == a.active {
		return a, nil
	}
	if err := a.tr.Select(a.dests[idx].Slug); err != nil {
		a.setFlash(err.Error(), true)
		return a, nil
	}
	a.refresh()
	return a, nil
}

func (a App) startSync(op string) (tea.Model, tea.Cmd) {
	if a.syncing {
		return a, nil
	}
	client := a.tr.Sync()
	if !client.Connected() {
		a.setFlash("sync is not configured", true)
		return a, nil
	}
	cfg, ok := a.activeConfig()
	if !ok {
		return a, nil
	}
	a.syncing = true
	return a, tea.Batch(a.spinner.Tick, syncCmd(client, op, cfg.Slug))
}

func syncCmd(client *cloudsync.Client, op, slug string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		var err error
		switch op {
		case "pull":
			_, err = client.Pull(ctx, slug)
		default:
			err = client.Push(ctx, slug)
		}
		return SyncDoneMsg{Op: op, Err: err}
	}
}

func waitForEvent(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.setupForm != nil {
		return a.viewForm("Welcome to tripburn", a.setupForm.View())
	}
	if a.form != nil {
		title := "Add expense"
		if cfg, ok := a.activeConfig(); ok {
			title += " · " + cfg.Name
		}
		return a.viewForm(title, a.form.View())
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  tripburn needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewForm(title, body string) string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)

	card := cardStyle.Render(titleStyle.Render("◈ "+title) + "\n\n" + body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		name     string
		bindings []struct{ key, desc string }
	}{
		{"Destinations", []struct{ key, desc string }{
			{"← → tab", "Previous / next destination"},
			{"1-9", "Jump to destination"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"a", "Add expense"},
			{"n", "Next alert"},
			{"s", "Push now"},
			{"p", "Pull now"},
			{"r", "Reload from disk"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.name))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.tabs(), a.active, w) + "\n" + a.renderAlertLine(w)

	hints := "[a]dd  [←→]destination  [n]ext alert  [?]help  [q]uit"
	if a.isCompactLayout() {
		hints = "[a]dd  [?]help  [q]uit"
	}
	indicator := components.SyncIndicator{
		Connected: a.sync.Connected,
		Pending:   a.sync.Pending || a.syncing,
		ShareCode: a.sync.ShareCode,
		Message:   a.sync.Message,
		Tone:      a.sync.Tone,
	}
	if indicator.Pending {
		hints = a.spinner.View() + " " + hints
	}
	var usage string
	if a.summary.Budget > 0 && !a.isCompactLayout() {
		usage = components.CompactBudgetBar("used", a.summary.ProgressPct, 24)
	}
	statusBar := components.RenderStatusBar(w, hints, usage, indicator)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	content := a.renderDashboard(cw)
	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) tabs() []components.Tab {
	tabs := make([]components.Tab, len(a.dests))
	for i, d := range a.dests {
		tabs[i] = components.Tab{Flag: d.Flag, Name: d.Name}
	}
	return tabs
}

// renderAlertLine shows the flash message if there is one, otherwise the current alert.
func (a App) renderAlertLine(w int) string {
	t := theme.Active
	base := lipgloss.NewStyle().Background(t.Surface).Width(w).MaxWidth(w)

	if a.flash != "" {
		color := t.Green
		if a.flashErr {
			color = t.Red
		}
		return base.Foreground(color).Render(" " + a.flash)
	}
	if a.alert.Message == "" {
		return base.Foreground(t.TextDim).Render(" No alerts")
	}
	line := fmt.Sprintf(" %s %s", a.alert.Tone.Badge(), a.alert.Message)
	if a.alerts > 1 {
		line += lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).
			Render(fmt.Sprintf("  (%d alerts, n for next)", a.alerts))
	}
	return base.Foreground(t.ForTone(a.alert.Tone)).Render(line)
}

// tabAtX returns the destination tab under column x, or -1.
func (a App) tabAtX(x int) int {
	tabs := a.tabs()
	pos := 0
	for i := range tabs {
		tabW := components.TabVisualWidth(tabs, i, a.active)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}

func formWidth(termWidth int) int {
	return min(max(termWidth-16, 40), 72)
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with the background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}
