// Package tui implements the interactive dashboard and the setup wizard.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cstats/internal/config"
	"github.com/theirongolddev/cstats/internal/model"
	"github.com/theirongolddev/cstats/internal/pipeline"
	"github.com/theirongolddev/cstats/internal/tui/components"
	"github.com/theirongolddev/cstats/internal/tui/theme"
)

// Engine is the stats source behind the dashboard.
type Engine interface {
	Today() string
	StatsCache() model.StatsCache
	Recompute() (*pipeline.LoadResult, error)
	TodaySummary() (model.TodaySummary, error)
	History(limit int) ([]model.HistoryEntry, error)
}

// EngineFactory builds an Engine that reports scan progress to progress.
type EngineFactory func(progress pipeline.ProgressFunc) Engine

const (
	historyLimit     = 50
	maxContentWidth  = 140
	minContentHeight = 5
)

// progressMsg reports a scanned file while the stats are being computed.
type progressMsg struct {
	current, total int
}

// dataLoadedMsg carries a finished load. warn holds non-fatal problems such
// as a failed cache write or an unreadable activity log.
type dataLoadedMsg struct {
	stats   model.StatsCache
	today   model.TodaySummary
	history []model.HistoryEntry
	warn    error
	elapsed time.Duration
	at      time.Time
}

type tickMsg time.Time

// App is the root bubbletea model of the dashboard.
type App struct {
	cfg    config.Config
	engine Engine
	now    func() time.Time

	width, height int
	activeTab     int
	showHelp      bool

	loaded      bool
	refreshing  bool
	progress    int
	progressMax int
	spinner     spinner.Model
	loadSub     chan tea.Msg

	stats    model.StatsCache
	today    model.TodaySummary
	history  []model.HistoryEntry
	costs    []pipeline.ModelCost
	totals   pipeline.CostTotals
	warn     error
	loadTime time.Duration
	loadedAt time.Time
}

// NewApp returns the dashboard model. newEngine is called once, with a
// progress callback that feeds the loading screen.
func NewApp(cfg config.Config, newEngine EngineFactory) App {
	sub := make(chan tea.Msg, 1)
	progress := func(current, total int) {
		select {
		case sub <- progressMsg{current: current, total: total}:
		default:
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	return App{
		cfg:     cfg,
		engine:  newEngine(progress),
		now:     time.Now,
		spinner: sp,
		loadSub: sub,
	}
}

// Init starts the first load.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.loadDataCmd(false), tickCmd())
}

// loadDataCmd loads the stats in the background. recompute ignores the
// persisted cache. Progress and the result arrive on loadSub.
func (a App) loadDataCmd(recompute bool) tea.Cmd {
	engine, sub, now := a.engine, a.loadSub, a.now
	return func() tea.Msg {
		go func() {
			sub <- fetchData(engine, recompute, now)
		}()
		return <-sub
	}
}

func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func fetchData(engine Engine, recompute bool, now func() time.Time) dataLoadedMsg {
	start := now()
	var msg dataLoadedMsg

	if recompute {
		res, err := engine.Recompute()
		msg.stats, msg.warn = res.Stats, err
		msg.today, _ = pipeline.TodayFromCache(&res.Stats, engine.Today())
	} else {
		msg.stats = engine.StatsCache()
		today, err := engine.TodaySummary()
		if err != nil {
			msg.warn = fmt.Errorf("today: %w", err)
			today, _ = pipeline.TodayFromCache(&msg.stats, engine.Today())
		}
		msg.today = today
	}

	history, err := engine.History(historyLimit)
	if err != nil {
		msg.warn = errors.Join(msg.warn, fmt.Errorf("history: %w", err))
	}
	msg.history = history
	msg.at = now()
	msg.elapsed = msg.at.Sub(start)
	return msg
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case progressMsg:
		a.progress, a.progressMax = msg.current, msg.total
		return a, waitForLoadMsg(a.loadSub)

	case dataLoadedMsg:
		a.applyData(msg)
		return a, nil

	case spinner.TickMsg:
		if a.loaded && !a.refreshing {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		if a.autoRefreshDue(time.Time(msg)) {
			cmd := a.startRefresh()
			return a, tea.Batch(cmd, tickCmd())
		}
		return a, tickCmd()

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) applyData(msg dataLoadedMsg) {
	a.loaded = true
	a.refreshing = false
	a.progress, a.progressMax = 0, 0
	a.stats = msg.stats
	a.today = msg.today
	a.history = msg.history
	a.warn = msg.warn
	a.loadTime = msg.elapsed
	a.loadedAt = msg.at
	a.costs, a.totals = pipeline.EstimateModelCosts(&a.stats, a.cfg)
}

func (a App) autoRefreshDue(now time.Time) bool {
	sec := a.cfg.Appearance.AutoRefreshSec
	if sec <= 0 || !a.loaded || a.refreshing {
		return false
	}
	return now.Sub(a.loadedAt) >= time.Duration(sec)*time.Second
}

func (a *App) startRefresh() tea.Cmd {
	a.refreshing = true
	return tea.Batch(a.spinner.Tick, a.loadDataCmd(true))
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	n := len(components.Tabs)
	switch key {
	case "?":
		a.showHelp = true
	case "r":
		if !a.refreshing {
			cmd := a.startRefresh()
			return a, cmd
		}
	case "tab", "right", "l":
		a.activeTab = (a.activeTab + 1) % n
	case "shift+tab", "left":
		a.activeTab = (a.activeTab + n - 1) % n
	default:
		if len(key) == 1 {
			if c := key[0]; c >= '1' && int(c-'1') < n {
				a.activeTab = int(c - '1')
			} else if idx := components.TabIdxByKey(rune(c)); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return a, nil
	}
	if msg.Y == 0 {
		if idx := a.tabAtX(msg.X); idx >= 0 {
			a.activeTab = idx
			a.showHelp = false
		}
	}
	return a, nil
}

// tabAtX maps a column of the tab bar to a tab index, or -1.
func (a App) tabAtX(x int) int {
	pos := 0
	for i := range components.Tabs {
		w := components.TabVisualWidth(i)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + components.TabSeparatorWidth
	}
	return -1
}

// View renders the current state.
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return ""
	}
	if !a.loaded {
		return a.viewLoading()
	}
	return a.viewMain()
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) viewLoading() string {
	t := theme.Active
	w, h := a.width, a.height

	titleStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	cardW := min(w-4, 50)
	var b strings.Builder
	b.WriteString(titleStyle.Render("cstats"))
	b.WriteString("\n\n")
	if a.progressMax > 0 {
		b.WriteString(a.spinner.View() + textStyle.Render(" Scanning session logs"))
		b.WriteString("\n\n")
		b.WriteString(components.ScanProgress(a.progress, a.progressMax, components.CardInnerWidth(cardW)-10))
	} else {
		b.WriteString(a.spinner.View() + textStyle.Render(" Reading stats"))
	}

	card := components.ContentCard("", b.String(), cardW)
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w, h := a.width, a.height
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)
	statusBar := components.RenderStatusBar(w, a.statusText(), a.refreshing)
	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch {
	case a.showHelp:
		content = a.renderHelp(cw)
	case a.activeTab == 0:
		content = a.renderOverviewTab(cw)
	case a.activeTab == 1:
		content = a.renderModelsTab(cw)
	case a.activeTab == 2:
		content = a.renderActivityTab(cw)
	case a.activeTab == 3:
		content = a.renderHistoryTab(cw, contentH)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) statusText() string {
	if a.warn != nil {
		msg := strings.ReplaceAll(a.warn.Error(), "\n", "; ")
		return "warning: " + msg
	}
	if a.progressMax > 0 {
		return fmt.Sprintf("scanning %d/%d", a.progress, a.progressMax)
	}
	return fmt.Sprintf("computed %s · loaded %s in %.1fs",
		a.stats.LastComputedDate, a.loadedAt.Format("15:04:05"), a.loadTime.Seconds())
}

func (a App) renderHelp(cw int) string {
	t := theme.Active
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	rows := [][2]string{
		{"1-4 o m a h", "switch tab"},
		{"tab / shift+tab", "next / previous tab"},
		{"r", "recompute from session logs"},
		{"?", "toggle this help"},
		{"q", "quit"},
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-16s", r[0])) + descStyle.Render(r[1]))
	}
	if sec := a.cfg.Appearance.AutoRefreshSec; sec > 0 {
		b.WriteString("\n\n" + descStyle.Render(fmt.Sprintf("Auto refresh every %ds.", sec)))
	}
	return components.ContentCard("Keys", b.String(), min(cw, 60))
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	n := strings.Count(s, "\n") + 1
	if n >= h {
		return s
	}
	return s + strings.Repeat("\n", h-n)
}

// fillLinesWithBackground pads every line to width with the background
// color so gaps between cards are not left unstyled.
func fillLinesWithBackground(s string, width int, bg lipgloss.Color) string {
	fill := lipgloss.NewStyle().Background(bg)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if gap := width - lipgloss.Width(line); gap > 0 {
			lines[i] = line + fill.Render(strings.Repeat(" ", gap))
		}
	}
	return strings.Join(lines, "\n")
}
