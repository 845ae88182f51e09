// Package console is the operator TUI: a command prompt over the running bot.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vbonduro/mensabot/internal/domain"
)

const (
	maxLines     = 1000
	historyLimit = 10
	queryTimeout = 30 * time.Second
)

// menuCache is the subset of service.MenuCache the console uses.
type menuCache interface {
	FetchDailyMenus(ctx context.Context) domain.MenuTable
	GetMenu(ctx context.Context, name string, meal domain.MealType) string
	LastFetch() (time.Time, string)
	ActiveMenus() int
	History(ctx context.Context, limit uint64) ([]*domain.Snapshot, error)
}

type loginStatus interface {
	LoggedIn() bool
}

type runState interface {
	DemoMode() bool
	UpdatesEnabled() bool
	SetUpdatesEnabled(v bool)
	TelegramRunning() bool
}

type Options struct {
	Menus  menuCache
	Login  loginStatus
	State  runState
	Level  *slog.LevelVar
	Logger *slog.Logger
}

type Model struct {
	ctx    context.Context
	menus  menuCache
	login  loginStatus
	state  runState
	level  *slog.LevelVar
	logger *slog.Logger

	width  int
	height int

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	lines    []string
	updating bool
}

func New(ctx context.Context, opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "type help"
	ti.Prompt = promptStyle.Render("> ")
	ti.CharLimit = 200
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	level := opts.Level
	if level == nil {
		level = new(slog.LevelVar)
	}

	m := &Model{
		ctx:      ctx,
		menus:    opts.Menus,
		login:    opts.Login,
		state:    opts.State,
		level:    level,
		logger:   opts.Logger,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		width:    80,
	}
	m.appendLines("mensabot console, type help for commands")
	return m
}

// Run shows the console until the operator quits or ctx is done.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		// header, prompt and status bar take a line each
		m.viewport.Height = max(1, msg.Height-3)
		m.input.Width = max(10, msg.Width-4)
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			line := m.input.Value()
			m.input.Reset()
			return m, m.submit(line)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case fetchDoneMsg:
		m.updating = false
		m.appendLines(okStyle.Render(fmt.Sprintf("menus updated, %d active", msg.active)))
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.appendLines(errorStyle.Render("history: " + msg.err.Error()))
			return m, nil
		}
		m.appendLines(historyLines(msg.snapshots)...)
		return m, nil

	case outputMsg:
		m.appendLines(msg.lines...)
		return m, nil

	case spinner.TickMsg:
		if m.updating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) View() string {
	spin := ""
	if m.updating {
		spin = m.spinner.View()
	}
	paused := m.state != nil && !m.state.UpdatesEnabled()
	loggedIn := m.login != nil && m.login.LoggedIn()
	active := 0
	if m.menus != nil {
		active = m.menus.ActiveMenus()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("mensabot"),
		m.viewport.View(),
		m.input.View(),
		renderStatusBar(active, loggedIn, paused, spin, m.width),
	)
}

func (m *Model) submit(line string) tea.Cmd {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	m.appendLines(echoStyle.Render("> " + line))
	cmd, err := parseCommand(line)
	if err != nil {
		m.appendLines(errorStyle.Render(err.Error()))
		return nil
	}
	if m.logger != nil {
		m.logger.Debug("console command", "command", cmd.name, "args", cmd.args)
	}
	lines, next := m.execute(cmd)
	m.appendLines(lines...)
	return next
}

// execute runs cmd. Quick commands answer with lines; slow ones return a
// tea.Cmd that reports back through a message.
func (m *Model) execute(cmd command) ([]string, tea.Cmd) {
	switch cmd.name {
	case "help":
		return helpLines, nil
	case "status":
		return m.statusLines(), nil
	case "update":
		if m.updating {
			return []string{"an update is already running"}, nil
		}
		m.updating = true
		return []string{"updating menus..."}, tea.Batch(m.fetchCmd(), m.spinner.Tick)
	case "log":
		if len(cmd.args) == 0 {
			return []string{"log level: " + m.level.Level().String()}, nil
		}
		if err := m.level.UnmarshalText([]byte(cmd.args[0])); err != nil {
			return []string{errorStyle.Render("unknown log level " + cmd.args[0])}, nil
		}
		return []string{"log level set to " + m.level.Level().String()}, nil
	case "cafeterias":
		var lines []string
		for _, c := range domain.Cafeterias() {
			lines = append(lines, "  "+c.DisplayName())
		}
		return lines, nil
	case "menu":
		return m.menuCommand(cmd.args)
	case "pause":
		m.state.SetUpdatesEnabled(false)
		return []string{"scheduled updates paused"}, nil
	case "resume":
		m.state.SetUpdatesEnabled(true)
		return []string{"scheduled updates resumed"}, nil
	case "history":
		return nil, m.historyCmd()
	case "quit", "exit":
		return []string{"bye"}, tea.Quit
	default:
		return []string{fmt.Sprintf("unknown command %q, type help", cmd.name)}, nil
	}
}

func (m *Model) menuCommand(args []string) ([]string, tea.Cmd) {
	if len(args) == 0 {
		return []string{"usage: menu CAFE [meal]"}, nil
	}
	cafe, ok := domain.ResolveCafeteria(args[0])
	if !ok {
		return []string{fmt.Sprintf("unknown cafeteria %q", args[0])}, nil
	}
	meal := domain.DefaultMealType
	if len(args) > 1 {
		parsed, ok := domain.ParseMealType(args[1])
		if !ok {
			return []string{fmt.Sprintf("unknown meal %q, use pranzo or cena", args[1])}, nil
		}
		meal = parsed
	}
	ctx, menus := m.ctx, m.menus
	return nil, func() tea.Msg {
		text := menus.GetMenu(ctx, string(cafe), meal)
		return outputMsg{lines: strings.Split(text, "\n")}
	}
}

func (m *Model) fetchCmd() tea.Cmd {
	ctx, menus := m.ctx, m.menus
	return func() tea.Msg {
		table := menus.FetchDailyMenus(ctx)
		return fetchDoneMsg{active: table.ActiveMenus(), table: table}
	}
}

func (m *Model) historyCmd() tea.Cmd {
	ctx, menus := m.ctx, m.menus
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		snaps, err := menus.History(ctx, historyLimit)
		return historyMsg{snapshots: snaps, err: err}
	}
}

func (m *Model) statusLines() []string {
	at, runID := m.menus.LastFetch()
	last := "never"
	if !at.IsZero() {
		last = fmt.Sprintf("%s (run %s)", at.Format("2006-01-02 15:04:05"), runID)
	}
	return []string{
		"instagram login:   " + yesNo(m.login != nil && m.login.LoggedIn()),
		"telegram bot:      " + onOff(m.state.TelegramRunning(), "running", "stopped"),
		fmt.Sprintf("cafeterias:        %d", len(domain.Cafeterias())),
		fmt.Sprintf("active menus:      %d", m.menus.ActiveMenus()),
		"last fetch:        " + last,
		"scheduled updates: " + onOff(m.state.UpdatesEnabled(), "enabled", "paused"),
		"demo mode:         " + onOff(m.state.DemoMode(), "on", "off"),
		"log level:         " + m.level.Level().String(),
	}
}

func historyLines(snaps []*domain.Snapshot) []string {
	if len(snaps) == 0 {
		return []string{"no fetch runs recorded"}
	}
	lines := make([]string, 0, len(snaps))
	for _, s := range snaps {
		lines = append(lines, fmt.Sprintf("%s  %s  %d menus",
			s.FetchedAt.Format("2006-01-02 15:04"), s.RunID, s.Menus.ActiveMenus()))
	}
	return lines
}

func (m *Model) appendLines(lines ...string) {
	m.lines = append(m.lines, lines...)
	if over := len(m.lines) - maxLines; over > 0 {
		m.lines = m.lines[over:]
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func yesNo(v bool) string { return onOff(v, "yes", "no") }

func onOff(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
