package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/courtside/internal/clock"
	"github.com/five82/courtside/internal/command"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/grid"
	"github.com/five82/courtside/internal/logtail"
	"github.com/five82/courtside/internal/notify"
	"github.com/five82/courtside/internal/prefs"
	"github.com/five82/courtside/internal/session"
	"github.com/five82/courtside/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewGrid View = iota
	ViewMessages
	ViewLog
)

const logLines = 200

// Source is the live session the UI renders.
type Source interface {
	Status() session.Status
	Session() domain.Session
	Presence() int
	Store() *state.Store
	Changes() <-chan struct{}
	Logout()
}

// Booker activates grid cells.
type Booker interface {
	Toggle(ctx context.Context, cell grid.Cell, username string, skill domain.SkillLevel) (grid.Action, <-chan command.Outcome)
}

// Notices is the single-slot notification banner.
type Notices interface {
	notify.Notifier
	Current() (notify.Notification, bool)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Source    Source
	Booker    Booker
	Notices   Notices
	Clock     *clock.Virtual
	Prefs     prefs.Prefs
	PrefsPath string
	// LogPath is the file shown in the log view.
	LogPath string
	Logger  *slog.Logger
	// Tick is the redraw interval for the clock and banner.
	Tick time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	source    Source
	booker    Booker
	notices   Notices
	clock     *clock.Virtual
	prefs     prefs.Prefs
	prefsPath string
	logPath   string
	logger    *slog.Logger
	tick      time.Duration

	theme       Theme
	keys        keyMap
	help        help.Model
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	snapshot state.Snapshot
	logs     []logtail.Entry
	filter   grid.Filter
	row, col int
	pending  int
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = time.Second
	}
	vclock := opts.Clock
	if vclock == nil {
		vclock = clock.NewVirtual(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := opts.Prefs
	if !p.SkillLevel.Valid() {
		p.SkillLevel = domain.SkillBeginner
	}

	m := Model{
		ctx:         ctx,
		source:      opts.Source,
		booker:      opts.Booker,
		notices:     opts.Notices,
		clock:       vclock,
		prefs:       p,
		prefsPath:   opts.PrefsPath,
		logPath:     opts.LogPath,
		logger:      logger,
		tick:        tick,
		theme:       GetTheme(p.Theme),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		currentView: ViewGrid,
	}
	if m.source != nil {
		m.snapshot = m.source.Store().Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.source != nil {
		cmds = append(cmds, waitForChange(m.source.Changes()))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		if m.currentView == ViewLog {
			m.loadLogs()
		}
		return m, tickCmd(m.tick)

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.source.Changes())

	case outcomeMsg:
		if m.pending > 0 {
			m.pending--
		}
		m.logger.Debug("toggle resolved", "venue", msg.cell.Venue, "slot", msg.cell.Slot, "outcome", msg.outcome.Kind)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBanner())
	b.WriteString("\n")
	switch m.currentView {
	case ViewMessages:
		b.WriteString(m.renderMessages())
	case ViewLog:
		b.WriteString(m.renderLog())
	default:
		b.WriteString(m.renderGrid())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Messages):
		if m.currentView == ViewMessages {
			m.currentView = ViewGrid
		} else {
			m.currentView = ViewMessages
		}
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		if m.currentView == ViewLog {
			m.currentView = ViewGrid
		} else {
			m.currentView = ViewLog
			m.loadLogs()
		}
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		if m.source != nil && m.source.Session().Username != "" {
			m.source.Logout()
		}
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewGrid
		return m, nil

	case key.Matches(msg, m.keys.CycleSkill):
		m.prefs.SkillLevel = m.prefs.SkillLevel.Next()
		m.savePrefs()
		m.show(notify.Info, "Skill level: "+string(m.prefs.SkillLevel))
		return m, nil

	case key.Matches(msg, m.keys.Back15):
		m.clock.Adjust(-15)
		return m, nil
	case key.Matches(msg, m.keys.Forward15):
		m.clock.Adjust(15)
		return m, nil
	case key.Matches(msg, m.keys.Back5):
		m.clock.Adjust(-5)
		return m, nil
	case key.Matches(msg, m.keys.Forward5):
		m.clock.Adjust(5)
		return m, nil
	case key.Matches(msg, m.keys.ResetTime):
		m.clock.Reset()
		return m, nil
	}

	if m.currentView == ViewGrid {
		return m.handleGridKey(msg)
	}
	return m, nil
}

// handleGridKey processes keyboard input for the grid view.
func (m Model) handleGridKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Upcoming):
		if slot, ok := grid.NextUpcoming(m.snapshot.TimeSlots, m.clock.MinutesOfDay()); ok {
			m.filter.Slot = slot
		} else {
			m.filter.Slot = ""
			m.show(notify.Info, "No upcoming time slots")
		}
		m.row = 0
		return m, nil

	case key.Matches(msg, m.keys.CycleVenue):
		m.filter.Venue = nextVenue(m.snapshot.Venues, m.filter.Venue)
		m.col = 0
		return m, nil

	case key.Matches(msg, m.keys.ClearFilters):
		m.filter = grid.Filter{}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		return m.toggle()
	}

	g := m.grid()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.row--
	case key.Matches(msg, m.keys.Down):
		m.row++
	case key.Matches(msg, m.keys.Left):
		m.col--
	case key.Matches(msg, m.keys.Right):
		m.col++
	}
	m.clampCursor(g)
	return m, nil
}

// toggle books or cancels the cell under the cursor. The grid updates only
// when the server's push event arrives.
func (m Model) toggle() (tea.Model, tea.Cmd) {
	username := ""
	if m.source != nil {
		username = m.source.Session().Username
	}
	if username == "" {
		m.show(notify.Error, "Log in to book")
		return m, nil
	}
	if m.booker == nil {
		return m, nil
	}

	g := m.grid()
	m.clampCursor(g)
	cell, ok := g.Cell(m.row, m.col)
	if !ok {
		return m, nil
	}
	action, ch := m.booker.Toggle(m.ctx, cell, username, m.prefs.SkillLevel)
	if action == grid.None || ch == nil {
		return m, nil
	}
	m.pending++
	return m, waitForOutcome(cell, ch)
}

func (m Model) grid() grid.Grid {
	username := ""
	if m.source != nil {
		username = m.source.Session().Username
	}
	return grid.Build(m.snapshot, username, m.clock.MinutesOfDay(), m.filter)
}

func (m *Model) clampCursor(g grid.Grid) {
	m.row = clamp(m.row, len(g.Slots))
	m.col = clamp(m.col, len(g.Venues))
}

func clamp(i, n int) int {
	switch {
	case n == 0 || i < 0:
		return 0
	case i >= n:
		return n - 1
	default:
		return i
	}
}

// refresh copies the latest snapshot and drops a venue filter whose venue
// no longer exists.
func (m *Model) refresh() {
	m.snapshot = m.source.Store().Snapshot()
	if m.filter.Venue != "" {
		if _, ok := m.snapshot.Venue(m.filter.Venue); !ok {
			m.filter.Venue = ""
		}
	}
	m.clampCursor(m.grid())
}

// nextVenue cycles "" -> first venue -> ... -> last venue -> "".
func nextVenue(venues []domain.Venue, current string) string {
	if current == "" {
		if len(venues) == 0 {
			return ""
		}
		return venues[0].Name
	}
	for i, v := range venues {
		if v.Name == current {
			if i+1 < len(venues) {
				return venues[i+1].Name
			}
			return ""
		}
	}
	return ""
}

func (m *Model) loadLogs() {
	if m.logPath == "" {
		m.logs = nil
		return
	}
	entries, err := logtail.Read(m.logPath, logLines)
	if err != nil {
		m.logger.Debug("read log failed", "path", m.logPath, "error", err)
		return
	}
	m.logs = entries
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save prefs failed", "path", m.prefsPath, "error", err)
	}
}

func (m Model) show(kind notify.Kind, text string) {
	if m.notices != nil {
		m.notices.Show(kind, text)
	}
}

// Messages

type tickMsg time.Time

type changedMsg struct{}

type outcomeMsg struct {
	cell    grid.Cell
	outcome command.Outcome
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func waitForOutcome(cell grid.Cell, ch <-chan command.Outcome) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg{cell: cell, outcome: <-ch}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// ends.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
