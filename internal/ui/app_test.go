package ui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/five82/courtside/internal/clock"
	"github.com/five82/courtside/internal/command"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/event"
	"github.com/five82/courtside/internal/grid"
	"github.com/five82/courtside/internal/notify"
	"github.com/five82/courtside/internal/prefs"
	"github.com/five82/courtside/internal/session"
	"github.com/five82/courtside/internal/state"
)

type fakeSource struct {
	store    *state.Store
	identity domain.Session
	changes  chan struct{}
}

func (f *fakeSource) Status() session.Status { return session.Connected }
func (f *fakeSource) Session() domain.Session { return f.identity }
func (f *fakeSource) Presence() int { return 3 }
func (f *fakeSource) Store() *state.Store { return f.store }
func (f *fakeSource) Changes() <-chan struct{} { return f.changes }
func (f *fakeSource) Logout() { f.identity = domain.Session{} }

type toggled struct {
	cell     grid.Cell
	username string
	skill    domain.SkillLevel
}

type fakeBooker struct {
	calls []toggled
}

func (f *fakeBooker) Toggle(_ context.Context, cell grid.Cell, username string, skill domain.SkillLevel) (grid.Action, <-chan command.Outcome) {
	action := cell.Action()
	if action == grid.None {
		return grid.None, nil
	}
	f.calls = append(f.calls, toggled{cell, username, skill})
	ch := make(chan command.Outcome, 1)
	ch <- command.Outcome{Kind: command.Accepted}
	return action, ch
}

type harness struct {
	model   Model
	source  *fakeSource
	booker  *fakeBooker
	notices *notify.Dispatcher
	clock   *clock.Virtual
}

func newHarness(t *testing.T, username string) *harness {
	t.Helper()
	store := &state.Store{}
	store.ReplaceAll(state.Snapshot{
		Venues: []domain.Venue{
			{Name: "Court A", Capacity: 4, IsOpen: true},
			{Name: "Room 1", Capacity: 2, IsOpen: true},
		},
		TimeSlots: []string{"18:00", "19:00", "20:00"},
		Bookings: map[domain.SlotKey][]domain.Booking{
			{Venue: "Room 1", Slot: "19:00"}: {
				{VenueName: "Room 1", TimeSlot: "19:00", Username: "alice", SkillLevel: domain.SkillBeginner},
			},
		},
	})

	fake := clock.Fake(time.Date(2026, 10, 17, 18, 50, 0, 0, time.UTC))
	h := &harness{
		source:  &fakeSource{store: store, identity: domain.Session{Username: username, Connected: true}, changes: make(chan struct{}, 1)},
		booker:  &fakeBooker{},
		notices: notify.NewDispatcher(fake, time.Minute),
		clock:   clock.NewVirtual(fake),
	}
	h.model = New(Options{
		Source:    h.source,
		Booker:    h.booker,
		Notices:   h.notices,
		Clock:     h.clock,
		Prefs:     prefs.Prefs{Theme: "Dracula", SkillLevel: domain.SkillBeginner},
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		switch k {
		case "enter":
			h.send(tea.KeyMsg{Type: tea.KeyEnter})
		case "down":
			h.send(tea.KeyMsg{Type: tea.KeyDown})
		case "right":
			h.send(tea.KeyMsg{Type: tea.KeyRight})
		default:
			h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		}
	}
}

func (h *harness) notice() string {
	n, _ := h.notices.Current()
	return n.Text
}

func TestVirtualClockKeys(t *testing.T) {
	h := newHarness(t, "alice")

	h.press("]")
	require.Equal(t, 15, h.clock.OffsetMinutes())
	h.press("-", "-")
	require.Equal(t, 5, h.clock.OffsetMinutes())
	h.press("[", "+")
	require.Equal(t, -5, h.clock.OffsetMinutes())
	h.press("0")
	require.Equal(t, 0, h.clock.OffsetMinutes())
}

func TestUpcomingFilterFollowsVirtualClock(t *testing.T) {
	h := newHarness(t, "alice")

	h.press("u")
	require.Equal(t, "19:00", h.model.filter.Slot)

	h.clock.Adjust(71) // 20:01
	h.press("u")
	require.Empty(t, h.model.filter.Slot)
	require.Equal(t, "No upcoming time slots", h.notice())
}

func TestToggleBooksAndCancels(t *testing.T) {
	h := newHarness(t, "alice")

	h.press("enter")
	require.Len(t, h.booker.calls, 1)
	require.Equal(t, "Court A", h.booker.calls[0].cell.Venue)
	require.Equal(t, "18:00", h.booker.calls[0].cell.Slot)
	require.Equal(t, grid.Available, h.booker.calls[0].cell.Status)
	require.Equal(t, 1, h.model.pending)

	// Room 1 at 19:00 is already alice's.
	h.press("down", "right")
	cmd := h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Len(t, h.booker.calls, 2)
	require.Equal(t, grid.Mine, h.booker.calls[1].cell.Status)
	require.Equal(t, 2, h.model.pending)

	h.send(cmd())
	require.Equal(t, 1, h.model.pending)

	// The store is untouched until a push event arrives.
	require.Len(t, h.source.store.Snapshot().BookingsAt("Court A", "18:00"), 0)
}

func TestToggleRequiresLogin(t *testing.T) {
	h := newHarness(t, "")

	h.press("enter")
	require.Empty(t, h.booker.calls)
	require.Equal(t, "Log in to book", h.notice())
}

func TestLogoutForgetsIdentity(t *testing.T) {
	h := newHarness(t, "alice")

	h.press("O")
	require.Empty(t, h.source.Session().Username)
	h.press("enter")
	require.Empty(t, h.booker.calls)
	require.Equal(t, "Log in to book", h.notice())
}

func TestSkillCycleIsPersisted(t *testing.T) {
	h := newHarness(t, "alice")

	h.press("s")
	require.Equal(t, domain.SkillIntermediate, h.model.prefs.SkillLevel)
	require.Equal(t, "Skill level: intermediate", h.notice())

	saved, err := prefs.Load(h.model.prefsPath)
	require.NoError(t, err)
	require.Equal(t, domain.SkillIntermediate, saved.SkillLevel)

	h.press("enter")
	require.Equal(t, domain.SkillIntermediate, h.booker.calls[0].skill)
}

func TestVenueFilterCyclesAndClearsWhenVenueDisappears(t *testing.T) {
	h := newHarness(t, "alice")

	h.press("v")
	require.Equal(t, "Court A", h.model.filter.Venue)
	h.press("v")
	require.Equal(t, "Room 1", h.model.filter.Venue)
	h.press("v")
	require.Empty(t, h.model.filter.Venue)

	h.press("v", "v")
	_, err := h.source.store.Apply(event.VenueUpdate{Action: event.DeleteVenue, Name: "Room 1"})
	require.NoError(t, err)
	h.send(changedMsg{})
	require.Empty(t, h.model.filter.Venue)
	require.Len(t, h.model.snapshot.Venues, 1)
}

func TestViewRendersGridAndMessages(t *testing.T) {
	h := newHarness(t, "alice")

	out := h.model.View()
	require.Contains(t, out, "courtside")
	require.Contains(t, out, "Court A")
	require.Contains(t, out, "19:00")
	require.Contains(t, out, "1/2 AL *")

	h.press("m")
	require.Equal(t, ViewMessages, h.model.currentView)
	require.Contains(t, h.model.View(), "No messages.")

	h.press("?")
	require.True(t, h.model.showHelp)
	h.press("x")
	require.False(t, h.model.showHelp)
}

func TestLogViewShowsClientLog(t *testing.T) {
	h := newHarness(t, "alice")
	path := filepath.Join(t.TempDir(), "courtside.log")
	lines := "time=2026-10-17T18:50:00.000Z level=WARN msg=\"push connect failed\" attempt=2\npanic: boom\n"
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	h.model.logPath = path

	h.press("L")
	require.Equal(t, ViewLog, h.model.currentView)
	require.Len(t, h.model.logs, 2)

	out := h.model.View()
	require.Contains(t, out, "18:50:00")
	require.Contains(t, out, "push connect failed")
	require.Contains(t, out, "panic: boom")

	h.press("L")
	require.Equal(t, ViewGrid, h.model.currentView)
}
