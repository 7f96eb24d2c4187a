// Package grid derives the advisory booking grid from a snapshot. Nothing
// here is authoritative: the server decides every booking.
package grid

import (
	"strings"

	"github.com/samber/lo"

	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/state"
)

// Status classifies a cell for the current user.
type Status int

const (
	Available Status = iota
	Mine
	Full
	Closed
)

func (s Status) String() string {
	switch s {
	case Mine:
		return "mine"
	case Full:
		return "full"
	case Closed:
		return "closed"
	default:
		return "available"
	}
}

// Action is what activating a cell would do.
type Action int

const (
	None Action = iota
	Book
	Cancel
)

// Cell is one (venue, slot) intersection.
type Cell struct {
	Venue    string
	Slot     string
	Capacity int
	Bookings []domain.Booking
	Status   Status
	// Past is set when the slot starts before the adjusted time of day.
	Past bool
}

// Count is the number of bookings held.
func (c Cell) Count() int {
	return len(c.Bookings)
}

// Action reports what activating the cell does: cancel your own booking,
// book a free place, or nothing for closed and full cells.
func (c Cell) Action() Action {
	switch c.Status {
	case Mine:
		return Cancel
	case Available:
		return Book
	default:
		return None
	}
}

// Initials lists the booked users' initials in booking order.
func (c Cell) Initials() []string {
	return lo.Map(c.Bookings, func(b domain.Booking, _ int) string { return Initials(b.Username) })
}

// Filter narrows the grid. Empty fields match everything.
type Filter struct {
	Venue string
	Slot  string
}

// Grid is the filtered view: rows are time slots, columns are venues.
type Grid struct {
	Venues []domain.Venue
	Slots  []string
	Rows   [][]Cell
	// Total counts every booking on a mirrored venue, ignoring the filter.
	Total int
}

// Build derives the grid for username at nowMinutes (minutes since midnight
// on the virtual clock).
func Build(snap state.Snapshot, username string, nowMinutes int, f Filter) Grid {
	venues := snap.Venues
	if f.Venue != "" {
		venues = lo.Filter(venues, func(v domain.Venue, _ int) bool { return v.Name == f.Venue })
	}
	slots := snap.TimeSlots
	if f.Slot != "" {
		slots = lo.Filter(slots, func(s string, _ int) bool { return s == f.Slot })
	}

	g := Grid{
		Venues: venues,
		Slots:  slots,
		Rows:   make([][]Cell, 0, len(slots)),
		Total:  snap.TotalBookings(),
	}
	for _, slot := range slots {
		past := false
		if minutes, err := domain.SlotMinutes(slot); err == nil {
			past = minutes < nowMinutes
		}
		row := make([]Cell, 0, len(venues))
		for _, v := range venues {
			cell := Cell{
				Venue:    v.Name,
				Slot:     slot,
				Capacity: v.EffectiveCapacity(),
				Bookings: snap.BookingsAt(v.Name, slot),
				Past:     past,
			}
			cell.Status = classify(v, cell, username)
			row = append(row, cell)
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

func classify(v domain.Venue, c Cell, username string) Status {
	switch {
	case !v.IsOpen:
		return Closed
	case username != "" && lo.ContainsBy(c.Bookings, func(b domain.Booking) bool { return b.Username == username }):
		return Mine
	case c.Count() >= c.Capacity:
		return Full
	default:
		return Available
	}
}

// Cell returns the cell at row, col.
func (g Grid) Cell(row, col int) (Cell, bool) {
	if row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Rows[row]) {
		return Cell{}, false
	}
	return g.Rows[row][col], true
}

// NextUpcoming returns the first slot, in sequence order, that starts at or
// after nowMinutes.
func NextUpcoming(slots []string, nowMinutes int) (string, bool) {
	return lo.Find(slots, func(s string) bool {
		minutes, err := domain.SlotMinutes(s)
		return err == nil && minutes >= nowMinutes
	})
}

// Initials abbreviates a username to at most two upper-case letters: the
// first two letters of a single word, otherwise the first letter of each of
// the first two words.
func Initials(username string) string {
	words := strings.Fields(username)
	switch len(words) {
	case 0:
		return ""
	case 1:
		r := []rune(words[0])
		return strings.ToUpper(string(r[:min(2, len(r))]))
	}
	var b strings.Builder
	for _, w := range words[:2] {
		b.WriteString(strings.ToUpper(string([]rune(w)[0])))
	}
	return b.String()
}
