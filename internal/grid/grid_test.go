package grid

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/state"
)

func booking(venue, slot, user string) domain.Booking {
	return domain.Booking{VenueName: venue, TimeSlot: slot, Username: user, SkillLevel: domain.SkillBeginner}
}

func testSnapshot() state.Snapshot {
	return state.Snapshot{
		Venues: []domain.Venue{
			{Name: "Court A", Capacity: 4, IsOpen: true},
			{Name: "Room 1", Capacity: 2, IsOpen: true},
			{Name: "Hall", Capacity: 0, IsOpen: false},
		},
		TimeSlots: []string{"18:00", "19:00", "20:00"},
		Bookings: map[domain.SlotKey][]domain.Booking{
			{Venue: "Room 1", Slot: "19:00"}: {booking("Room 1", "19:00", "alice"), booking("Room 1", "19:00", "bob")},
			{Venue: "Court A", Slot: "19:00"}: {booking("Court A", "19:00", "carol")},
			// Orphan: the venue is gone.
			{Venue: "Old Hall", Slot: "19:00"}: {booking("Old Hall", "19:00", "dave")},
		},
	}
}

func TestBuild_StatusesAndPast(t *testing.T) {
	g := Build(testSnapshot(), "alice", 18*60+50, Filter{})

	require.Len(t, g.Rows, 3)
	require.Len(t, g.Rows[0], 3)
	require.Equal(t, 3, g.Total)

	pastCell, ok := g.Cell(0, 0)
	require.True(t, ok)
	require.True(t, pastCell.Past)
	require.Equal(t, Available, pastCell.Status)

	mine, _ := g.Cell(1, 1)
	require.Equal(t, Mine, mine.Status)
	require.False(t, mine.Past)
	require.Equal(t, Cancel, mine.Action())
	require.Equal(t, "2/2 AL BO *", mine.Label())

	court, _ := g.Cell(1, 0)
	require.Equal(t, Available, court.Status)
	require.Equal(t, Book, court.Action())
	require.Equal(t, "1/4 CA", court.Label())

	hall, _ := g.Cell(2, 2)
	require.Equal(t, Closed, hall.Status)
	require.Equal(t, 4, hall.Capacity)
	require.Equal(t, None, hall.Action())
	require.Equal(t, "closed", hall.Label())

	_, ok = g.Cell(3, 0)
	require.False(t, ok)
}

func TestBuild_FullForOthers(t *testing.T) {
	g := Build(testSnapshot(), "carol", 0, Filter{Venue: "Room 1", Slot: "19:00"})

	require.Len(t, g.Rows, 1)
	require.Len(t, g.Rows[0], 1)
	cell := g.Rows[0][0]
	require.Equal(t, Full, cell.Status)
	require.Equal(t, None, cell.Action())
	// Filters never change the total.
	require.Equal(t, 3, g.Total)
}

func TestBuild_NoUserNeverMine(t *testing.T) {
	g := Build(testSnapshot(), "", 0, Filter{Venue: "Court A"})
	for _, row := range g.Rows {
		require.NotEqual(t, Mine, row[0].Status)
	}
}

func TestNextUpcoming(t *testing.T) {
	slots := []string{"18:00", "19:00", "20:00"}

	got, ok := NextUpcoming(slots, 18*60+50)
	require.True(t, ok)
	require.Equal(t, "19:00", got)

	got, ok = NextUpcoming(slots, 19*60)
	require.True(t, ok)
	require.Equal(t, "19:00", got)

	_, ok = NextUpcoming(slots, 20*60+1)
	require.False(t, ok)
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"alice":        "AL",
		"a":            "A",
		"mary jane":    "MJ",
		"Ann Lee Chan": "AL",
		"  ":           "",
		"élodie":       "ÉL",
	}
	for in, want := range cases {
		require.Equal(t, want, Initials(in), "Initials(%q)", in)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Build(testSnapshot(), "alice", 18*60+50, Filter{}))

	out := buf.String()
	require.Contains(t, out, "Court A")
	require.Contains(t, out, "18:00 -")
	require.Contains(t, out, "2/2 AL BO *")
	require.Contains(t, out, "closed")
	require.Contains(t, out, "3 bookings")
}
