package state

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/event"
)

func baseSnapshot() Snapshot {
	return Snapshot{
		Venues: []domain.Venue{
			{Name: "Court A", Capacity: 4, IsOpen: true},
			{Name: "Room 1", Capacity: 2, IsOpen: true},
		},
		TimeSlots: []string{"18:00", "19:00", "20:00"},
		Bookings: map[domain.SlotKey][]domain.Booking{
			{Venue: "Court A", Slot: "18:00"}: {
				{VenueName: "Court A", TimeSlot: "18:00", Username: "dave", SkillLevel: domain.SkillBeginner},
			},
		},
		Messages: []domain.Message{
			{ID: 7, Author: "desk", Text: "nets replaced", CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)},
		},
		Users: []domain.User{
			{Username: "dave", SkillLevel: domain.SkillBeginner},
			{Username: "erin", SkillLevel: domain.SkillAdvanced, IsAdmin: true},
		},
	}
}

func seeded(t *testing.T) *Store {
	t.Helper()
	var s Store
	s.ReplaceAll(baseSnapshot())
	return &s
}

func TestStore_ReplaceAllAndSnapshotClone(t *testing.T) {
	s := seeded(t)

	snap := s.Snapshot()
	require.Equal(t, baseSnapshot(), snap)

	// Returned snapshot should be independent of the stored one.
	snap.Venues[0].Capacity = 99
	snap.Bookings[domain.SlotKey{Venue: "Court A", Slot: "18:00"}][0].Username = "mallory"
	again := s.Snapshot()
	require.Equal(t, 4, again.Venues[0].Capacity)
	require.Equal(t, "dave", again.BookingsAt("Court A", "18:00")[0].Username)
}

func TestStore_ApplyIsIdempotentForEveryKind(t *testing.T) {
	cases := []struct {
		name string
		ev   event.Event
	}{
		{"new_booking", event.BookingUpdate{Action: event.NewBooking, VenueName: "Room 1", TimeSlot: "19:00", Username: "alice", SkillLevel: domain.SkillIntermediate}},
		{"cancel_booking", event.BookingUpdate{Action: event.CancelBooking, VenueName: "Court A", TimeSlot: "18:00", Username: "dave"}},
		{"new_venue", event.VenueUpdate{Action: event.NewVenue, Name: "Room 2", Capacity: 6, IsOpen: true}},
		{"update_venue", event.VenueUpdate{Action: event.UpdateVenue, Name: "Room 1", Capacity: 3, IsOpen: false}},
		{"delete_venue", event.VenueUpdate{Action: event.DeleteVenue, Name: "Court A"}},
		{"new_message", event.MessageUpdate{Action: event.NewMessage, ID: 8, Message: domain.Message{ID: 8, Author: "desk", Text: "league night"}}},
		{"delete_message", event.MessageUpdate{Action: event.DeleteMessage, ID: 7}},
		{"new_user", event.UserUpdate{Action: event.NewUser, Username: "alice", SkillLevel: domain.SkillIntermediate}},
		{"update_user", event.UserUpdate{Action: event.UpdateUser, Username: "dave", SkillLevel: domain.SkillAdvanced, IsAdmin: true}},
		{"delete_user", event.UserUpdate{Action: event.DeleteUser, Username: "dave"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := seeded(t)

			changed, err := s.Apply(tc.ev)
			require.NoError(t, err)
			require.True(t, changed)
			once := s.Snapshot()
			version := s.Version()

			changed, err = s.Apply(tc.ev)
			require.NoError(t, err)
			require.False(t, changed)
			require.Equal(t, once, s.Snapshot())
			require.Equal(t, version, s.Version())
		})
	}
}

func TestStore_MergeRules(t *testing.T) {
	s := seeded(t)

	mustApply(t, s, event.BookingUpdate{Action: event.NewBooking, VenueName: "Court A", TimeSlot: "18:00", Username: "erin", SkillLevel: domain.SkillAdvanced})
	got := s.BookingsAt("Court A", "18:00")
	require.Len(t, got, 2)
	require.Equal(t, "dave", got[0].Username)
	require.Equal(t, "erin", got[1].Username)

	mustApply(t, s, event.MessageUpdate{Action: event.NewMessage, ID: 8, Message: domain.Message{Author: "desk", Text: "newest"}})
	snap := s.Snapshot()
	require.Equal(t, domain.MessageID(8), snap.Messages[0].ID)
	require.Equal(t, domain.MessageID(7), snap.Messages[1].ID)

	changed, err := s.Apply(event.VenueUpdate{Action: event.UpdateVenue, Name: "Nowhere", Capacity: 1})
	require.NoError(t, err)
	require.False(t, changed)

	mustApply(t, s, event.UserUpdate{Action: event.DeleteUser, Username: "dave"})
	require.False(t, s.Snapshot().HasBooking("Court A", "18:00", "dave"))
	require.True(t, s.Snapshot().HasBooking("Court A", "18:00", "erin"))
}

func TestStore_DeletedVenueBookingsFilteredOnRead(t *testing.T) {
	s := seeded(t)

	mustApply(t, s, event.VenueUpdate{Action: event.DeleteVenue, Name: "Court A"})
	// A booking for the deleted venue that was in flight arrives afterwards.
	mustApply(t, s, event.BookingUpdate{Action: event.NewBooking, VenueName: "Court A", TimeSlot: "19:00", Username: "alice"})

	require.Empty(t, s.BookingsAt("Court A", "18:00"))
	require.Empty(t, s.BookingsAt("Court A", "19:00"))
	require.Equal(t, 0, s.Snapshot().TotalBookings())

	// Orphans installed by a snapshot are filtered the same way.
	orphaned := baseSnapshot()
	orphaned.Venues = orphaned.Venues[1:]
	s.ReplaceAll(orphaned)
	require.Empty(t, s.BookingsAt("Court A", "18:00"))
}

func TestStore_DeleteMessageNormalizesStringID(t *testing.T) {
	s := seeded(t)

	ev, err := event.Decode(event.Envelope{
		Event: event.NameMessage,
		Data:  json.RawMessage(`{"type":"delete_message","id":"7"}`),
	})
	require.NoError(t, err)
	mustApply(t, s, ev)
	require.Empty(t, s.Snapshot().Messages)
}

func TestStore_CapacityHeldUnderServerOrderedDelivery(t *testing.T) {
	s := seeded(t)
	capacity := 2
	room := func() int { return len(s.BookingsAt("Room 1", "19:00")) }

	book := func(user string) event.Event {
		return event.BookingUpdate{Action: event.NewBooking, VenueName: "Room 1", TimeSlot: "19:00", Username: user}
	}
	cancel := func(user string) event.Event {
		return event.BookingUpdate{Action: event.CancelBooking, VenueName: "Room 1", TimeSlot: "19:00", Username: user}
	}

	// The server's serialized order, with duplicates from a flaky relay.
	stream := []event.Event{
		book("alice"), book("bob"), book("alice"),
		cancel("alice"), book("carol"), book("bob"),
		cancel("zed"), cancel("carol"), book("alice"), book("alice"),
	}
	for i, ev := range stream {
		_, err := s.Apply(ev)
		require.NoError(t, err)
		require.LessOrEqual(t, room(), capacity, "after event %d", i)
	}
	require.Equal(t, []string{"bob", "alice"}, usernames(s.BookingsAt("Room 1", "19:00")))
}

func TestStore_CapacityHeldUnderReorderedDelivery(t *testing.T) {
	const capacity = 2
	book := func(user string) event.Event {
		return event.BookingUpdate{Action: event.NewBooking, VenueName: "Room 1", TimeSlot: "19:00", Username: user}
	}
	cancel := func(user string) event.Event {
		return event.BookingUpdate{Action: event.CancelBooking, VenueName: "Room 1", TimeSlot: "19:00", Username: user}
	}

	tests := []struct {
		name   string
		stream []event.Event
		want   []string
	}{
		{
			// Server order: alice books, alice cancels, bob books.
			// The early cancel is a no-op, so alice lingers until a resync.
			name:   "cancel overtakes its book",
			stream: []event.Event{cancel("alice"), book("bob"), book("alice")},
			want:   []string{"bob", "alice"},
		},
		{
			// Server order: alice, bob, cancel alice, carol.
			name:   "users interleaved",
			stream: []event.Event{book("bob"), book("alice"), cancel("alice"), book("carol")},
			want:   []string{"bob", "carol"},
		},
		{
			name:   "interleaved with relayed duplicates",
			stream: []event.Event{book("bob"), book("bob"), book("alice"), cancel("alice"), cancel("alice"), book("carol"), book("bob")},
			want:   []string{"bob", "carol"},
		},
		{
			// Server order: carol cancels (never booked), bob books, bob cancels, alice books.
			name:   "stray and early cancels across users",
			stream: []event.Event{cancel("bob"), book("alice"), cancel("carol"), book("bob")},
			want:   []string{"alice", "bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seeded(t)
			for i, ev := range tt.stream {
				_, err := s.Apply(ev)
				require.NoError(t, err)
				require.LessOrEqual(t, len(s.BookingsAt("Room 1", "19:00")), capacity, "after event %d", i)
			}
			require.Equal(t, tt.want, usernames(s.BookingsAt("Room 1", "19:00")))
		})
	}
}

func TestStore_ResyncClearsBookingLeftByReordering(t *testing.T) {
	s := seeded(t)
	mustApply(t, s, event.BookingUpdate{Action: event.CancelBooking, VenueName: "Room 1", TimeSlot: "19:00", Username: "alice"})
	mustApply(t, s, event.BookingUpdate{Action: event.NewBooking, VenueName: "Room 1", TimeSlot: "19:00", Username: "bob"})
	mustApply(t, s, event.BookingUpdate{Action: event.NewBooking, VenueName: "Room 1", TimeSlot: "19:00", Username: "alice"})

	server := baseSnapshot()
	server.Bookings[domain.SlotKey{Venue: "Room 1", Slot: "19:00"}] = []domain.Booking{
		{VenueName: "Room 1", TimeSlot: "19:00", Username: "bob"},
	}
	s.ReplaceAll(server)
	require.Equal(t, []string{"bob"}, usernames(s.BookingsAt("Room 1", "19:00")))
}

func TestStore_RecreatedVenueStartsEmpty(t *testing.T) {
	s := seeded(t)
	mustApply(t, s, event.VenueUpdate{Action: event.DeleteVenue, Name: "Court A"})
	// A booking confirmed just before the delete reaches us after it.
	mustApply(t, s, event.BookingUpdate{Action: event.NewBooking, VenueName: "Court A", TimeSlot: "19:00", Username: "alice"})
	require.Empty(t, s.BookingsAt("Court A", "19:00"))

	mustApply(t, s, event.VenueUpdate{Action: event.NewVenue, Name: "Court A", Capacity: 4, IsOpen: true})
	require.Empty(t, s.BookingsAt("Court A", "19:00"))
	require.Empty(t, s.BookingsAt("Court A", "18:00"))
	require.Zero(t, s.Snapshot().TotalBookings())

	// Re-applying new_venue for a venue that exists keeps its bookings.
	mustApply(t, s, event.BookingUpdate{Action: event.NewBooking, VenueName: "Court A", TimeSlot: "20:00", Username: "bob"})
	changed, err := s.Apply(event.VenueUpdate{Action: event.NewVenue, Name: "Court A", Capacity: 4, IsOpen: true})
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, []string{"bob"}, usernames(s.BookingsAt("Court A", "20:00")))
}

func TestStore_MessagesWithoutIDAreAllKept(t *testing.T) {
	s := seeded(t)
	mustApply(t, s, event.MessageUpdate{Action: event.NewMessage, Message: domain.Message{Author: "desk", Text: "one"}})
	mustApply(t, s, event.MessageUpdate{Action: event.NewMessage, Message: domain.Message{Author: "desk", Text: "two"}})

	texts := make([]string, 0, 3)
	for _, m := range s.Snapshot().Messages {
		texts = append(texts, m.Text)
	}
	require.Equal(t, []string{"two", "one", "nets replaced"}, texts)
}

func TestStore_ReconnectSnapshotReplacesInsteadOfMerging(t *testing.T) {
	s := seeded(t)
	mustApply(t, s, event.VenueUpdate{Action: event.NewVenue, Name: "Local Only", Capacity: 1, IsOpen: true})
	mustApply(t, s, event.BookingUpdate{Action: event.NewBooking, VenueName: "Room 1", TimeSlot: "20:00", Username: "dave"})

	s2 := Snapshot{
		Venues:    []domain.Venue{{Name: "Room 1", Capacity: 2, IsOpen: true}, {Name: "Room 2", Capacity: 6, IsOpen: true}},
		TimeSlots: []string{"19:00", "20:00"},
		Bookings: map[domain.SlotKey][]domain.Booking{
			{Venue: "Room 2", Slot: "19:00"}: {{VenueName: "Room 2", TimeSlot: "19:00", Username: "erin", SkillLevel: domain.SkillAdvanced}},
		},
		Messages: []domain.Message{{ID: 11, Author: "desk", Text: "welcome"}},
		Users:    []domain.User{{Username: "erin", SkillLevel: domain.SkillAdvanced, IsAdmin: true}},
	}
	s.ReplaceAll(s2)

	require.Equal(t, s2, s.Snapshot())
}

func TestStore_RejectsUnknownEvents(t *testing.T) {
	s := seeded(t)
	before := s.Snapshot()

	_, err := s.Apply(event.BookingUpdate{Action: "swap_booking", VenueName: "Court A", TimeSlot: "18:00", Username: "dave"})
	require.True(t, errors.Is(err, event.ErrUnknownAction))

	_, err = s.Apply(nil)
	require.True(t, errors.Is(err, event.ErrUnknownEvent))

	changed, err := s.Apply(event.ConnectedUsers{})
	require.NoError(t, err)
	require.False(t, changed)

	require.Equal(t, before, s.Snapshot())
}

func mustApply(t *testing.T, s *Store, ev event.Event) {
	t.Helper()
	_, err := s.Apply(ev)
	require.NoError(t, err)
}

func usernames(list []domain.Booking) []string {
	names := make([]string, 0, len(list))
	for _, b := range list {
		names = append(names, b.Username)
	}
	return names
}
