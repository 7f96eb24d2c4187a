package state

import (
	"sync"

	"github.com/samber/lo"

	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/event"
)

// Snapshot holds the five mirrors at a point in time. It is both the payload
// installed by a full replace and the copy handed to readers.
type Snapshot struct {
	Venues    []domain.Venue
	TimeSlots []string
	Bookings  map[domain.SlotKey][]domain.Booking
	Messages  []domain.Message // most recent first
	Users     []domain.User
}

// Venue looks a venue up by name.
func (s Snapshot) Venue(name string) (domain.Venue, bool) {
	return lo.Find(s.Venues, func(v domain.Venue) bool { return v.Name == name })
}

// User looks a user up by username.
func (s Snapshot) User(username string) (domain.User, bool) {
	return lo.Find(s.Users, func(u domain.User) bool { return u.Username == username })
}

// BookingsAt returns the bookings for one cell in arrival order. Bookings
// whose venue is no longer mirrored are never returned, whatever order the
// venue delete and the booking events arrived in.
func (s Snapshot) BookingsAt(venue, slot string) []domain.Booking {
	if _, ok := s.Venue(venue); !ok {
		return nil
	}
	list := s.Bookings[domain.SlotKey{Venue: venue, Slot: slot}]
	if len(list) == 0 {
		return nil
	}
	return cloneSlice(list)
}

// HasBooking reports whether username holds the given cell.
func (s Snapshot) HasBooking(venue, slot, username string) bool {
	return lo.ContainsBy(s.BookingsAt(venue, slot), func(b domain.Booking) bool {
		return b.Username == username
	})
}

// TotalBookings counts bookings on venues that are currently mirrored.
func (s Snapshot) TotalBookings() int {
	total := 0
	for key, list := range s.Bookings {
		if _, ok := s.Venue(key.Venue); ok {
			total += len(list)
		}
	}
	return total
}

// Store owns the mirrors. Apply and ReplaceAll are the only writers.
type Store struct {
	mu      sync.RWMutex
	data    Snapshot
	version uint64
}

// ReplaceAll discards every mirror and installs snap. Nothing of the previous
// state survives.
func (s *Store) ReplaceAll(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = snap.clone()
	s.version++
}

// Apply reconciles one confirmed server event. Re-applying an event that is
// already reflected leaves the store unchanged and reports changed=false.
func (s *Store) Apply(ev event.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := apply(&s.data, ev)
	if changed {
		s.version++
	}
	return changed, err
}

// Snapshot returns a deep copy of the current mirrors.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.clone()
}

// Version increases on every change, letting readers skip redundant work.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// BookingsAt is Snapshot.BookingsAt against the live mirrors.
func (s *Store) BookingsAt(venue, slot string) []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.BookingsAt(venue, slot)
}

func (s Snapshot) clone() Snapshot {
	dup := Snapshot{
		Venues:    cloneSlice(s.Venues),
		TimeSlots: cloneSlice(s.TimeSlots),
		Messages:  cloneSlice(s.Messages),
		Users:     cloneSlice(s.Users),
	}
	for key, list := range s.Bookings {
		if len(list) == 0 {
			continue
		}
		if dup.Bookings == nil {
			dup.Bookings = make(map[domain.SlotKey][]domain.Booking, len(s.Bookings))
		}
		dup.Bookings[key] = cloneSlice(list)
	}
	return dup
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
