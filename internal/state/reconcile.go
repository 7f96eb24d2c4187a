package state

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/event"
)

// apply merges one event into data. Every merge rule is idempotent.
func apply(data *Snapshot, ev event.Event) (bool, error) {
	switch e := ev.(type) {
	case event.BookingUpdate:
		return applyBooking(data, e)
	case event.VenueUpdate:
		return applyVenue(data, e)
	case event.MessageUpdate:
		return applyMessage(data, e)
	case event.UserUpdate:
		return applyUser(data, e)
	case event.UserActivity, event.AdminActivity, event.ConnectedUsers:
		// Presence and activity are session concerns, not mirrored entities.
		return false, nil
	case nil:
		return false, fmt.Errorf("%w: nil", event.ErrUnknownEvent)
	}
	return false, fmt.Errorf("%w: %T", event.ErrUnknownEvent, ev)
}

func applyBooking(data *Snapshot, e event.BookingUpdate) (bool, error) {
	key := domain.SlotKey{Venue: e.VenueName, Slot: e.TimeSlot}
	list := data.Bookings[key]
	held := func(b domain.Booking) bool { return b.Username == e.Username }

	switch e.Action {
	case event.NewBooking:
		if lo.ContainsBy(list, held) {
			return false, nil
		}
		if data.Bookings == nil {
			data.Bookings = make(map[domain.SlotKey][]domain.Booking)
		}
		data.Bookings[key] = append(list, domain.Booking{
			VenueName:  e.VenueName,
			TimeSlot:   e.TimeSlot,
			Username:   e.Username,
			SkillLevel: e.SkillLevel,
		})
		return true, nil

	case event.CancelBooking:
		kept := lo.Reject(list, func(b domain.Booking, _ int) bool { return held(b) })
		if len(kept) == len(list) {
			return false, nil
		}
		setBookings(data, key, kept)
		return true, nil
	}
	return false, fmt.Errorf("%w: booking %q", event.ErrUnknownAction, e.Action)
}

func applyVenue(data *Snapshot, e event.VenueUpdate) (bool, error) {
	_, idx, found := lo.FindIndexOf(data.Venues, func(v domain.Venue) bool { return v.Name == e.Name })

	switch e.Action {
	case event.NewVenue:
		if found {
			return false, nil
		}
		data.Venues = append(data.Venues, domain.Venue{Name: e.Name, Capacity: e.Capacity, IsOpen: e.IsOpen})
		// A new venue starts empty. Bookings already keyed to its name arrived
		// after an earlier venue of that name was deleted.
		for key := range data.Bookings {
			if key.Venue == e.Name {
				delete(data.Bookings, key)
			}
		}
		return true, nil

	case event.UpdateVenue:
		if !found {
			return false, nil
		}
		current := data.Venues[idx]
		if current.Capacity == e.Capacity && current.IsOpen == e.IsOpen {
			return false, nil
		}
		data.Venues[idx].Capacity = e.Capacity
		data.Venues[idx].IsOpen = e.IsOpen
		return true, nil

	case event.DeleteVenue:
		changed := false
		if found {
			data.Venues = append(data.Venues[:idx:idx], data.Venues[idx+1:]...)
			changed = true
		}
		// Write-time cascade; reads filter orphans regardless.
		for key := range data.Bookings {
			if key.Venue == e.Name {
				delete(data.Bookings, key)
				changed = true
			}
		}
		return changed, nil
	}
	return false, fmt.Errorf("%w: venue %q", event.ErrUnknownAction, e.Action)
}

func applyMessage(data *Snapshot, e event.MessageUpdate) (bool, error) {
	sameID := func(m domain.Message) bool { return m.ID == e.ID }

	switch e.Action {
	case event.NewMessage:
		// Messages without an id cannot be told apart, so each one is kept.
		if e.ID != 0 && lo.ContainsBy(data.Messages, sameID) {
			return false, nil
		}
		msg := e.Message
		msg.ID = e.ID
		data.Messages = append([]domain.Message{msg}, data.Messages...)
		return true, nil

	case event.DeleteMessage:
		kept := lo.Reject(data.Messages, func(m domain.Message, _ int) bool { return sameID(m) })
		if len(kept) == len(data.Messages) {
			return false, nil
		}
		data.Messages = kept
		return true, nil
	}
	return false, fmt.Errorf("%w: message %q", event.ErrUnknownAction, e.Action)
}

func applyUser(data *Snapshot, e event.UserUpdate) (bool, error) {
	_, idx, found := lo.FindIndexOf(data.Users, func(u domain.User) bool { return u.Username == e.Username })

	switch e.Action {
	case event.NewUser:
		if found {
			return false, nil
		}
		data.Users = append(data.Users, domain.User{Username: e.Username, SkillLevel: e.SkillLevel, IsAdmin: e.IsAdmin})
		return true, nil

	case event.UpdateUser:
		if !found {
			return false, nil
		}
		current := data.Users[idx]
		if current.SkillLevel == e.SkillLevel && current.IsAdmin == e.IsAdmin {
			return false, nil
		}
		data.Users[idx].SkillLevel = e.SkillLevel
		data.Users[idx].IsAdmin = e.IsAdmin
		return true, nil

	case event.DeleteUser:
		changed := false
		if found {
			data.Users = append(data.Users[:idx:idx], data.Users[idx+1:]...)
			changed = true
		}
		for key, list := range data.Bookings {
			kept := lo.Reject(list, func(b domain.Booking, _ int) bool { return b.Username == e.Username })
			if len(kept) != len(list) {
				setBookings(data, key, kept)
				changed = true
			}
		}
		return changed, nil
	}
	return false, fmt.Errorf("%w: user %q", event.ErrUnknownAction, e.Action)
}

// setBookings keeps the map free of empty lists so snapshots compare cleanly.
func setBookings(data *Snapshot, key domain.SlotKey, list []domain.Booking) {
	if len(list) == 0 {
		delete(data.Bookings, key)
		return
	}
	data.Bookings[key] = list
}
