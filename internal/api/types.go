package api

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/five82/courtside/internal/domain"
)

// Flag decodes the booleans the server stores as 0/1 as well as JSON
// true/false.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(data)), `"`) {
	case "true", "1":
		*f = true
	case "false", "0", "null", "":
		*f = false
	default:
		return fmt.Errorf("decode flag %s", data)
	}
	return nil
}

// VenueRecord mirrors an entry of /api/venues.
type VenueRecord struct {
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	IsOpen    *Flag    `json:"is_open"`
	TimeSlots []string `json:"time_slots,omitempty"`
}

// Venue converts the record; a missing is_open means open.
func (r VenueRecord) Venue() domain.Venue {
	return domain.Venue{
		Name:     r.Name,
		Capacity: r.Capacity,
		IsOpen:   r.IsOpen == nil || bool(*r.IsOpen),
	}
}

// BookingRecord mirrors a row of /api/bookings.
type BookingRecord struct {
	VenueName  string `json:"venue_name"`
	TimeSlot   string `json:"time_slot"`
	Username   string `json:"username"`
	SkillLevel string `json:"skill_level"`
}

// Booking converts the record.
func (r BookingRecord) Booking() domain.Booking {
	return domain.Booking{
		VenueName:  r.VenueName,
		TimeSlot:   r.TimeSlot,
		Username:   r.Username,
		SkillLevel: domain.SkillLevel(r.SkillLevel),
	}
}

// GroupBookings indexes flat rows by grid cell, keeping row order within a
// cell and dropping repeated (venue, slot, user) rows.
func GroupBookings(records []BookingRecord) map[domain.SlotKey][]domain.Booking {
	if len(records) == 0 {
		return nil
	}
	grouped := make(map[domain.SlotKey][]domain.Booking)
	seen := make(map[domain.Booking]bool, len(records))
	for _, r := range records {
		b := r.Booking()
		dedupe := b
		dedupe.SkillLevel = ""
		if seen[dedupe] {
			continue
		}
		seen[dedupe] = true
		grouped[b.Key()] = append(grouped[b.Key()], b)
	}
	return grouped
}

// UserRecord mirrors an entry of /api/users.
type UserRecord struct {
	Username   string `json:"username"`
	SkillLevel string `json:"skill_level"`
	IsAdmin    Flag   `json:"is_admin"`
}

// User converts the record.
func (r UserRecord) User() domain.User {
	return domain.User{
		Username:   r.Username,
		SkillLevel: domain.SkillLevel(r.SkillLevel),
		IsAdmin:    bool(r.IsAdmin),
	}
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=20"`
	IsAdmin  bool   `json:"isAdmin"`
}

// BookingRequest is the body of POST /api/booking.
type BookingRequest struct {
	VenueName  string            `json:"venueName" validate:"required"`
	TimeSlot   string            `json:"timeSlot" validate:"required,slot"`
	Username   string            `json:"username" validate:"required,max=20"`
	SkillLevel domain.SkillLevel `json:"skillLevel" validate:"required,oneof=beginner intermediate advanced"`
}

// CancelRequest is the body of DELETE /api/booking.
type CancelRequest struct {
	VenueName string `json:"venueName" validate:"required"`
	TimeSlot  string `json:"timeSlot" validate:"required,slot"`
	Username  string `json:"username" validate:"required,max=20"`
}

// VenueRequest is the body of POST and PUT /api/venue. OriginalName is only
// sent on updates.
type VenueRequest struct {
	Name         string   `json:"name" validate:"required"`
	Capacity     int      `json:"capacity" validate:"min=1"`
	TimeSlots    []string `json:"timeSlots" validate:"dive,slot"`
	IsOpen       bool     `json:"isOpen"`
	OriginalName string   `json:"originalName,omitempty"`
}

// UserRequest is the body of POST /api/user.
type UserRequest struct {
	Username   string            `json:"username" validate:"required,max=20"`
	SkillLevel domain.SkillLevel `json:"skillLevel" validate:"required,oneof=beginner intermediate advanced"`
	IsAdmin    bool              `json:"isAdmin"`
}

// MessageRequest is the body of POST /api/message.
type MessageRequest struct {
	Author string `json:"author" validate:"required"`
	Text   string `json:"text" validate:"required"`
}

type errorBody struct {
	Error string `json:"error"`
}
