// Package domain defines the booking entities mirrored from the server.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultCapacity applies when the server reports a venue without a capacity.
const DefaultCapacity = 4

// SkillLevel is a player's self-declared level.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// SkillLevels lists the valid levels in display order.
var SkillLevels = []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced}

// Valid reports whether the level is one of SkillLevels.
func (s SkillLevel) Valid() bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
		return true
	}
	return false
}

// Next cycles to the following level, wrapping around.
func (s SkillLevel) Next() SkillLevel {
	for i, level := range SkillLevels {
		if level == s {
			return SkillLevels[(i+1)%len(SkillLevels)]
		}
	}
	return SkillBeginner
}

// Venue is a bookable resource keyed by name.
type Venue struct {
	Name     string
	Capacity int
	IsOpen   bool
}

// EffectiveCapacity returns Capacity, or DefaultCapacity when unset.
func (v Venue) EffectiveCapacity() int {
	if v.Capacity <= 0 {
		return DefaultCapacity
	}
	return v.Capacity
}

// SlotKey addresses one cell of the venue/slot grid.
type SlotKey struct {
	Venue string
	Slot  string
}

// Booking is a single (venue, slot, user) reservation.
type Booking struct {
	VenueName  string
	TimeSlot   string
	Username   string
	SkillLevel SkillLevel
}

// Key returns the grid cell the booking occupies.
func (b Booking) Key() SlotKey {
	return SlotKey{Venue: b.VenueName, Slot: b.TimeSlot}
}

// MessageID is a message identifier. The server sends it either as a JSON
// number or as a numeric string; both decode to the same value.
type MessageID int64

// UnmarshalJSON accepts 7, "7" and " 7 ".
func (id *MessageID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode message id: %w", err)
		}
		raw = strings.TrimSpace(s)
	}
	parsed, err := ParseMessageID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseMessageID normalizes a textual id.
func ParseMessageID(raw string) (MessageID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse message id %q: %w", raw, err)
	}
	return MessageID(n), nil
}

func (id MessageID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Message is a notice-board entry.
type Message struct {
	ID        MessageID
	Author    string
	Text      string
	CreatedAt time.Time
}

// User is a registered account.
type User struct {
	Username   string
	SkillLevel SkillLevel
	IsAdmin    bool
}

// Session is the identity announced on the current push connection.
type Session struct {
	Username  string
	IsAdmin   bool
	Connected bool
}
