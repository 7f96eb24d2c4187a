// Package event defines the closed set of push events the server broadcasts
// and decodes them from the wire envelope.
package event

import (
	"errors"

	"github.com/five82/courtside/internal/domain"
)

// Wire names of the inbound events.
const (
	NameBooking        = "booking_update"
	NameVenue          = "venue_update"
	NameMessage        = "message_update"
	NameUser           = "user_update"
	NameUserActivity   = "user_activity"
	NameAdminActivity  = "admin_activity"
	NameConnectedUsers = "connected_users"
)

// Wire names of the outbound events.
const (
	NameUserLogin   = "user_login"
	NameAdminAction = "admin_action"
)

var (
	// ErrUnknownEvent is returned for an envelope name outside the closed set.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrUnknownAction is returned for an action variant a kind does not define.
	ErrUnknownAction = errors.New("unknown action")
)

// Event is implemented only by the types in this package.
type Event interface {
	EventName() string
	isEvent()
}

// BookingAction is the variant of a booking_update.
type BookingAction string

const (
	NewBooking    BookingAction = "new_booking"
	CancelBooking BookingAction = "cancel_booking"
)

// BookingUpdate adds or removes one user from a (venue, slot) list.
type BookingUpdate struct {
	Action     BookingAction
	VenueName  string
	TimeSlot   string
	Username   string
	SkillLevel domain.SkillLevel
}

// VenueAction is the variant of a venue_update.
type VenueAction string

const (
	NewVenue    VenueAction = "new_venue"
	UpdateVenue VenueAction = "update_venue"
	DeleteVenue VenueAction = "delete_venue"
)

// VenueUpdate creates, edits or removes a venue.
type VenueUpdate struct {
	Action   VenueAction
	Name     string
	Capacity int
	IsOpen   bool
}

// MessageAction is the variant of a message_update.
type MessageAction string

const (
	NewMessage    MessageAction = "new_message"
	DeleteMessage MessageAction = "delete_message"
)

// MessageUpdate carries the full message on creation and only the id on
// deletion.
type MessageUpdate struct {
	Action  MessageAction
	Message domain.Message
	ID      domain.MessageID
}

// UserAction is the variant of a user_update.
type UserAction string

const (
	NewUser    UserAction = "new_user"
	UpdateUser UserAction = "update_user"
	DeleteUser UserAction = "delete_user"
)

// UserUpdate creates, edits or removes an account.
type UserUpdate struct {
	Action     UserAction
	Username   string
	SkillLevel domain.SkillLevel
	IsAdmin    bool
}

// ActivityAction says whether a session joined or left.
type ActivityAction string

const (
	UserJoined ActivityAction = "user_joined"
	UserLeft   ActivityAction = "user_left"
)

// UserActivity reports a session joining or leaving. TotalUsers is only
// meaningful when HasTotal is set.
type UserActivity struct {
	Action     ActivityAction
	Username   string
	IsAdmin    bool
	TotalUsers int
	HasTotal   bool
}

// Admin action types carried by admin_action and admin_activity.
const (
	AdminVenueAdded     = "venue_added"
	AdminVenueUpdated   = "venue_updated"
	AdminVenueDeleted   = "venue_deleted"
	AdminUserAdded      = "user_added"
	AdminUserDeleted    = "user_deleted"
	AdminMessageAdded   = "message_added"
	AdminMessageDeleted = "message_deleted"
)

// AdminActivity is the server's rebroadcast of another admin's action.
type AdminActivity struct {
	Type  string
	Admin string
	Data  map[string]any
}

// Identity is one entry of connected_users.
type Identity struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ConnectedUsers is the server's presence snapshot.
type ConnectedUsers struct {
	Users []Identity
}

func (BookingUpdate) EventName() string  { return NameBooking }
func (VenueUpdate) EventName() string    { return NameVenue }
func (MessageUpdate) EventName() string  { return NameMessage }
func (UserUpdate) EventName() string     { return NameUser }
func (UserActivity) EventName() string   { return NameUserActivity }
func (AdminActivity) EventName() string  { return NameAdminActivity }
func (ConnectedUsers) EventName() string { return NameConnectedUsers }

func (BookingUpdate) isEvent()  {}
func (VenueUpdate) isEvent()    {}
func (MessageUpdate) isEvent()  {}
func (UserUpdate) isEvent()     {}
func (UserActivity) isEvent()   {}
func (AdminActivity) isEvent()  {}
func (ConnectedUsers) isEvent() {}

// Count is the presence count carried by the snapshot.
func (c ConnectedUsers) Count() int {
	return len(c.Users)
}
