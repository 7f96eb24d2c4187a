package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/five82/courtside/internal/domain"
)

// Envelope is the frame exchanged over the push channel in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound builds an envelope for a client-to-server event.
func Outbound(name string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return Envelope{Event: name, Data: raw}, nil
}

// LoginPayload announces the session identity.
type LoginPayload struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// AdminActionPayload is rebroadcast by the server as admin_activity.
type AdminActionPayload struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Decode turns an inbound envelope into its typed event.
func Decode(env Envelope) (Event, error) {
	switch env.Event {
	case NameBooking:
		var raw struct {
			Type       string `json:"type"`
			VenueName  string `json:"venueName"`
			TimeSlot   string `json:"timeSlot"`
			Username   string `json:"username"`
			SkillLevel string `json:"skillLevel"`
		}
		if err := unmarshal(env, &raw); err != nil {
			return nil, err
		}
		ev := BookingUpdate{
			Action:     BookingAction(raw.Type),
			VenueName:  raw.VenueName,
			TimeSlot:   raw.TimeSlot,
			Username:   raw.Username,
			SkillLevel: domain.SkillLevel(raw.SkillLevel),
		}
		switch ev.Action {
		case NewBooking, CancelBooking:
			return ev, nil
		}
		return nil, unknownAction(env.Event, raw.Type)

	case NameVenue:
		var raw struct {
			Type     string `json:"type"`
			Name     string `json:"name"`
			Capacity int    `json:"capacity"`
			IsOpen   *bool  `json:"isOpen"`
		}
		if err := unmarshal(env, &raw); err != nil {
			return nil, err
		}
		ev := VenueUpdate{
			Action:   VenueAction(raw.Type),
			Name:     raw.Name,
			Capacity: raw.Capacity,
			IsOpen:   raw.IsOpen == nil || *raw.IsOpen,
		}
		switch ev.Action {
		case NewVenue, UpdateVenue, DeleteVenue:
			return ev, nil
		}
		return nil, unknownAction(env.Event, raw.Type)

	case NameMessage:
		var raw struct {
			Type    string            `json:"type"`
			Message *domain.Message   `json:"message"`
			ID      *domain.MessageID `json:"id"`
		}
		if err := unmarshal(env, &raw); err != nil {
			return nil, err
		}
		ev := MessageUpdate{Action: MessageAction(raw.Type)}
		if raw.Message != nil {
			ev.Message = *raw.Message
			ev.ID = raw.Message.ID
		}
		if raw.ID != nil {
			ev.ID = *raw.ID
		}
		switch ev.Action {
		case NewMessage:
			if raw.Message == nil {
				return nil, fmt.Errorf("decode %s: new_message without message", env.Event)
			}
			return ev, nil
		case DeleteMessage:
			return ev, nil
		}
		return nil, unknownAction(env.Event, raw.Type)

	case NameUser:
		var raw struct {
			Type       string `json:"type"`
			Username   string `json:"username"`
			SkillLevel string `json:"skillLevel"`
			IsAdmin    bool   `json:"isAdmin"`
		}
		if err := unmarshal(env, &raw); err != nil {
			return nil, err
		}
		ev := UserUpdate{
			Action:     UserAction(raw.Type),
			Username:   raw.Username,
			SkillLevel: domain.SkillLevel(raw.SkillLevel),
			IsAdmin:    raw.IsAdmin,
		}
		switch ev.Action {
		case NewUser, UpdateUser, DeleteUser:
			return ev, nil
		}
		return nil, unknownAction(env.Event, raw.Type)

	case NameUserActivity:
		var raw struct {
			Type       string `json:"type"`
			Username   string `json:"username"`
			IsAdmin    bool   `json:"isAdmin"`
			TotalUsers *int   `json:"totalUsers"`
		}
		if err := unmarshal(env, &raw); err != nil {
			return nil, err
		}
		ev := UserActivity{Username: raw.Username, IsAdmin: raw.IsAdmin}
		if raw.TotalUsers != nil {
			ev.TotalUsers = *raw.TotalUsers
			ev.HasTotal = true
		}
		switch strings.TrimPrefix(raw.Type, "user_") {
		case "joined":
			ev.Action = UserJoined
		case "left":
			ev.Action = UserLeft
		default:
			return nil, unknownAction(env.Event, raw.Type)
		}
		return ev, nil

	case NameAdminActivity:
		var raw struct {
			Type  string         `json:"type"`
			Admin string         `json:"admin"`
			Data  map[string]any `json:"data"`
		}
		if err := unmarshal(env, &raw); err != nil {
			return nil, err
		}
		return AdminActivity{Type: raw.Type, Admin: raw.Admin, Data: raw.Data}, nil

	case NameConnectedUsers:
		var items []json.RawMessage
		if err := unmarshal(env, &items); err != nil {
			return nil, err
		}
		users := make([]Identity, 0, len(items))
		for _, item := range items {
			var id Identity
			if err := json.Unmarshal(item, &id); err != nil {
				// Older servers send bare usernames.
				var name string
				if json.Unmarshal(item, &name) != nil {
					return nil, fmt.Errorf("decode %s: %w", env.Event, err)
				}
				id.Username = name
			}
			users = append(users, id)
		}
		return ConnectedUsers{Users: users}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}

func unmarshal(env Envelope, dest any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("decode %s: empty payload", env.Event)
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", env.Event, err)
	}
	return nil
}

func unknownAction(name, action string) error {
	return fmt.Errorf("%w: %s type %q", ErrUnknownAction, name, action)
}

// Encode is the inverse of Decode: it renders a typed event in the shape the
// server broadcasts.
func Encode(ev Event) (Envelope, error) {
	var data any
	switch e := ev.(type) {
	case BookingUpdate:
		data = map[string]any{
			"type":       string(e.Action),
			"venueName":  e.VenueName,
			"timeSlot":   e.TimeSlot,
			"username":   e.Username,
			"skillLevel": string(e.SkillLevel),
		}
	case VenueUpdate:
		data = map[string]any{
			"type":     string(e.Action),
			"name":     e.Name,
			"capacity": e.Capacity,
			"isOpen":   e.IsOpen,
		}
	case MessageUpdate:
		payload := map[string]any{"type": string(e.Action), "id": e.ID}
		if e.Action == NewMessage {
			payload["message"] = e.Message
		}
		data = payload
	case UserUpdate:
		data = map[string]any{
			"type":       string(e.Action),
			"username":   e.Username,
			"skillLevel": string(e.SkillLevel),
			"isAdmin":    e.IsAdmin,
		}
	case UserActivity:
		payload := map[string]any{
			"type":     string(e.Action),
			"username": e.Username,
			"isAdmin":  e.IsAdmin,
		}
		if e.HasTotal {
			payload["totalUsers"] = e.TotalUsers
		}
		data = payload
	case AdminActivity:
		data = map[string]any{"type": e.Type, "admin": e.Admin, "data": e.Data}
	case ConnectedUsers:
		users := e.Users
		if users == nil {
			users = []Identity{}
		}
		data = users
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	return Outbound(ev.EventName(), data)
}
