package command

import (
	"context"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/event"
)

// AddVenue creates a venue.
func (m *Mutator) AddVenue(ctx context.Context, req api.VenueRequest) Outcome {
	req.OriginalName = ""
	out := m.run(ctx, "add venue", req, func(ctx context.Context) error {
		return m.commander.CreateVenue(ctx, req)
	}, "Venue added", "Failed to add venue")
	m.announce(out, event.AdminVenueAdded, map[string]any{"name": req.Name})
	return out
}

// UpdateVenue edits the venue named req.OriginalName, or req.Name when
// OriginalName is empty.
func (m *Mutator) UpdateVenue(ctx context.Context, req api.VenueRequest) Outcome {
	if req.OriginalName == "" {
		req.OriginalName = req.Name
	}
	out := m.run(ctx, "update venue", req, func(ctx context.Context) error {
		return m.commander.UpdateVenue(ctx, req)
	}, "Venue updated", "Failed to update venue")
	m.announce(out, event.AdminVenueUpdated, map[string]any{"name": req.Name})
	return out
}

type venueName struct {
	Name string `json:"name" validate:"required"`
}

// DeleteVenue removes a venue. The server drops its bookings with it.
func (m *Mutator) DeleteVenue(ctx context.Context, name string) Outcome {
	out := m.run(ctx, "delete venue", venueName{Name: name}, func(ctx context.Context) error {
		return m.commander.DeleteVenue(ctx, name)
	}, "Venue deleted", "Failed to delete venue")
	m.announce(out, event.AdminVenueDeleted, map[string]any{"name": name})
	return out
}

// AddUser registers a user on the server.
func (m *Mutator) AddUser(ctx context.Context, req api.UserRequest) Outcome {
	out := m.run(ctx, "add user", req, func(ctx context.Context) error {
		return m.commander.CreateUser(ctx, req)
	}, "User added", "Failed to add user")
	m.announce(out, event.AdminUserAdded, map[string]any{"username": req.Username})
	return out
}

type userName struct {
	Username string `json:"username" validate:"required"`
}

// DeleteUser removes a user and, on the server, their bookings.
func (m *Mutator) DeleteUser(ctx context.Context, username string) Outcome {
	out := m.run(ctx, "delete user", userName{Username: username}, func(ctx context.Context) error {
		return m.commander.DeleteUser(ctx, username)
	}, "User deleted", "Failed to delete user")
	m.announce(out, event.AdminUserDeleted, map[string]any{"username": username})
	return out
}

// PostMessage publishes an announcement.
func (m *Mutator) PostMessage(ctx context.Context, req api.MessageRequest) Outcome {
	out := m.run(ctx, "post message", req, func(ctx context.Context) error {
		return m.commander.CreateMessage(ctx, req)
	}, "Message posted", "Failed to post message")
	m.announce(out, event.AdminMessageAdded, map[string]any{"author": req.Author})
	return out
}

type messageRef struct {
	ID domain.MessageID `json:"id" validate:"required"`
}

// DeleteMessage removes an announcement.
func (m *Mutator) DeleteMessage(ctx context.Context, id domain.MessageID) Outcome {
	out := m.run(ctx, "delete message", messageRef{ID: id}, func(ctx context.Context) error {
		return m.commander.DeleteMessage(ctx, id)
	}, "Message deleted", "Failed to delete message")
	m.announce(out, event.AdminMessageDeleted, map[string]any{"id": id.String()})
	return out
}

// announce relays an accepted admin change to other clients. Failures are
// logged only: the change itself already happened.
func (m *Mutator) announce(out Outcome, actionType string, data map[string]any) {
	if out.Kind != Accepted || m.broadcaster == nil {
		return
	}
	if err := m.broadcaster.BroadcastAdminAction(actionType, data); err != nil {
		m.logger.Warn("admin broadcast failed", "type", actionType, "error", err)
	}
}
