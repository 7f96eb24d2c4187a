package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/state"
)

// SnapshotLoader produces a complete snapshot of the server.
type SnapshotLoader interface {
	Load(ctx context.Context) (state.Snapshot, error)
}

// Loader fetches the five collections concurrently. Any failure fails the
// whole load; a partial snapshot is never returned.
type Loader struct {
	source api.Fetcher
}

var _ SnapshotLoader = (*Loader)(nil)

func NewLoader(source api.Fetcher) *Loader {
	return &Loader{source: source}
}

func (l *Loader) Load(ctx context.Context) (state.Snapshot, error) {
	var (
		venues   []domain.Venue
		slots    []string
		rows     []api.BookingRecord
		messages []domain.Message
		users    []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		venues, err = l.source.FetchVenues(gctx)
		return wrap("venues", err)
	})
	g.Go(func() (err error) {
		slots, err = l.source.FetchTimeSlots(gctx)
		return wrap("time slots", err)
	})
	g.Go(func() (err error) {
		rows, err = l.source.FetchBookings(gctx)
		return wrap("bookings", err)
	})
	g.Go(func() (err error) {
		messages, err = l.source.FetchMessages(gctx)
		return wrap("messages", err)
	})
	g.Go(func() (err error) {
		users, err = l.source.FetchUsers(gctx)
		return wrap("users", err)
	})
	if err := g.Wait(); err != nil {
		return state.Snapshot{}, err
	}
	return state.Snapshot{
		Venues:    venues,
		TimeSlots: slots,
		Bookings:  api.GroupBookings(rows),
		Messages:  messages,
		Users:     users,
	}, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}
