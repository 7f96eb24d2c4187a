package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/push"
	"github.com/five82/courtside/internal/testserver"
)

func courtSeed() testserver.Seed {
	return testserver.Seed{
		Venues: []domain.Venue{
			{Name: "Court A", Capacity: 4, IsOpen: true},
			{Name: "Room 1", Capacity: 2, IsOpen: true},
		},
		TimeSlots: []string{"18:00", "19:00", "20:00"},
		Bookings: []domain.Booking{
			{VenueName: "Court A", TimeSlot: "18:00", Username: "dave", SkillLevel: domain.SkillAdvanced},
		},
		Messages: []domain.Message{
			{ID: 7, Author: "desk", Text: "nets replaced", CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)},
		},
		Users: []domain.User{{Username: "erin", SkillLevel: domain.SkillAdvanced, IsAdmin: true}},
	}
}

func startLive(t *testing.T, srv *testserver.Server) *Manager {
	t.Helper()
	client, err := api.NewClient(srv.URL())
	require.NoError(t, err)
	m := New(Options{
		Loader:      NewLoader(client),
		Transport:   PushTransport(push.NewDialer(client.BaseURL(), client.ClientID(), nil)),
		Commander:   client,
		BaseBackoff: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m
}

func TestLoader_BuildsSnapshotFromAllCollections(t *testing.T) {
	srv := testserver.New(courtSeed())
	t.Cleanup(srv.Close)
	client, err := api.NewClient(srv.URL())
	require.NoError(t, err)

	snap, err := NewLoader(client).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, canonical(srv.Snapshot()), canonical(snap))
	require.Equal(t, []string{"dave"}, usernamesAt(snap.BookingsAt("Court A", "18:00")))
}

func TestLoader_FailsWholeLoadOnAnyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/users" {
			http.Error(w, "db down", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)
	client, err := api.NewClient(server.URL)
	require.NoError(t, err)

	_, err = NewLoader(client).Load(context.Background())
	require.ErrorContains(t, err, "load users")
}

func TestSession_MissedVenueRecoveredAfterReconnect(t *testing.T) {
	srv := testserver.New(courtSeed())
	t.Cleanup(srv.Close)
	m := startLive(t, srv)
	store := m.Store()

	require.Eventually(t, func() bool {
		return store.Version() > 0 && m.Status() == Connected
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"Court A", "Room 1"}, venueNames(store))

	// Partition the client, then add Room 2 while nobody is listening.
	srv.RefuseConnections(true)
	srv.DropConnections()
	require.Eventually(t, func() bool { return m.Status() != Connected }, 5*time.Second, 10*time.Millisecond)

	admin, err := api.NewClient(srv.URL())
	require.NoError(t, err)
	require.NoError(t, admin.CreateVenue(context.Background(), api.VenueRequest{Name: "Room 2", Capacity: 2, IsOpen: true}))
	require.NotContains(t, venueNames(store), "Room 2")

	srv.RefuseConnections(false)
	require.Eventually(t, func() bool {
		return m.Status() == Connected && assert.ObjectsAreEqual(store.Snapshot(), canonical(srv.Snapshot()))
	}, 5*time.Second, 10*time.Millisecond, "reconnect should resync to the server state")
	require.Equal(t, []string{"Court A", "Room 1", "Room 2"}, venueNames(store))
	require.GreaterOrEqual(t, m.Generation(), uint64(2))
}

func TestSession_LiveEventsReachStore(t *testing.T) {
	srv := testserver.New(courtSeed())
	t.Cleanup(srv.Close)
	m := startLive(t, srv)
	store := m.Store()
	require.Eventually(t, func() bool { return store.Version() > 0 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Login(context.Background(), "alice", false))
	require.Eventually(t, func() bool { return srv.LoggedIn("alice") && m.Presence() == 1 }, 5*time.Second, 10*time.Millisecond)

	admin, err := api.NewClient(srv.URL())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, admin.CreateMessage(ctx, api.MessageRequest{Author: "erin", Text: "courts close at 21:00"}))
	require.NoError(t, admin.DeleteMessage(ctx, 7))
	require.NoError(t, admin.DeleteVenue(ctx, "Court A"))

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(store.Snapshot(), canonical(srv.Snapshot()))
	}, 5*time.Second, 10*time.Millisecond)
	snap := store.Snapshot()
	require.Len(t, snap.Messages, 1)
	require.Equal(t, "courts close at 21:00", snap.Messages[0].Text)
	require.Empty(t, snap.BookingsAt("Court A", "18:00"))
}

func usernamesAt(bookings []domain.Booking) []string {
	out := make([]string, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Username)
	}
	return out
}
