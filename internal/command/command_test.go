package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/courtside/internal/api"
	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/event"
	"github.com/five82/courtside/internal/grid"
	"github.com/five82/courtside/internal/notify"
)

type shown struct {
	kind notify.Kind
	text string
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []shown
}

func (n *recordingNotifier) Show(kind notify.Kind, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, shown{kind, text})
}

func (n *recordingNotifier) last() shown {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.items) == 0 {
		return shown{}
	}
	return n.items[len(n.items)-1]
}

// fakeCommander answers every command with err, or blocks until the context
// ends when block is set.
type fakeCommander struct {
	api.Commander

	mu       sync.Mutex
	err      error
	block    bool
	bookings []api.BookingRequest
	cancels  []api.CancelRequest
	venues   []api.VenueRequest
	deleted  []string
}

func (f *fakeCommander) answer(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return &api.TransportError{Op: "execute request", Err: ctx.Err()}
	}
	return f.err
}

func (f *fakeCommander) CreateBooking(ctx context.Context, req api.BookingRequest) error {
	f.mu.Lock()
	f.bookings = append(f.bookings, req)
	f.mu.Unlock()
	return f.answer(ctx)
}

func (f *fakeCommander) CancelBooking(ctx context.Context, req api.CancelRequest) error {
	f.mu.Lock()
	f.cancels = append(f.cancels, req)
	f.mu.Unlock()
	return f.answer(ctx)
}

func (f *fakeCommander) UpdateVenue(ctx context.Context, req api.VenueRequest) error {
	f.mu.Lock()
	f.venues = append(f.venues, req)
	f.mu.Unlock()
	return f.answer(ctx)
}

func (f *fakeCommander) DeleteVenue(ctx context.Context, name string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, name)
	f.mu.Unlock()
	return f.answer(ctx)
}

type broadcast struct {
	actionType string
	data       map[string]any
}

type fakeBroadcaster struct {
	err  error
	sent []broadcast
}

func (f *fakeBroadcaster) BroadcastAdminAction(actionType string, data map[string]any) error {
	f.sent = append(f.sent, broadcast{actionType, data})
	return f.err
}

func newMutator(cmd api.Commander, n notify.Notifier, b Broadcaster) *Mutator {
	return New(Options{Commander: cmd, Notifier: n, Broadcaster: b, Timeout: time.Second, Rate: 1000, Burst: 100})
}

func TestBook_Accepted(t *testing.T) {
	cmd := &fakeCommander{}
	notes := &recordingNotifier{}
	m := newMutator(cmd, notes, nil)

	out := m.Book(context.Background(), "Room 1", "19:00", "alice", domain.SkillBeginner)
	require.Equal(t, Accepted, out.Kind)
	require.NoError(t, out.Err)
	require.Equal(t, []api.BookingRequest{{VenueName: "Room 1", TimeSlot: "19:00", Username: "alice", SkillLevel: domain.SkillBeginner}}, cmd.bookings)
	require.Equal(t, shown{notify.Success, "Booked Room 1 at 19:00"}, notes.last())
}

func TestBook_InvalidIsNotSent(t *testing.T) {
	cmd := &fakeCommander{}
	notes := &recordingNotifier{}
	m := newMutator(cmd, notes, nil)

	out := m.Book(context.Background(), "", "25:00", "alice", "expert")
	require.Equal(t, Invalid, out.Kind)
	require.ErrorIs(t, out.Err, domain.ErrInvalid)

	var verr *domain.ValidationError
	require.ErrorAs(t, out.Err, &verr)
	require.Equal(t, []string{"venueName", "timeSlot", "skillLevel"}, verr.Fields)
	require.Empty(t, cmd.bookings)
	require.Equal(t, notify.Error, notes.last().kind)
}

func TestBook_RejectedShowsServerReason(t *testing.T) {
	cmd := &fakeCommander{err: &api.RejectedError{Path: "/api/booking", Status: 409, Reason: "Time slot is full"}}
	notes := &recordingNotifier{}
	m := newMutator(cmd, notes, nil)

	out := m.Book(context.Background(), "Room 1", "19:00", "carol", domain.SkillAdvanced)
	require.Equal(t, Rejected, out.Kind)
	require.ErrorIs(t, out.Err, api.ErrRejected)
	require.Equal(t, shown{notify.Error, "Time slot is full"}, notes.last())
}

func TestCancel_RejectedWithoutReasonUsesFallback(t *testing.T) {
	cmd := &fakeCommander{err: &api.RejectedError{Path: "/api/booking", Status: 404}}
	notes := &recordingNotifier{}
	m := newMutator(cmd, notes, nil)

	out := m.Cancel(context.Background(), "Room 1", "19:00", "alice")
	require.Equal(t, Rejected, out.Kind)
	require.Equal(t, shown{notify.Error, "Cancellation failed"}, notes.last())
}

func TestBook_TimesOut(t *testing.T) {
	cmd := &fakeCommander{block: true}
	notes := &recordingNotifier{}
	m := New(Options{Commander: cmd, Notifier: notes, Timeout: 30 * time.Millisecond})

	start := time.Now()
	out := m.Book(context.Background(), "Room 1", "19:00", "alice", domain.SkillBeginner)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, Failed, out.Kind)
	require.ErrorIs(t, out.Err, api.ErrTimeout)
	require.Equal(t, shown{notify.Error, "Request timed out, please retry"}, notes.last())
}

func TestBook_NetworkFailure(t *testing.T) {
	cmd := &fakeCommander{err: &api.TransportError{Op: "execute request", Err: errors.New("connection refused")}}
	notes := &recordingNotifier{}
	m := newMutator(cmd, notes, nil)

	out := m.Book(context.Background(), "Room 1", "19:00", "alice", domain.SkillBeginner)
	require.Equal(t, Failed, out.Kind)
	require.NotErrorIs(t, out.Err, api.ErrTimeout)
	require.Equal(t, shown{notify.Error, "Network error, please retry"}, notes.last())
}

func TestClassify(t *testing.T) {
	require.Equal(t, Accepted, Classify(nil))
	require.Equal(t, Invalid, Classify(&domain.ValidationError{Fields: []string{"name"}}))
	require.Equal(t, Rejected, Classify(&api.RejectedError{Status: 409}))
	require.Equal(t, Failed, Classify(&api.TransportError{Op: "x", Err: errors.New("boom")}))
	require.Equal(t, Failed, Classify(errors.New("other")))
}

func TestToggle(t *testing.T) {
	cmd := &fakeCommander{}
	m := newMutator(cmd, nil, nil)
	ctx := context.Background()

	action, ch := m.Toggle(ctx, grid.Cell{Venue: "Room 1", Slot: "19:00", Status: grid.Available}, "alice", domain.SkillBeginner)
	require.Equal(t, grid.Book, action)
	require.Equal(t, Accepted, (<-ch).Kind)

	action, ch = m.Toggle(ctx, grid.Cell{Venue: "Room 1", Slot: "19:00", Status: grid.Mine}, "alice", domain.SkillBeginner)
	require.Equal(t, grid.Cancel, action)
	require.Equal(t, Accepted, (<-ch).Kind)

	for _, status := range []grid.Status{grid.Full, grid.Closed} {
		action, ch = m.Toggle(ctx, grid.Cell{Venue: "Room 1", Slot: "19:00", Status: status}, "alice", domain.SkillBeginner)
		require.Equal(t, grid.None, action)
		require.Nil(t, ch)
	}

	require.Len(t, cmd.bookings, 1)
	require.Len(t, cmd.cancels, 1)
}

func TestAdmin_BroadcastsOnlyAcceptedChanges(t *testing.T) {
	cmd := &fakeCommander{}
	notes := &recordingNotifier{}
	b := &fakeBroadcaster{}
	m := newMutator(cmd, notes, b)
	ctx := context.Background()

	out := m.UpdateVenue(ctx, api.VenueRequest{Name: "Court A", Capacity: 6, IsOpen: true, TimeSlots: []string{"18:00"}})
	require.Equal(t, Accepted, out.Kind)
	require.Equal(t, "Court A", cmd.venues[0].OriginalName)
	require.Equal(t, shown{notify.Success, "Venue updated"}, notes.last())

	cmd.err = &api.RejectedError{Status: 404, Reason: "Venue not found"}
	out = m.DeleteVenue(ctx, "Nowhere")
	require.Equal(t, Rejected, out.Kind)

	out = m.DeleteVenue(ctx, "")
	require.Equal(t, Invalid, out.Kind)
	require.Equal(t, []string{"Nowhere"}, cmd.deleted)

	require.Equal(t, []broadcast{{event.AdminVenueUpdated, map[string]any{"name": "Court A"}}}, b.sent)
}

func TestAdmin_BroadcastFailureKeepsOutcome(t *testing.T) {
	cmd := &fakeCommander{}
	b := &fakeBroadcaster{err: errors.New("not connected")}
	m := newMutator(cmd, nil, b)

	out := m.DeleteVenue(context.Background(), "Court A")
	require.Equal(t, Accepted, out.Kind)
	require.Len(t, b.sent, 1)
}

func TestAdmin_VenueValidation(t *testing.T) {
	cmd := &fakeCommander{}
	m := newMutator(cmd, nil, nil)

	out := m.UpdateVenue(context.Background(), api.VenueRequest{Name: "Court A", Capacity: 0, TimeSlots: []string{"18:00", "7pm"}})
	require.Equal(t, Invalid, out.Kind)
	var verr *domain.ValidationError
	require.ErrorAs(t, out.Err, &verr)
	require.Equal(t, []string{"capacity", "timeSlots[1]"}, verr.Fields)
	require.Empty(t, cmd.venues)
}
