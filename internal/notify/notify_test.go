package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/courtside/internal/clock"
)

func newTestDispatcher() (*Dispatcher, *clock.FakeClock) {
	c := clock.Fake(time.Date(2026, 10, 17, 19, 0, 0, 0, time.UTC))
	return NewDispatcher(c, 3*time.Second), c
}

func TestDispatcher_AutoDismissAfterDuration(t *testing.T) {
	d, c := newTestDispatcher()

	d.Show(Success, "Booked Room 1 at 19:00")
	got, ok := d.Current()
	require.True(t, ok)
	require.Equal(t, "Booked Room 1 at 19:00", got.Text)
	require.Equal(t, Success, got.Kind)

	c.Advance(2999 * time.Millisecond)
	_, ok = d.Current()
	require.True(t, ok)

	c.Advance(time.Millisecond)
	_, ok = d.Current()
	require.False(t, ok)
}

func TestDispatcher_ReplacementResetsTimer(t *testing.T) {
	d, c := newTestDispatcher()

	d.Show(Info, "A")
	c.Advance(2 * time.Second)
	d.Show(Error, "B")

	// A's deadline passes; B must survive it.
	c.Advance(1500 * time.Millisecond)
	got, ok := d.Current()
	require.True(t, ok)
	require.Equal(t, "B", got.Text)
	require.Equal(t, Error, got.Kind)

	// B gets its own full duration.
	c.Advance(1500 * time.Millisecond)
	_, ok = d.Current()
	require.False(t, ok)
	require.Equal(t, 0, c.PendingCount())
}

func TestDispatcher_ImmediateReplacementLeavesOnlyLatest(t *testing.T) {
	d, c := newTestDispatcher()

	d.Show(Info, "A")
	d.Show(Info, "B")
	require.Equal(t, 1, c.PendingCount())

	got, ok := d.Current()
	require.True(t, ok)
	require.Equal(t, "B", got.Text)
}

func TestDispatcher_Dismiss(t *testing.T) {
	d, c := newTestDispatcher()

	d.Show(Info, "A")
	d.Dismiss()
	_, ok := d.Current()
	require.False(t, ok)
	require.Equal(t, 0, c.PendingCount())

	// Dismissing an empty slot is a no-op.
	d.Dismiss()
}
