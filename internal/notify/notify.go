// Package notify shows one short-lived status line at a time.
package notify

import (
	"sync"
	"time"

	"github.com/five82/courtside/internal/clock"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 3 * time.Second

// Kind selects the styling of a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// Notification is the currently visible message.
type Notification struct {
	Kind    Kind
	Text    string
	ShownAt time.Time
	seq     uint64
}

// Notifier is what producers of notifications depend on.
type Notifier interface {
	Show(kind Kind, text string)
}

// Dispatcher keeps a single slot. Show replaces whatever is visible and
// restarts the dismissal timer; nothing is queued.
type Dispatcher struct {
	clock    clock.Clock
	duration time.Duration

	mu      sync.Mutex
	current *Notification
	timer   *clock.Timer
	seq     uint64
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher builds a Dispatcher. Zero duration uses DefaultDuration.
func NewDispatcher(c clock.Clock, duration time.Duration) *Dispatcher {
	if c == nil {
		c = clock.Real()
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Dispatcher{clock: c, duration: duration}
}

// Show displays text, replacing any visible notification.
func (d *Dispatcher) Show(kind Kind, text string) {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.current = &Notification{Kind: kind, Text: text, ShownAt: d.clock.Now(), seq: seq}
	old := d.timer
	d.timer = nil
	d.mu.Unlock()

	old.Stop()
	timer := d.clock.AfterFunc(d.duration, func() { d.dismiss(seq) })

	d.mu.Lock()
	if d.seq == seq {
		d.timer = timer
	}
	d.mu.Unlock()
}

// Current returns the visible notification, if any.
func (d *Dispatcher) Current() (Notification, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return Notification{}, false
	}
	return *d.current, true
}

// Dismiss hides the visible notification immediately.
func (d *Dispatcher) Dismiss() {
	d.mu.Lock()
	seq := d.seq
	d.mu.Unlock()
	d.dismiss(seq)
}

// dismiss clears the slot only if it still shows notification seq, so a
// timer that fires late can never hide a newer message.
func (d *Dispatcher) dismiss(seq uint64) {
	d.mu.Lock()
	if d.current == nil || d.current.seq != seq {
		d.mu.Unlock()
		return
	}
	d.current = nil
	timer := d.timer
	d.timer = nil
	d.mu.Unlock()

	timer.Stop()
}
