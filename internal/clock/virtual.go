package clock

import (
	"sync"
	"time"
)

// Virtual shifts a base clock by a per-session offset in minutes. Slot
// comparisons read "now" from here so that an operator can preview the grid
// at another time of day. The offset never leaves the process.
type Virtual struct {
	base Clock

	mu     sync.RWMutex
	offset int
}

// NewVirtual wraps base with a zero offset.
func NewVirtual(base Clock) *Virtual {
	if base == nil {
		base = Real()
	}
	return &Virtual{base: base}
}

// Adjust adds delta minutes (negative moves back) and returns the new offset.
func (v *Virtual) Adjust(delta int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset += delta
	return v.offset
}

// Reset returns to the unadjusted base time.
func (v *Virtual) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = 0
}

// OffsetMinutes returns the current offset.
func (v *Virtual) OffsetMinutes() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.offset
}

// Now returns the adjusted time.
func (v *Virtual) Now() time.Time {
	return v.base.Now().Add(time.Duration(v.OffsetMinutes()) * time.Minute)
}

// MinutesOfDay returns the adjusted wall-clock minutes since midnight, the
// unit time slots are compared in.
func (v *Virtual) MinutesOfDay() int {
	now := v.Now()
	return now.Hour()*60 + now.Minute()
}
