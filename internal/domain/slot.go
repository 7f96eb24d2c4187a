package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SlotMinutes converts an "HH:MM" label into minutes since midnight.
func SlotMinutes(slot string) (int, error) {
	hours, minutes, ok := strings.Cut(strings.TrimSpace(slot), ":")
	if !ok {
		return 0, fmt.Errorf("time slot %q: want HH:MM", slot)
	}
	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time slot %q: invalid hour", slot)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time slot %q: invalid minute", slot)
	}
	return h*60 + m, nil
}

// FormatSlot renders minutes since midnight as "HH:MM".
func FormatSlot(minutes int) string {
	minutes = ((minutes % (24 * 60)) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
