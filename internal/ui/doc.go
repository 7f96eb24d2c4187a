// Package ui provides the courtside terminal interface.
//
// # Architecture
//
// The UI is a Bubble Tea program. Model reads the live session through the
// Source interface and never writes the Store: booking commands go to a
// Booker, and the grid changes only when the server's push events reach the
// mirror. A changedMsg is delivered whenever the session signals a change;
// a one-second tick redraws the clock and the notification banner.
//
// # Views
//
//   - Grid: time slots down, venues across, cursor cell highlighted
//   - Messages: the notice board
//   - Log: the tail of the client's own log file, refreshed on each tick
//
// # Key Bindings
//
//	enter     book or cancel the cursor cell
//	s         cycle skill level (saved to prefs)
//	u         filter to the next upcoming slot
//	v         cycle the venue filter
//	c         clear filters
//	[ ]       virtual clock -15 / +15 minutes
//	- +       virtual clock -5 / +5 minutes
//	0         back to real time
//	m         message board
//	L         client log
//	O         log out
//	T         cycle theme (saved to prefs)
//	?         help
//	q         quit
//
// # Header
//
// The header shows the connection state, the logged-in user, the presence
// count, the skill level, the mirrored booking total and the adjusted time
// with its offset. The line below shows the current notification, or the
// active filters when there is none.
package ui
