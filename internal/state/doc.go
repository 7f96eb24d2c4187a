// Package state holds courtside's local mirror of the booking server.
//
// # Overview
//
// The Store keeps five mirrors: venues, time slots, bookings, messages and
// users. It is the coordination point between the session consumer (the only
// writer) and the UI and grid builders (readers).
//
// # Writers
//
// Only two operations mutate the mirrors:
//
//   - ReplaceAll: installs a full snapshot fetched from the REST API after
//     (re)connecting. The previous contents are discarded, never merged.
//   - Apply: reconciles one confirmed push event (booking_update,
//     venue_update, message_update, user_update).
//
// Commands issued by this client never write here. The server's broadcast of
// the outcome arrives through Apply like any other client's change.
//
// # Merge Rules
//
// Every rule is idempotent, so a replayed or duplicated event is harmless:
//
//	new_booking     append unless the user already holds the cell
//	cancel_booking  drop every entry of that user in the cell
//	new_venue       append unless the name exists
//	update_venue    replace capacity/open flag; unknown names are ignored
//	delete_venue    remove the venue and its bookings
//	new_message     prepend unless the id exists
//	delete_message  remove by id ("7" and 7 are the same id)
//	new_user        append unless the username exists
//	update_user     replace skill level/admin flag
//	delete_user     remove the user and their bookings
//
// # Referential Consistency
//
// Push events carry no cross-kind ordering, so a booking for a venue can
// arrive after that venue was deleted. BookingsAt, HasBooking and
// TotalBookings skip bookings whose venue is not mirrored, whether or not
// the write-time cascade ran.
//
// # Concurrency
//
// The Store uses a readers-writer lock. Snapshot returns deep copies so the
// UI can hold one while the consumer keeps applying events.
package state
