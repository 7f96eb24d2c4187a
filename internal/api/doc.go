// Package api provides an HTTP client for the booking service's REST API.
//
// # Overview
//
// The client covers two groups of endpoints. Reads fetch the five
// collections a snapshot is built from:
//
//   - GET /api/venues
//   - GET /api/time-slots
//   - GET /api/bookings (flat rows, grouped by GroupBookings)
//   - GET /api/messages
//   - GET /api/users
//
// Writes carry booking, cancellation, login and admin commands. A successful
// write returns nothing: the server announces the resulting change to every
// connected client, the requester included, over the push channel. Callers
// must not edit local state on success.
//
// # Client Usage
//
//	client, err := api.NewClient("127.0.0.1:3001")
//	if err != nil {
//		return err
//	}
//	err = client.CreateBooking(ctx, api.BookingRequest{
//		VenueName:  "Room 1",
//		TimeSlot:   "19:00",
//		Username:   "alice",
//		SkillLevel: domain.SkillIntermediate,
//	})
//
// # Error Handling
//
// Errors fall into two classes:
//
//   - *RejectedError: any 4xx. Reason carries the server's {"error": "..."}
//     text. Matches ErrRejected.
//   - *TransportError: connection failures, 5xx answers and undecodable
//     bodies. Matches ErrTimeout when a deadline expired.
//
// Example error messages:
//   - "Time slot is full"
//   - "POST /api/booking: execute request: dial tcp: connection refused"
//   - "GET /api/venues: api /api/venues returned status 500"
//
// # Request Handling
//
// All requests carry Accept: application/json, User-Agent: courtside/0.1 and
// an X-Client-ID header that is stable for the lifetime of the Client. The
// http.Client timeout is a backstop; callers bound commands with their own
// context deadline.
//
// # Thread Safety
//
// The Client is safe for concurrent use.
package api
