// Package session keeps the local mirror in sync with the server.
//
// # Overview
//
// A Manager owns the push connection. It dials, loads a snapshot, forwards
// push events to the Store one at a time and reconnects with exponential
// backoff when the connection drops:
//
//	Disconnected ──dial──> Connecting ──ok──> Connected
//	      ^                    │                  │
//	      └──── backoff <──────┘ <──── drop ──────┘
//
// There is no terminal state; Run returns only when its context ends.
//
// # Generations
//
// Each successful connect increments a generation. The snapshot load
// started for a connection carries its generation, and a result that comes
// back after a newer connection exists (or after its own connection
// dropped) is discarded without being shown to the user.
//
// # Single Writer
//
// One consumer goroutine drains an ordered inbox of connection markers,
// events and snapshot results, and is the only code that writes the Store.
// Events received while the connection's snapshot is still loading are
// applied at once and replayed over the snapshot when it is installed; the
// merge rules are idempotent, so replaying is safe.
//
// # Presence and Activity
//
// connected_users sets the presence count. user_activity sets it from
// totalUsers when present and otherwise adjusts it by one. Presence resets
// to zero on every connect until the server reports it again. Join, leave
// and admin activity by other users become notifications.
//
// # Identity
//
// Login registers the identity over REST and announces it with user_login.
// The identity is announced again after every reconnect.
package session
