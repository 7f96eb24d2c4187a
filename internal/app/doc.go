// Package app is the composition root for courtside.
//
// Run loads configuration and preferences, builds the REST client, and
// starts one of two modes:
//
//   - the TUI: a session.Manager owns the push channel and the local
//     mirror, a command.Mutator sends bookings, and ui.Run renders both
//     until the user quits;
//   - --once: a single REST snapshot rendered as a text table.
//
// RunAdmin performs one admin mutation from the command line. It connects
// the push channel when it can so the change is announced to other clients,
// but the REST call goes ahead either way.
//
// # Logging
//
// The TUI owns the terminal, so slog writes to the configured log file
// (default ~/.local/state/courtside/courtside.log). The one-shot modes log
// to stderr.
//
// # Errors
//
// Configuration and client setup failures are returned from Run. Connection
// loss after startup is not: the session reconnects with backoff and the
// header shows the link state.
package app
