// Package logtail reads the end of the courtside log file for the in-app
// log view.
//
// Read keeps a ring buffer of maxLines, so memory stays bounded however
// large the file grows, and returns lines oldest first. Each line is split
// by Parse into the leading time, level and msg fields that slog's text
// handler always writes; anything else is kept whole in Attrs. Lines that
// do not start with those fields (a panic trace, a hand edit) are returned
// with only Raw set so the view can still show them.
//
//	entries, err := logtail.Read(cfg.LogFile, 200)
package logtail
