package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Entry is one line of the client log split into the fields the text
// handler writes first. Lines that do not parse keep only Raw.
type Entry struct {
	Time  string
	Level string
	Msg   string
	Attrs string
	Raw   string
}

// Read returns at most maxLines entries from the end of the file at path.
// A missing file yields no entries.
func Read(path string, maxLines int) ([]Entry, error) {
	lines, err := tail(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = Parse(line)
	}
	return entries, nil
}

func tail(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Parse splits a line written by slog's text handler:
//
//	time=2026-10-17T18:50:00.000Z level=INFO msg="command accepted" op=book
func Parse(line string) Entry {
	e := Entry{Raw: line}
	rest := line
	var ok bool
	if e.Time, rest, ok = field(rest, "time"); !ok {
		return Entry{Raw: line}
	}
	if e.Level, rest, ok = field(rest, "level"); !ok {
		return Entry{Raw: line}
	}
	if e.Msg, rest, ok = field(rest, "msg"); !ok {
		return Entry{Raw: line}
	}
	e.Attrs = strings.TrimSpace(rest)
	return e
}

// field reads key=value from the front of s. Quoted values are unquoted.
func field(s, key string) (value, rest string, ok bool) {
	s = strings.TrimLeft(s, " ")
	s, ok = strings.CutPrefix(s, key+"=")
	if !ok {
		return "", s, false
	}
	if strings.HasPrefix(s, `"`) {
		quoted, err := strconv.QuotedPrefix(s)
		if err != nil {
			return "", s, false
		}
		value, err = strconv.Unquote(quoted)
		if err != nil {
			return "", s, false
		}
		return value, s[len(quoted):], true
	}
	value, rest, _ = strings.Cut(s, " ")
	return value, rest, true
}
