package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// sqliteTimestampLayout is what the server's database emits for created_at.
const sqliteTimestampLayout = "2006-01-02 15:04:05"

// UnmarshalJSON decodes the message shape shared by /api/messages and the
// message_update push event.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        MessageID `json:"id"`
		Author    string    `json:"author"`
		Text      string    `json:"text"`
		CreatedAt string    `json:"created_at"`
		Created   string    `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	created := raw.CreatedAt
	if created == "" {
		created = raw.Created
	}
	*m = Message{
		ID:        raw.ID,
		Author:    raw.Author,
		Text:      raw.Text,
		CreatedAt: ParseTime(created),
	}
	return nil
}

// ParseTime accepts RFC3339 and the server's database layout. Invalid or
// empty values yield the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(sqliteTimestampLayout, value, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

// MarshalJSON emits the same shape UnmarshalJSON reads, with created_at in
// the database layout.
func (m Message) MarshalJSON() ([]byte, error) {
	out := struct {
		ID        MessageID `json:"id"`
		Author    string    `json:"author"`
		Text      string    `json:"text"`
		CreatedAt string    `json:"created_at,omitempty"`
	}{ID: m.ID, Author: m.Author, Text: m.Text}
	if !m.CreatedAt.IsZero() {
		out.CreatedAt = m.CreatedAt.UTC().Format(sqliteTimestampLayout)
	}
	return json.Marshal(out)
}
