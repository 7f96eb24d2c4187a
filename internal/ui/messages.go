package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderMessages draws the notice board in mirror order.
func (m Model) renderMessages() string {
	styles := m.theme.Styles()
	if len(m.snapshot.Messages) == 0 {
		return styles.MutedText.Render("No messages.")
	}

	limit := len(m.snapshot.Messages)
	if m.height > 6 {
		limit = min(limit, (m.height-6)/2)
	}

	textWidth := max(m.width-4, 20)
	var b strings.Builder
	for _, msg := range m.snapshot.Messages[:limit] {
		meta := styles.AccentText.Render(msg.Author)
		if !msg.CreatedAt.IsZero() {
			meta += " " + styles.FaintText.Render(msg.CreatedAt.Local().Format("Jan 2 15:04"))
		}
		meta += " " + styles.FaintText.Render("#"+msg.ID.String())
		b.WriteString(meta)
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Width(textWidth).Render(styles.Text.Render(msg.Text)))
		b.WriteString("\n")
	}
	if hidden := len(m.snapshot.Messages) - limit; hidden > 0 {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("  …%d more", hidden)))
		b.WriteString("\n")
	}
	return b.String()
}
