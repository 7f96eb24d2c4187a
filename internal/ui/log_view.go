package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderLog shows the tail of the client log, newest at the bottom.
func (m Model) renderLog() string {
	styles := m.theme.Styles()
	if m.logPath == "" {
		return styles.MutedText.Render("Logging to stderr.")
	}
	if len(m.logs) == 0 {
		return styles.MutedText.Render("Log is empty.")
	}

	entries := m.logs
	if rows := m.height - 6; rows > 0 && len(entries) > rows {
		entries = entries[len(entries)-rows:]
	}

	width := max(m.width-2, 20)
	clip := lipgloss.NewStyle().MaxWidth(width)
	var b strings.Builder
	for _, e := range entries {
		if e.Level == "" {
			b.WriteString(styles.Text.Render(truncate(e.Raw, width)))
			b.WriteString("\n")
			continue
		}
		stamp := e.Time
		if i := strings.IndexByte(stamp, 'T'); i >= 0 && len(stamp) >= i+9 {
			stamp = stamp[i+1 : i+9]
		}
		line := styles.FaintText.Render(stamp) + " " +
			levelStyle(styles, e.Level).Render(padRight(e.Level, 5)) + " " +
			styles.Text.Render(e.Msg)
		if e.Attrs != "" {
			line += " " + styles.MutedText.Render(e.Attrs)
		}
		b.WriteString(clip.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func levelStyle(s Styles, level string) lipgloss.Style {
	switch level {
	case "ERROR":
		return s.DangerText.Bold(true)
	case "WARN":
		return s.WarningText.Bold(true)
	case "DEBUG":
		return s.FaintText
	default:
		return s.InfoText
	}
}
