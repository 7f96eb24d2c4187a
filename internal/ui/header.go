package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/courtside/internal/session"
)

// renderHeader renders the status bar: connection, identity, presence,
// skill level and the adjusted time.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	sep := styles.Surface.Render("  ")

	parts := []string{styles.Logo.Render("courtside")}

	status := session.Disconnected
	presence := 0
	username, admin := "", false
	if m.source != nil {
		status = m.source.Status()
		presence = m.source.Presence()
		s := m.source.Session()
		username, admin = s.Username, s.IsAdmin
	}

	switch status {
	case session.Connected:
		parts = append(parts, styles.SuccessText.Render("● online"))
	case session.Connecting:
		parts = append(parts, styles.WarningText.Bold(true).Render("● connecting"))
	default:
		parts = append(parts, styles.DangerText.Render("● offline"))
	}

	if username == "" {
		parts = append(parts, styles.MutedText.Render("not logged in"))
	} else {
		who := styles.Text.Render(username)
		if admin {
			who += styles.AccentText.Render(" (admin)")
		}
		parts = append(parts, who)
	}

	parts = append(parts,
		styles.MutedText.Render("Users:")+styles.Surface.Render(" ")+styles.Text.Render(fmt.Sprintf("%d", presence)),
		styles.MutedText.Render("Skill:")+styles.Surface.Render(" ")+styles.Text.Render(string(m.prefs.SkillLevel)),
		styles.MutedText.Render("Bookings:")+styles.Surface.Render(" ")+styles.Text.Render(fmt.Sprintf("%d", m.snapshot.TotalBookings())),
	)

	clockText := styles.Text.Render(m.clock.Now().Format("15:04"))
	if off := formatOffset(m.clock.OffsetMinutes()); off != "" {
		clockText += styles.Surface.Render(" ") + styles.WarningText.Render(off)
	}
	parts = append(parts, clockText)

	if m.pending > 0 {
		parts = append(parts, styles.InfoText.Render(fmt.Sprintf("sending %d", m.pending)))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

// renderBanner renders the current notification, or the active filters when
// nothing is showing.
func (m Model) renderBanner() string {
	styles := m.theme.Styles()
	if m.notices != nil {
		if n, ok := m.notices.Current(); ok {
			return styles.NoticeStyle(n.Kind).Render(truncate(n.Text, max(m.width-2, 10)))
		}
	}

	var filters []string
	if m.filter.Venue != "" {
		filters = append(filters, "venue="+m.filter.Venue)
	}
	if m.filter.Slot != "" {
		filters = append(filters, "time="+m.filter.Slot)
	}
	if len(filters) == 0 {
		return styles.FaintText.Render(" ")
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(styles.MutedText.Render("Filter: " + strings.Join(filters, " ")))
}
