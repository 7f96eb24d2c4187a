package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/five82/courtside/internal/domain"
	"github.com/five82/courtside/internal/grid"
)

const (
	timeColumnWidth = 8
	minCellWidth    = 12
)

// renderGrid draws the booking grid: one row per time slot, one column per
// venue. The cursor cell is highlighted.
func (m Model) renderGrid() string {
	styles := m.theme.Styles()
	g := m.grid()
	if len(g.Venues) == 0 || len(g.Slots) == 0 {
		return styles.MutedText.Render("No venues or time slots yet.")
	}

	row, col := clamp(m.row, len(g.Slots)), clamp(m.col, len(g.Venues))
	width := cellWidth(g, m.width)

	var b strings.Builder
	b.WriteString(padRight("", timeColumnWidth))
	for _, v := range g.Venues {
		name := truncate(v.Name, width-1)
		b.WriteString(styles.AccentText.Bold(true).Render(padRight(name, width)))
	}
	b.WriteString("\n")

	for i, slot := range g.Slots {
		label := padRight(slot, timeColumnWidth)
		if len(g.Rows[i]) > 0 && g.Rows[i][0].Past {
			b.WriteString(styles.FaintText.Render(label))
		} else {
			b.WriteString(styles.Text.Render(label))
		}
		for j, cell := range g.Rows[i] {
			text := padRight(truncate(cell.Label(), width-1), width)
			style := styles.CellStyle(cell.Status, cell.Past)
			if i == row && j == col {
				style = styles.Selected
			}
			b.WriteString(style.Render(text))
		}
		b.WriteString("\n")
	}

	if cell, ok := g.Cell(row, col); ok {
		b.WriteString("\n")
		b.WriteString(m.renderCellDetail(cell))
	}
	return b.String()
}

// renderCellDetail lists who is booked in the cursor cell.
func (m Model) renderCellDetail(c grid.Cell) string {
	styles := m.theme.Styles()
	title := styles.Text.Bold(true).Render(c.Venue + " " + c.Slot)
	status := styles.CellStyle(c.Status, false).Render(c.Status.String())
	lines := []string{title + "  " + status}
	if len(c.Bookings) == 0 {
		lines = append(lines, styles.MutedText.Render("nobody booked"))
	}
	for _, bk := range c.Bookings {
		lines = append(lines, styles.Text.Render(bk.Username)+" "+styles.MutedText.Render(string(bk.SkillLevel)))
	}
	return styles.Border.Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// cellWidth splits the terminal width between venue columns.
func cellWidth(g grid.Grid, total int) int {
	if len(g.Venues) == 0 {
		return minCellWidth
	}
	widest := lo.Max(lo.Map(g.Venues, func(v domain.Venue, _ int) int { return lipgloss.Width(v.Name) + 2 }))
	w := (total - timeColumnWidth) / len(g.Venues)
	return max(minCellWidth, min(w, max(widest, minCellWidth+6)))
}
