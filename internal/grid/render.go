package grid

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Label renders a cell as text: "closed", or "n/capacity" followed by the
// booked users' initials. Your own booking is starred.
func (c Cell) Label() string {
	if c.Status == Closed {
		return "closed"
	}
	label := fmt.Sprintf("%d/%d", c.Count(), c.Capacity)
	if initials := c.Initials(); len(initials) > 0 {
		label += " " + strings.Join(initials, " ")
	}
	if c.Status == Mine {
		label += " *"
	}
	return label
}

// Render writes the grid as a plain table, one row per slot. Past slots are
// marked with a trailing "-".
func Render(w io.Writer, g Grid) {
	table := tablewriter.NewWriter(w)
	header := make([]string, 0, len(g.Venues)+1)
	header = append(header, "Time")
	for _, v := range g.Venues {
		header = append(header, v.Name)
	}
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for i, slot := range g.Slots {
		row := make([]string, 0, len(g.Venues)+1)
		label := slot
		if len(g.Rows[i]) > 0 && g.Rows[i][0].Past {
			label += " -"
		}
		row = append(row, label)
		for _, cell := range g.Rows[i] {
			row = append(row, cell.Label())
		}
		table.Append(row)
	}
	table.Render()
	_, _ = fmt.Fprintf(w, "%d bookings\n", g.Total)
}
