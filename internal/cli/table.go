package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// column alignment for renderTable.
const (
	alignLeft  = "left"
	alignRight = "right"
)

// renderTable prints a plain-text table with a bold header row. aligns is
// optional; missing entries default to left.
func renderTable(w io.Writer, headers []string, rows [][]string, aligns ...string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	pad := func(text string, col int) string {
		gap := widths[col] - lipgloss.Width(text)
		if gap <= 0 {
			return text
		}
		if col < len(aligns) && aligns[col] == alignRight {
			return strings.Repeat(" ", gap) + text
		}
		return text + strings.Repeat(" ", gap)
	}

	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = Header(pad(h, i))
	}
	_, _ = fmt.Fprintln(w, strings.Join(headerCells, "  "))

	separators := make([]string, len(headers))
	for i := range headers {
		separators[i] = Silent(strings.Repeat("-", widths[i]))
	}
	_, _ = fmt.Fprintln(w, strings.Join(separators, "  "))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, i)
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "  "))
	}
}
