package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table prints aligned columns with a highlighted header row and a rule
// under it. Column widths follow the widest cell.
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given header row.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{w: w, headers: headers}
}

// NoColor disables ANSI styling and returns the table for chaining.
func (t *Table) NoColor() *Table {
	t.noColor = true
	return t
}

// AddRow appends a data row. Rows shorter than the header leave trailing
// columns empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	header := color.New(color.Bold, color.FgCyan)
	rule := color.New(color.FgHiBlack)
	if t.noColor {
		header.DisableColor()
		rule.DisableColor()
	}

	for i, h := range t.headers {
		if i > 0 {
			fmt.Fprint(t.w, "  ")
		}
		header.Fprintf(t.w, "%-*s", widths[i], h)
	}
	fmt.Fprintln(t.w)

	for i, width := range widths {
		if i > 0 {
			rule.Fprint(t.w, "  ")
		}
		rule.Fprint(t.w, strings.Repeat("─", width))
	}
	fmt.Fprintln(t.w)

	for _, row := range t.rows {
		for i := range t.headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i > 0 {
				fmt.Fprint(t.w, "  ")
			}
			fmt.Fprintf(t.w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(t.w)
	}
}
