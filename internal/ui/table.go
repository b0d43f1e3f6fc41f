package ui

import (
	"strings"
)

// Column defines a table column.
type Column struct {
	Title string
	Width int
}

// Table renders rows of plain cells under styled headers.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// NewTable creates a table with the given columns.
func NewTable(cols ...Column) *Table {
	return &Table{Columns: cols}
}

// AddRow appends a row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render returns the table as a string. Cells wider than their column are
// cut with an ellipsis.
func (t *Table) Render() string {
	var sb strings.Builder

	line := func(cells []string, style func(...string) string) {
		parts := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			val := ""
			if j < len(cells) {
				val = fit(cells[j], col.Width)
			}
			parts[j] = padR(style(val), col.Width)
		}
		sb.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		sb.WriteString("\n")
	}

	titles := make([]string, len(t.Columns))
	rule := make([]string, len(t.Columns))
	for j, col := range t.Columns {
		titles[j] = col.Title
		rule[j] = strings.Repeat("─", col.Width)
	}
	line(titles, StyleHeader.Render)
	line(rule, StyleMeta.Render)
	for _, row := range t.Rows {
		line(row, StyleValue.Render)
	}
	return sb.String()
}

func fit(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// KeyValueBlock renders key/value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	keyWidth := 0
	for _, p := range pairs {
		keyWidth = max(keyWidth, len(p[0])+1)
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for i, p := range pairs {
		sb.WriteString(padR(StyleMeta.Render(p[0]+":"), keyWidth) + "  " + p[1])
		if i < len(pairs)-1 {
			sb.WriteString("\n")
		}
	}
	return StyleBorder.Render(sb.String())
}
