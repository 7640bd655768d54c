package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pgasync"
	"pgasync/protocol"
)

var (
	colorHeader = lipgloss.Color("#0EA5E9")
	colorNull   = lipgloss.Color("#64748B")
	colorBorder = lipgloss.Color("#334155")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)
	nullStyle   = lipgloss.NewStyle().Italic(true).Foreground(colorNull)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderResult formats a Result as a bordered table, reading every cell
// through Result.Value rather than assuming any particular column type —
// this client never decodes the wire's binary format, so every value is
// already the backend's text representation.
func renderResult(result *pgasync.Result) string {
	fields := result.Fields()
	if len(fields) == 0 {
		return lipgloss.NewStyle().Foreground(colorNull).Render("(no columns)")
	}

	widths := make([]int, len(fields))
	for i, f := range fields {
		widths[i] = len(f.Name)
	}

	rows := make([][]string, result.RowCount())
	for r := 0; r < result.RowCount(); r++ {
		row := make([]string, len(fields))
		for c := range fields {
			text, null, err := result.Value(r, c)
			switch {
			case err != nil:
				row[c] = "?"
			case null:
				row[c] = "NULL"
			default:
				row[c] = string(text)
			}
			if w := len(row[c]); w > widths[c] {
				widths[c] = w
			}
		}
		rows[r] = row
	}

	var b strings.Builder
	b.WriteString(renderRow(headerNames(fields), widths, headerStyle))
	b.WriteString("\n")
	b.WriteString(separator(widths))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(renderDataRow(row, widths))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(colorNull).Render(strconv.Itoa(len(rows)) + " row(s)"))

	return b.String()
}

func headerNames(fields []protocol.FieldDescription) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = cellStyle.Width(widths[i] + 2).Render(style.Render(c))
	}
	return strings.Join(parts, lipgloss.NewStyle().Foreground(colorBorder).Render("|"))
}

func renderDataRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		style := cellStyle
		if c == "NULL" {
			parts[i] = style.Width(widths[i] + 2).Render(nullStyle.Render(c))
			continue
		}
		parts[i] = style.Width(widths[i] + 2).Render(c)
	}
	return strings.Join(parts, lipgloss.NewStyle().Foreground(colorBorder).Render("|"))
}

func separator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return lipgloss.NewStyle().Foreground(colorBorder).Render(strings.Join(parts, "+"))
}
