package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled line of a modal body.
type Field struct {
	Label string
	Value string
}

// FieldStyles groups styles for labelled modal bodies.
type FieldStyles struct {
	LabelStyle lipgloss.Style
	ValueStyle lipgloss.Style
}

// RenderFields renders fields as aligned "label  value" lines. Fields with
// an empty value are skipped.
func RenderFields(fields []Field, styles FieldStyles) string {
	labelW := 0
	for _, f := range fields {
		if f.Value != "" {
			labelW = max(labelW, lipgloss.Width(f.Label))
		}
	}

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		label := f.Label + strings.Repeat(" ", labelW-lipgloss.Width(f.Label)+2)
		lines = append(lines, styles.LabelStyle.Render(label)+styles.ValueStyle.Render(f.Value))
	}
	return strings.Join(lines, "\n")
}

// KeyHelp is one row of the help modal.
type KeyHelp struct {
	Keys string
	Desc string
}

// RenderKeyHelp renders key bindings as a two-column list.
func RenderKeyHelp(rows []KeyHelp, styles FieldStyles) string {
	fields := make([]Field, len(rows))
	for i, r := range rows {
		fields[i] = Field{Label: r.Keys, Value: r.Desc}
	}
	return RenderFields(fields, styles)
}
