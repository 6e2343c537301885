package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("39")  // Cyan
	ColorSecondary = lipgloss.Color("212") // Pink
	ColorSuccess   = lipgloss.Color("82")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorMuted     = lipgloss.Color("245") // Gray
	ColorHighlight = lipgloss.Color("226") // Yellow
)

var (
	// Text styles
	Bold      = lipgloss.NewStyle().Bold(true)
	Dim       = lipgloss.NewStyle().Foreground(ColorMuted)
	Highlight = lipgloss.NewStyle().Foreground(ColorHighlight)
	Header    = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	// Status styles
	Success = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning = lipgloss.NewStyle().Foreground(ColorWarning)

	// Object styles
	ClassName = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	ObjectID  = lipgloss.NewStyle().Foreground(ColorPrimary)
	PropName  = lipgloss.NewStyle().Foreground(ColorMuted)

	// Search result styles
	ResultHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)
	ResultScore = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// Section styles
	SectionTitle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true).
			MarginTop(1)
	Divider = lipgloss.NewStyle().
		Foreground(ColorMuted)
)

// HorizontalRule returns a styled horizontal divider.
func HorizontalRule(width int) string {
	if width < 0 {
		width = 0
	}
	return Divider.Render(strings.Repeat("─", width))
}

// FormatObjectRef formats a class/id pair.
func FormatObjectRef(class, id string) string {
	return ClassName.Render(class) + Dim.Render("/") + ObjectID.Render(id)
}

// FormatCertainty formats a similarity certainty as a percentage.
func FormatCertainty(certainty float64) string {
	return ResultScore.Render(fmt.Sprintf("(%.1f%% certainty)", certainty*100))
}

// FormatValue renders a property value on one line.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return Dim.Render("null")
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}
