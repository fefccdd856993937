// Package cli provides the terminal look shared by the chaos subcommands.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color // accent color for labels and headings
	Dim     lipgloss.Color // help and secondary text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Label lipgloss.Style
	Help  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// NumberedList renders items as an indexed list, marking one index. A
// negative mark leaves every row unmarked.
func (s Styles) NumberedList(items []string, mark int) string {
	var b strings.Builder
	for i, item := range items {
		marker := " "
		if i == mark {
			marker = "*"
		}
		fmt.Fprintf(&b, "  %s %2d  %s\n", marker, i, item)
	}
	return b.String()
}
