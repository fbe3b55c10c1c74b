package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Stars renders a rating as a five-star bar followed by the numeric value,
// e.g. "★★★★½ 4.5". Renders in the hub's star color.
func Stars(rating float64) string {
	full := int(rating)
	half := rating-float64(full) >= 0.5
	empty := 5 - full
	if half {
		empty--
	}

	bar := strings.Repeat("★", full)
	if half {
		bar += "½"
	}
	bar += strings.Repeat("☆", empty)

	style := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	return style.Render(fmt.Sprintf("%s %.1f", bar, rating))
}

// FormatPlays renders a play count compactly: 1234567 -> "1.2M",
// 5400 -> "5.4K".
func FormatPlays(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// Highlight renders text in the hub accent color.
func Highlight(text string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	return style.Render(text)
}

// Faint renders secondary text.
func Faint(text string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	return style.Render(text)
}
