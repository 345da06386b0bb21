package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var inputFrameStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// renderHeader styles a view title with an optional muted subtitle line,
// both cut to width.
func renderHeader(title, subtitle string, width int) string {
	rows := []string{HeaderStyle.Render(truncateEnd(title, width-2))}
	if subtitle != "" {
		rows = append(rows, renderMuted(truncateEnd(subtitle, width-2)))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderInputFrame boxes an input view. The border lights up while focused.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	border := MutedColor
	if focused {
		border = AccentColor
	}
	return inputFrameStyle.
		BorderForeground(border).
		Width(contentWidth + 4).
		Render(inputView)
}

func renderCentered(width, height int, content string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// renderPlaceholder fills a view body with a centered loading line.
func renderPlaceholder(width, height int, text string) string {
	return renderCentered(width, height, renderMuted(text))
}

// renderFailure fills a view body with a centered store error.
func renderFailure(width, height int, err error) string {
	return renderCentered(width, height, ErrorMessageStyle.Render(errorText(err)))
}

// renderTabs renders labels on one line, highlighting the one at active.
func renderTabs(labels []string, active int) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		style := InactiveTabStyle
		if i == active {
			style = ActiveTabStyle
		}
		parts[i] = style.Render(l)
	}
	return strings.Join(parts, "   ")
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}
