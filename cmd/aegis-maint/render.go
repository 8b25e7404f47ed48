package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/yusufserdarr/predictiveMaintenance/internal/app/analyze"
	"github.com/yusufserdarr/predictiveMaintenance/internal/decision"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#366092"))

func colorEnabled() bool { return os.Getenv("NO_COLOR") == "" }

func title(s string) string {
	if !colorEnabled() {
		return s
	}
	return titleStyle.Render(s)
}

// statusPainter colors text with the decision table color of status.
func statusPainter() analyze.Painter {
	if !colorEnabled() {
		return func(_ domain.Status, text string) string { return text }
	}
	styles := make(map[domain.Status]lipgloss.Style, len(domain.Statuses))
	for status, entry := range decision.Table() {
		styles[status] = lipgloss.NewStyle().
			Foreground(lipgloss.Color(entry.Color)).
			Bold(status == domain.StatusCritical)
	}
	return func(status domain.Status, text string) string {
		style, ok := styles[status]
		if !ok {
			return text
		}
		return style.Render(text)
	}
}
