package presenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("63")  // Indigo
	colorSubtle  = lipgloss.Color("241") // Gray
	colorLive    = lipgloss.Color("42")  // Green
	colorMock    = lipgloss.Color("214") // Orange
	colorUp      = lipgloss.Color("42")
	colorDown    = lipgloss.Color("160")

	styleTitle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleSection = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Underline(true)
	styleSubtle  = lipgloss.NewStyle().Foreground(colorSubtle)
	styleWarning = lipgloss.NewStyle().Foreground(colorMock).Bold(true)

	styleCard = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(0, 1).
			Width(22)
)

// RenderTerminal formats a Report for the terminal.
func RenderTerminal(r *Report) string {
	var sb strings.Builder

	if !r.Structured {
		if r.Warning != "" {
			sb.WriteString(styleWarning.Render("! " + r.Warning))
			sb.WriteString("\n\n")
		}
		sb.WriteString(r.Raw)
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(styleTitle.Render(fmt.Sprintf("Currency: %s (%s)", r.Currency.Name, r.Currency.Code)))
	sb.WriteString("\n")
	sb.WriteString(sourceTag(r))
	sb.WriteString("\n")
	if len(r.Rates) > 0 {
		sb.WriteString(cards(r.Rates))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(styleSection.Render("Major Stock Indices"))
	sb.WriteString("\n")
	if len(r.IndexRows) == 0 {
		sb.WriteString(styleSubtle.Render("No index data."))
		sb.WriteString("\n")
	}
	for _, row := range r.IndexRows {
		sb.WriteString(cards(row))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(styleSection.Render("Stock Exchange HQ"))
	sb.WriteString("\n")
	sb.WriteString(r.MapsLink)
	sb.WriteString("\n")
	return sb.String()
}

func sourceTag(r *Report) string {
	color := colorMock
	if r.SourceLive {
		color = colorLive
	}
	return lipgloss.NewStyle().Foreground(color).Render("Source: " + r.Source)
}

func cards(metrics []Metric) string {
	rendered := make([]string, len(metrics))
	for i, m := range metrics {
		body := styleSubtle.Render(m.Label) + "\n" + lipgloss.NewStyle().Bold(true).Render(m.Value)
		if m.Delta != "" {
			body += "\n" + deltaStyle(m).Render(m.Delta)
		}
		rendered[i] = styleCard.Render(body)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func deltaStyle(m Metric) lipgloss.Style {
	if m.Falling() {
		return lipgloss.NewStyle().Foreground(colorDown)
	}
	return lipgloss.NewStyle().Foreground(colorUp)
}
