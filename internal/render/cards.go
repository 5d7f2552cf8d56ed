// Package render draws score cards for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muhammadolammi/resumeparser/internal/matcher"
)

var (
	Primary = lipgloss.Color("#4f46e5")
	Success = lipgloss.Color("#10b981")
	Danger  = lipgloss.Color("#ef4444")
	Border  = lipgloss.Color("#cccccc")

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1).
			MarginTop(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	labelStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

// Card renders one result: filename, match percentage and eligibility.
func Card(r matcher.Result) string {
	color := Danger
	if r.Eligibility == matcher.Eligible {
		color = Success
	}

	lines := []string{
		titleStyle.Render(r.Filename),
		labelStyle.Render("Match:") + " " + formatScore(r.MatchScore) + "%",
		lipgloss.NewStyle().Foreground(color).Render(string(r.Eligibility)),
	}
	if len(r.MatchedKeywords) > 0 {
		lines = append(lines, mutedStyle.Render("Keywords: "+strings.Join(r.MatchedKeywords, ", ")))
	}
	if r.Experience > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("Experience: %d years", r.Experience)))
	}
	if r.Review != "" {
		lines = append(lines, r.Review)
	}
	if r.Error != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(Danger).Render("Error: "+r.Error))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// Cards renders every result in order.
func Cards(results []matcher.Result) string {
	cards := make([]string, len(results))
	for i, r := range results {
		cards[i] = Card(r)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// formatScore prints scores the way JSON numbers read: 50 not 50.00.
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
