package pagespeed

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	colorGood    = lipgloss.Color("#0cce6b")
	colorAverage = lipgloss.Color("#ffa400")
	colorPoor    = lipgloss.Color("#ff4e42")
)

// ScoreColor picks the Lighthouse colour band for a 0-100 score.
func ScoreColor(score int) lipgloss.Color {
	switch {
	case score >= 90:
		return colorGood
	case score >= 50:
		return colorAverage
	default:
		return colorPoor
	}
}

// Render writes a summary of report to w.
func Render(w io.Writer, report *Report) error {
	r := lipgloss.NewRenderer(w)

	title := r.NewStyle().Bold(true)
	label := r.NewStyle().Width(28)
	score := r.NewStyle().Bold(true).Foreground(ScoreColor(report.Score))
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	var b strings.Builder
	b.WriteString(title.Render(report.URL))
	b.WriteString("\n")
	b.WriteString(label.Render("Strategy"))
	b.WriteString(cases.Title(language.English).String(report.Strategy))
	b.WriteString("\n")
	b.WriteString(label.Render("Performance"))
	b.WriteString(score.Render(fmt.Sprintf("%d", report.Score)))

	if len(report.Metrics) > 0 {
		b.WriteString("\n")
	}
	for _, m := range report.Metrics {
		value := r.NewStyle().Foreground(ScoreColor(int(m.Score * 100))).Render(m.Value)
		b.WriteString("\n")
		b.WriteString(label.Render(m.Title))
		b.WriteString(value)
	}

	_, err := fmt.Fprintln(w, box.Render(b.String()))
	return err
}
