// ABOUTME: Terminal formatting of agent catalogue entries and agent results
// ABOUTME: Colours come from fatih/color and switch off with color.NoColor

package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/coven-workspace/internal/agent"
	"github.com/2389/coven-workspace/internal/workspace"
)

var (
	heading = color.New(color.Bold)
	dim     = color.New(color.Faint)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	bad     = color.New(color.FgRed)
	accent  = color.New(color.FgCyan)
)

// Agents lists the catalogue, marking open and unavailable agents.
func Agents(w io.Writer, agents []agent.Descriptor, isOpen func(id string) bool) {
	for _, a := range agents {
		status := ""
		switch {
		case !a.Available:
			status = dim.Sprint(" (coming soon)")
		case isOpen != nil && isOpen(a.ID):
			status = good.Sprint(" (open)")
		}
		fmt.Fprintf(w, "  %-20s %s%s\n", a.ID, a.Name, status)
		fmt.Fprintf(w, "  %-20s %s\n", "", dim.Sprint(a.Description))
	}
}

// VideoSummary prints a summarizer result.
func VideoSummary(w io.Writer, v workspace.VideoSummary) {
	heading.Fprintln(w, v.Title)
	fmt.Fprintf(w, "%s  %s views  %s likes\n", v.Duration, v.Views(), v.Likes())

	section(w, "Key points")
	bullets(w, v.Summary.KeyPoints)
	section(w, "Main topics")
	fmt.Fprintf(w, "  %s\n", strings.Join(v.Summary.MainTopics, " · "))
	section(w, "Conclusion")
	fmt.Fprintln(w, indent(PlainText(v.Summary.Conclusion)))
}

// ResumeMatch prints a matcher report with its rating.
func ResumeMatch(w io.Writer, m workspace.ResumeMatch) {
	score := ratingColor(m.OverallMatch).Sprintf("%.0f%%", m.OverallMatch)
	fmt.Fprintf(w, "%s %s  %s\n", heading.Sprint("Overall match:"), score, m.Rating())

	if k := m.KeywordMatch; k.Total > 0 {
		fmt.Fprintf(w, "Keywords: %d/%d matched", k.Matched, k.Total)
		if len(k.Keywords) > 0 {
			fmt.Fprintf(w, " (%s)", strings.Join(k.Keywords, ", "))
		}
		fmt.Fprintln(w)
	}

	if len(m.SectionScores) > 0 {
		section(w, "Sections")
		names := make([]string, 0, len(m.SectionScores))
		for name := range m.SectionScores {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-12s %s\n", name, ratingColor(m.SectionScores[name]).Sprintf("%.0f%%", m.SectionScores[name]))
		}
	}

	section(w, "Strengths")
	bullets(w, m.Strengths)
	section(w, "Gaps")
	bullets(w, m.Gaps)
	section(w, "Recommendations")
	bullets(w, m.Recommendations)
}

// Conversation prints a document Q&A log. Failed questions are flagged.
func Conversation(w io.Writer, entries []workspace.Entry) {
	for _, e := range entries {
		switch e.Role {
		case workspace.RoleUser:
			marker := accent.Sprint("→")
			suffix := ""
			switch e.Status {
			case workspace.StatusPending:
				suffix = dim.Sprint(" (waiting)")
			case workspace.StatusFailed:
				suffix = bad.Sprint(" (failed)")
			}
			fmt.Fprintf(w, "%s %s%s\n", marker, e.Text, suffix)
		case workspace.RoleAssistant:
			fmt.Fprintf(w, "%s %s\n", good.Sprint("←"), strings.TrimPrefix(indent(PlainText(e.Text)), "  "))
		}
	}
}

func ratingColor(score float64) *color.Color {
	switch {
	case score >= 70:
		return good
	case score >= 50:
		return warn
	default:
		return bad
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	heading.Fprintln(w, title)
}

func bullets(w io.Writer, items []string) {
	if len(items) == 0 {
		dim.Fprintln(w, "  none")
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  • %s\n", item)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
