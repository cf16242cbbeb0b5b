package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/reynard/nlweb/pkg/protocol"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	detailStyle = lipgloss.NewStyle().PaddingLeft(4)
)

func renderSuggestions(w io.Writer, resp protocol.SuggestionResponse) {
	header := fmt.Sprintf("%d suggestions for %q", len(resp.Suggestions), resp.Query)
	meta := fmt.Sprintf("%.2fms, %d tools considered", resp.ProcessingTimeMs, resp.TotalToolsConsidered)
	if resp.CacheHit {
		meta += ", cached"
	}
	fmt.Fprintln(w, titleStyle.Render(header)+" "+mutedStyle.Render("("+meta+")"))

	if len(resp.Suggestions) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no tool cleared the score threshold"))
		return
	}

	for i, s := range resp.Suggestions {
		fmt.Fprintf(w, "%2d. %s %s %s\n",
			i+1,
			nameStyle.Render(s.Tool.Name),
			scoreStyle.Render(fmt.Sprintf("%5.1f", s.Score)),
			mutedStyle.Render(s.Tool.Method+" "+s.Tool.Path),
		)

		var lines []string
		if s.Reasoning != "" {
			lines = append(lines, s.Reasoning)
		}
		if len(s.Parameters) > 0 {
			lines = append(lines, "parameters: "+formatMap(s.Parameters))
		}
		for _, name := range slices.Sorted(maps.Keys(s.ParameterHints)) {
			hint := s.ParameterHints[name]
			line := fmt.Sprintf("%s (%s", name, hint.Type)
			if hint.Required {
				line += ", required"
			}
			line += ")"
			if hint.SuggestedValue != nil {
				line += fmt.Sprintf(" = %v", hint.SuggestedValue)
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			fmt.Fprintln(w, detailStyle.Render(strings.Join(lines, "\n")))
		}
	}
}

func renderTools(w io.Writer, tools []protocol.Tool) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d tools", len(tools))))

	for _, t := range tools {
		state := ""
		if !t.Enabled {
			state = " " + mutedStyle.Render("[disabled]")
		}
		fmt.Fprintf(w, "  %s %s%s\n", nameStyle.Render(t.Name), mutedStyle.Render(t.Category), state)
		fmt.Fprintln(w, detailStyle.Render(t.Description))
	}
}

func formatMap(m map[string]any) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}
