package router

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/reynard/nlweb/internal/classifier"
	"github.com/reynard/nlweb/pkg/protocol"
)

// Score contributions.
const (
	priorityFactor     = 0.1
	nameMatchScore     = 50.0
	descMatchScore     = 30.0
	exampleMatchScore  = 20.0
	tagMatchScore      = 10.0
	categoryMatchScore = 15.0
	patternMatchScore  = 25.0

	gitContextBonus   = 15.0
	itemsContextBonus = 10.0
	pathContextBonus  = 5.0

	maxScore = 100.0
)

// minNarrowedCandidates is the smallest pattern-narrowed candidate set the
// router accepts before falling back to every enabled tool.
const minNarrowedCandidates = 10

// selectCandidates orders tools by how many matched pattern groups they
// belong to and keeps only the matching ones when there are enough of them.
func selectCandidates(tools []protocol.Tool, matched []*classifier.PatternGroup) []protocol.Tool {
	if len(matched) == 0 {
		return tools
	}

	type counted struct {
		tool  protocol.Tool
		count int
	}
	ranked := make([]counted, len(tools))
	for i, t := range tools {
		n := 0
		for _, g := range matched {
			if inGroup(t, g.Name) {
				n++
			}
		}
		ranked[i] = counted{t, n}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})

	all := make([]protocol.Tool, len(ranked))
	narrowed := make([]protocol.Tool, 0, len(ranked))
	for i, c := range ranked {
		all[i] = c.tool
		if c.count > 0 {
			narrowed = append(narrowed, c.tool)
		}
	}

	if len(narrowed) < minNarrowedCandidates {
		return all
	}
	return narrowed
}

// inGroup reports whether a pattern group name appears in the tool's
// category or any of its tags.
func inGroup(t protocol.Tool, group string) bool {
	if strings.Contains(strings.ToLower(t.Category), group) {
		return true
	}
	return slices.ContainsFunc(t.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), group)
	})
}

// isGitTool reports whether a tool gets the git repository context bonus.
func isGitTool(t protocol.Tool) bool {
	return strings.Contains(strings.ToLower(t.Category), "git") || slices.Contains(t.Tags, "git")
}

func isFileTool(t protocol.Tool) bool {
	return strings.Contains(strings.ToLower(t.Category), "file") || slices.Contains(t.Tags, "file")
}

func isPathTool(t protocol.Tool) bool {
	category := strings.ToLower(t.Category)
	return strings.Contains(category, "file") || strings.Contains(category, "directory")
}

// scoreTool computes the additive relevance score of one tool, clamped to
// [0, 100]. query must already be lowercased.
func scoreTool(query string, t protocol.Tool, matched []*classifier.PatternGroup, ctx *protocol.Context) float64 {
	score := float64(t.Priority) * priorityFactor

	if strings.Contains(strings.ToLower(t.Name), query) {
		score += nameMatchScore
	}
	if strings.Contains(strings.ToLower(t.Description), query) {
		score += descMatchScore
	}
	for _, ex := range t.Examples {
		if strings.Contains(strings.ToLower(ex), query) {
			score += exampleMatchScore
		}
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			score += tagMatchScore
		}
	}
	if strings.Contains(strings.ToLower(t.Category), query) {
		score += categoryMatchScore
	}

	for _, g := range matched {
		if inGroup(t, g.Name) {
			score += patternMatchScore * g.Weight
		}
	}

	score += contextBonus(t, ctx)

	return min(maxScore, max(0, score))
}

func contextBonus(t protocol.Tool, ctx *protocol.Context) float64 {
	if ctx == nil {
		return 0
	}
	bonus := 0.0
	if ctx.IsGitRepository() && isGitTool(t) {
		bonus += gitContextBonus
	}
	if len(ctx.SelectedItems) > 0 && isFileTool(t) {
		bonus += itemsContextBonus
	}
	if ctx.CurrentPath != "" && isPathTool(t) {
		bonus += pathContextBonus
	}
	return bonus
}

// reasoning explains a suggestion as a semicolon-joined list of reasons.
// query must already be lowercased.
func reasoning(query string, t protocol.Tool, ctx *protocol.Context) string {
	var reasons []string

	if strings.Contains(strings.ToLower(t.Name), query) {
		reasons = append(reasons, fmt.Sprintf("Tool name '%s' matches query", t.Name))
	}
	if strings.Contains(strings.ToLower(t.Description), query) {
		reasons = append(reasons, "Tool description matches query")
	}
	if slices.ContainsFunc(t.Examples, func(ex string) bool { return strings.Contains(strings.ToLower(ex), query) }) {
		reasons = append(reasons, "Tool examples match query")
	}

	var tags []string
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			tags = append(tags, tag)
		}
	}
	if len(tags) > 0 {
		reasons = append(reasons, "Tool tags match: "+strings.Join(tags, ", "))
	}

	if strings.Contains(strings.ToLower(t.Category), query) {
		reasons = append(reasons, fmt.Sprintf("Tool category '%s' matches query", t.Category))
	}

	if ctx != nil {
		if ctx.IsGitRepository() && isGitTool(t) {
			reasons = append(reasons, "Tool is relevant for git repository context")
		}
		if len(ctx.SelectedItems) > 0 && isFileTool(t) {
			reasons = append(reasons, "Tool is relevant for file operations")
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("Tool has high priority (%d) and general relevance", t.Priority))
	}

	return strings.Join(reasons, "; ")
}

// parameterHints describes every declared parameter with a suggested value.
func parameterHints(t protocol.Tool, ctx *protocol.Context) map[string]protocol.ParameterHint {
	hints := make(map[string]protocol.ParameterHint, len(t.Parameters))
	for _, p := range t.Parameters {
		if _, seen := hints[p.Name]; seen {
			continue
		}
		hints[p.Name] = protocol.ParameterHint{
			Description:    p.Description,
			Required:       p.Required,
			Type:           p.Type,
			SuggestedValue: suggestValue(p, ctx),
		}
	}
	return hints
}

// suggestValue picks a value from context when the parameter name hints at
// one, otherwise the declared default.
func suggestValue(p protocol.ParameterSpec, ctx *protocol.Context) any {
	if ctx != nil {
		name := strings.ToLower(p.Name)
		switch {
		case strings.Contains(name, "path") && ctx.CurrentPath != "":
			return ctx.CurrentPath
		case strings.Contains(name, "file") && len(ctx.SelectedItems) > 0:
			return ctx.SelectedItems[0]
		case strings.Contains(name, "branch") && len(ctx.GitStatus) > 0:
			return ctx.GitBranch()
		}
	}
	return p.Default
}
