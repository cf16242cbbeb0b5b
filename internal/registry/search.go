package registry

import (
	"slices"
	"sort"
	"strings"

	"github.com/reynard/nlweb/pkg/protocol"
)

// Search weights for substring matches of the query.
const (
	searchNameWeight        = 100
	searchDescriptionWeight = 50
	searchExampleWeight     = 25
	searchTagWeight         = 10
)

// Search ranks registered tools by how the lowercased query appears in
// their fields. Tools are first filtered by category and by tags (any of)
// when given. An empty query returns every filtered tool in registration
// order; otherwise only tools with a positive score are returned, highest
// first, ties in registration order.
func (r *ToolRegistry) Search(query, category string, tags []string) []protocol.Tool {
	r.mu.RLock()
	candidates := r.collectLocked(func(t protocol.Tool) bool {
		if category != "" && t.Category != category {
			return false
		}
		if len(tags) > 0 && !slices.ContainsFunc(tags, func(tag string) bool { return slices.Contains(t.Tags, tag) }) {
			return false
		}
		return true
	})
	r.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return candidates
	}

	type scored struct {
		tool  protocol.Tool
		score int
	}
	results := make([]scored, 0, len(candidates))
	for _, t := range candidates {
		if s := searchScore(q, t); s > 0 {
			results = append(results, scored{t, s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	out := make([]protocol.Tool, len(results))
	for i, s := range results {
		out[i] = s.tool
	}
	return out
}

func searchScore(q string, t protocol.Tool) int {
	score := 0
	if strings.Contains(strings.ToLower(t.Name), q) {
		score += searchNameWeight
	}
	if strings.Contains(strings.ToLower(t.Description), q) {
		score += searchDescriptionWeight
	}
	if slices.ContainsFunc(t.Examples, func(e string) bool { return strings.Contains(strings.ToLower(e), q) }) {
		score += searchExampleWeight
	}
	if slices.ContainsFunc(t.Tags, func(tag string) bool { return strings.Contains(strings.ToLower(tag), q) }) {
		score += searchTagWeight
	}
	return score
}
