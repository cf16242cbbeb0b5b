package router

import (
	"slices"
	"strconv"
	"strings"

	"github.com/reynard/nlweb/pkg/protocol"
)

// CacheKey derives the cache key for a request. Unset context fields are
// omitted; selected items are sorted so their order does not matter.
// Free-text fields are quoted, so separators inside them cannot make two
// different requests share a key.
func CacheKey(req protocol.SuggestionRequest) string {
	parts := []string{strconv.Quote(req.Query)}

	if c := req.Context; c != nil {
		if c.CurrentPath != "" {
			parts = append(parts, "path:"+strconv.Quote(c.CurrentPath))
		}
		if len(c.SelectedItems) > 0 {
			items := slices.Clone(c.SelectedItems)
			slices.Sort(items)
			for i, item := range items {
				items[i] = strconv.Quote(item)
			}
			parts = append(parts, "items:"+strings.Join(items, ","))
		}
		if c.IsGitRepository() {
			parts = append(parts, "git:true")
		}
	}

	parts = append(parts,
		"max:"+strconv.Itoa(req.EffectiveMaxSuggestions()),
		"min:"+strconv.FormatFloat(req.MinScore, 'f', -1, 64),
	)

	return strings.Join(parts, "|")
}
