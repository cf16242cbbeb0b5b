package classifier

import (
	"regexp"
)

// PatternGroup is a named family of query patterns with a relevance weight.
// A tool is boosted by a group when the group name appears in its category or
// one of its tags.
type PatternGroup struct {
	Name    string
	Weight  float64
	Regexes []*regexp.Regexp
}

// Matches reports whether any of the group's patterns match the query.
func (g *PatternGroup) Matches(query string) bool {
	for _, re := range g.Regexes {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}

// defaultWeight applies to groups registered without an explicit weight.
const defaultWeight = 1.0

// defaultGroups returns the built-in pattern groups, in evaluation order.
func defaultGroups() []*PatternGroup {
	return []*PatternGroup{
		// ============================================================
		// GIT
		// ============================================================
		{
			Name:   "git",
			Weight: 1.2,
			Regexes: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(git|version control|repository|commit|branch|status|diff|log)\b`),
				regexp.MustCompile(`(?i)\b(check|show|list|display).*(git|repo|repository)\b`),
			},
		},

		// ============================================================
		// FILE
		// ============================================================
		{
			Name:   "file",
			Weight: 1.1,
			Regexes: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(file|files|directory|folder|path|list|show|display|read|open)\b`),
				regexp.MustCompile(`(?i)\b(what|which|where).*(file|files)\b`),
			},
		},

		// ============================================================
		// CAPTION
		// ============================================================
		{
			Name:   "caption",
			Weight: 1.0,
			Regexes: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(caption|describe|generate|create).*(image|picture|photo)\b`),
				regexp.MustCompile(`(?i)\b(image|picture|photo).*(caption|description|describe)\b`),
			},
		},

		// ============================================================
		// SEARCH (fallback)
		// ============================================================
		{
			Name:   "search",
			Weight: 0.9,
			Regexes: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(search|find|look|query|lookup)\b`),
				regexp.MustCompile(`(?i)\b(what|where|how|when|why)\b`),
			},
		},
	}
}
