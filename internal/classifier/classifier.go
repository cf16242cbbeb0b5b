// Package classifier provides rule-based query pattern matching and
// parameter value extraction for the suggestion router.
//
// Matching is purely regex based: a query is tested against every pattern
// group and the matched groups, with their weights, feed the router's score.
package classifier

import (
	"regexp"
	"strings"
)

// Classifier matches queries against pattern groups.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	groups []*PatternGroup
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithGroup adds a pattern group after the built-in ones. A group with an
// existing name replaces it in place.
func WithGroup(name string, weight float64, patterns ...string) Option {
	return func(c *Classifier) {
		if weight <= 0 {
			weight = defaultWeight
		}
		g := &PatternGroup{Name: strings.ToLower(name), Weight: weight}
		for _, p := range patterns {
			g.Regexes = append(g.Regexes, regexp.MustCompile("(?i)"+p))
		}
		for i, existing := range c.groups {
			if existing.Name == g.Name {
				c.groups[i] = g
				return
			}
		}
		c.groups = append(c.groups, g)
	}
}

// New creates a classifier with the built-in pattern groups.
func New(opts ...Option) *Classifier {
	c := &Classifier{groups: defaultGroups()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Match returns the groups whose patterns match the query, in group order.
func (c *Classifier) Match(query string) []*PatternGroup {
	var matched []*PatternGroup
	for _, g := range c.groups {
		if g.Matches(query) {
			matched = append(matched, g)
		}
	}
	return matched
}

// Groups returns the configured group names in evaluation order.
func (c *Classifier) Groups() []string {
	names := make([]string, len(c.groups))
	for i, g := range c.groups {
		names[i] = g.Name
	}
	return names
}
