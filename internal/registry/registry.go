// Package registry provides the tool registry consulted by the router.
//
// Tools are kept in insertion order and indexed by category and tag. Every
// mutating call holds the registry lock for its whole duration, so readers
// never observe a tool that is in the main map but missing from its buckets.
// All accessors return copies.
package registry

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/reynard/nlweb/pkg/protocol"
)

// ToolRegistry stores tool definitions and their usage statistics.
type ToolRegistry struct {
	mu sync.RWMutex

	tools      *orderedmap.OrderedMap[string, protocol.Tool]
	categories map[string][]string // category -> tool names, registration order
	tags       map[string][]string // tag -> tool names, registration order
	usage      map[string]*protocol.ToolUsage

	now    func() time.Time
	logger zerolog.Logger
}

// Stats summarises registry contents.
type Stats struct {
	TotalTools      int            `json:"total_tools"`
	EnabledTools    int            `json:"enabled_tools"`
	Categories      int            `json:"categories"`
	Tags            int            `json:"tags"`
	ToolsByCategory map[string]int `json:"tools_by_category"`
}

// New creates an empty registry.
func New(logger zerolog.Logger) *ToolRegistry {
	return &ToolRegistry{
		tools:      orderedmap.New[string, protocol.Tool](),
		categories: make(map[string][]string),
		tags:       make(map[string][]string),
		usage:      make(map[string]*protocol.ToolUsage),
		now:        time.Now,
		logger:     logger.With().Str("component", "registry").Logger(),
	}
}

// Register validates and stores a tool, replacing any tool with the same
// name. A replaced tool keeps its position in registration order but loses
// its old category and tag entries. Returns false if validation fails.
func (r *ToolRegistry) Register(tool protocol.Tool) bool {
	result := Validate(tool)
	if !result.Valid {
		r.logger.Warn().
			Str("tool", tool.Name).
			Interface("errors", result.Errors).
			Msg("rejected invalid tool")
		return false
	}
	if len(result.Warnings) > 0 {
		r.logger.Debug().
			Str("tool", tool.Name).
			Interface("warnings", result.Warnings).
			Msg("tool registered with warnings")
	}

	tool = tool.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.tools.Get(tool.Name); exists {
		r.unindexLocked(old)
	}
	r.tools.Set(tool.Name, tool)
	r.indexLocked(tool)

	r.logger.Debug().Str("tool", tool.Name).Str("category", tool.Category).Msg("registered tool")
	return true
}

// Unregister removes a tool and every index entry pointing at it.
// Usage statistics are dropped too. Returns false if the name is unknown.
func (r *ToolRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, exists := r.tools.Get(name)
	if !exists {
		return false
	}

	r.unindexLocked(tool)
	r.tools.Delete(name)
	delete(r.usage, name)

	r.logger.Debug().Str("tool", name).Msg("unregistered tool")
	return true
}

// Enable marks a tool as suggestible. Returns false if the name is unknown.
func (r *ToolRegistry) Enable(name string) bool {
	return r.setEnabled(name, true)
}

// Disable hides a tool from suggestions. Returns false if the name is unknown.
func (r *ToolRegistry) Disable(name string) bool {
	return r.setEnabled(name, false)
}

func (r *ToolRegistry) setEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, exists := r.tools.Get(name)
	if !exists {
		return false
	}
	tool.Enabled = enabled
	r.tools.Set(name, tool)
	return true
}

// Get returns a copy of the named tool.
func (r *ToolRegistry) Get(name string) (protocol.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools.Get(name)
	if !exists {
		return protocol.Tool{}, false
	}
	return tool.Clone(), true
}

// GetAll returns every tool in registration order.
func (r *ToolRegistry) GetAll() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collectLocked(func(protocol.Tool) bool { return true })
}

// GetEnabled returns the enabled tools in registration order.
func (r *ToolRegistry) GetEnabled() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collectLocked(func(t protocol.Tool) bool { return t.Enabled })
}

// GetByCategory returns the tools in a category, in the order they joined it.
func (r *ToolRegistry) GetByCategory(category string) []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.resolveLocked(r.categories[category])
}

// GetByTag returns the tools carrying a tag, in the order they joined it.
func (r *ToolRegistry) GetByTag(tag string) []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.resolveLocked(r.tags[tag])
}

// Categories returns the non-empty categories, sorted.
func (r *ToolRegistry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.categories)
}

// Tags returns the non-empty tags, sorted.
func (r *ToolRegistry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.tags)
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tools.Len()
}

// RecordUsage accumulates execution statistics for a registered tool,
// whether or not it is enabled. Returns false if the name is unknown.
func (r *ToolRegistry) RecordUsage(name string, success bool, executionTime time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools.Get(name); !exists {
		return false
	}

	u, ok := r.usage[name]
	if !ok {
		u = &protocol.ToolUsage{}
		r.usage[name] = u
	}

	u.UsageCount++
	if success {
		u.SuccessCount++
	} else {
		u.FailureCount++
	}
	latest := float64(executionTime) / float64(time.Millisecond)
	n := float64(u.UsageCount)
	u.AvgExecutionMs = (u.AvgExecutionMs*(n-1) + latest) / n
	u.LastUsed = r.now()

	return true
}

// Usage returns the usage statistics of a tool. A registered tool that was
// never used reports zero values.
func (r *ToolRegistry) Usage(name string) (protocol.ToolUsage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.tools.Get(name); !exists {
		return protocol.ToolUsage{}, false
	}
	if u, ok := r.usage[name]; ok {
		return *u, true
	}
	return protocol.ToolUsage{}, true
}

// Stats returns counts of tools, categories and tags.
func (r *ToolRegistry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		TotalTools:      r.tools.Len(),
		Categories:      len(r.categories),
		Tags:            len(r.tags),
		ToolsByCategory: make(map[string]int, len(r.categories)),
	}
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Enabled {
			s.EnabledTools++
		}
	}
	for category, names := range r.categories {
		s.ToolsByCategory[category] = len(names)
	}
	return s
}

// indexLocked adds the tool to its category and tag buckets.
// Caller must hold r.mu.
func (r *ToolRegistry) indexLocked(tool protocol.Tool) {
	r.categories[tool.Category] = append(r.categories[tool.Category], tool.Name)
	for _, tag := range uniqueTags(tool.Tags) {
		r.tags[tag] = append(r.tags[tag], tool.Name)
	}
}

// unindexLocked removes the tool from its buckets, dropping empty ones.
// Caller must hold r.mu.
func (r *ToolRegistry) unindexLocked(tool protocol.Tool) {
	removeFromBucket(r.categories, tool.Category, tool.Name)
	for _, tag := range uniqueTags(tool.Tags) {
		removeFromBucket(r.tags, tag, tool.Name)
	}
}

// collectLocked returns copies of the tools accepted by keep.
// Caller must hold r.mu.
func (r *ToolRegistry) collectLocked(keep func(protocol.Tool) bool) []protocol.Tool {
	out := make([]protocol.Tool, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		if keep(pair.Value) {
			out = append(out, pair.Value.Clone())
		}
	}
	return out
}

// resolveLocked maps bucket names to tool copies.
// Caller must hold r.mu.
func (r *ToolRegistry) resolveLocked(names []string) []protocol.Tool {
	out := make([]protocol.Tool, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools.Get(name); ok {
			out = append(out, tool.Clone())
		}
	}
	return out
}

func removeFromBucket(buckets map[string][]string, key, name string) {
	names := slices.DeleteFunc(buckets[key], func(n string) bool { return n == name })
	if len(names) == 0 {
		delete(buckets, key)
		return
	}
	buckets[key] = names
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
