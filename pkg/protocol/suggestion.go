package protocol

import "maps"

// Request limits.
const (
	MaxQueryLength        = 1000
	DefaultMaxSuggestions = 5
	MaxMaxSuggestions     = 20
	MaxMinScore           = 100.0
)

// Context carries advisory signals from the caller's environment.
type Context struct {
	CurrentPath      string         `json:"current_path,omitempty"`
	SelectedItems    []string       `json:"selected_items,omitempty"`
	GitStatus        map[string]any `json:"git_status,omitempty"` // isRepository, branch, ...
	UserPreferences  map[string]any `json:"user_preferences,omitempty"`
	ApplicationState map[string]any `json:"application_state,omitempty"`
	UserID           string         `json:"user_id,omitempty"`
	SessionID        string         `json:"session_id,omitempty"`
}

// IsGitRepository reports whether git_status.isRepository is true.
func (c *Context) IsGitRepository() bool {
	if c == nil || c.GitStatus == nil {
		return false
	}
	v, ok := c.GitStatus["isRepository"].(bool)
	return ok && v
}

// GitBranch returns git_status.branch, or nil when absent.
func (c *Context) GitBranch() any {
	if c == nil || c.GitStatus == nil {
		return nil
	}
	return c.GitStatus["branch"]
}

// SuggestionRequest asks the router for tools matching a query.
type SuggestionRequest struct {
	Query            string   `json:"query"`
	Context          *Context `json:"context,omitempty"`
	MaxSuggestions   int      `json:"max_suggestions,omitempty"` // 1-20, 0 means default
	MinScore         float64  `json:"min_score,omitempty"`       // 0-100
	IncludeReasoning *bool    `json:"include_reasoning,omitempty"`
}

// EffectiveMaxSuggestions returns MaxSuggestions with the default applied.
func (r SuggestionRequest) EffectiveMaxSuggestions() int {
	if r.MaxSuggestions <= 0 {
		return DefaultMaxSuggestions
	}
	return r.MaxSuggestions
}

// WantsReasoning reports whether reasoning strings should be returned.
func (r SuggestionRequest) WantsReasoning() bool {
	return r.IncludeReasoning == nil || *r.IncludeReasoning
}

// ParameterHint tells the caller how to fill one tool parameter.
type ParameterHint struct {
	Description    string `json:"description"`
	Required       bool   `json:"required"`
	Type           string `json:"type"`
	SuggestedValue any    `json:"suggested_value"`
}

// Suggestion is one ranked tool.
type Suggestion struct {
	Tool           Tool                     `json:"tool"`
	Score          float64                  `json:"score"`
	Parameters     map[string]any           `json:"parameters"`
	Reasoning      string                   `json:"reasoning"`
	ParameterHints map[string]ParameterHint `json:"parameter_hints"`
}

// SuggestionResponse is the router's answer to a SuggestionRequest.
type SuggestionResponse struct {
	RequestID            string       `json:"request_id,omitempty"`
	Suggestions          []Suggestion `json:"suggestions"`
	Query                string       `json:"query"`
	ProcessingTimeMs     float64      `json:"processing_time_ms"`
	CacheHit             bool         `json:"cache_hit"`
	TotalToolsConsidered int          `json:"total_tools_considered"`
}

// EmptyResponse returns a well-formed response with no suggestions.
func EmptyResponse(query string) SuggestionResponse {
	return SuggestionResponse{
		Suggestions: []Suggestion{},
		Query:       query,
	}
}

// Clone returns a copy safe to mutate without affecting the original.
func (r SuggestionResponse) Clone() SuggestionResponse {
	c := r
	c.Suggestions = make([]Suggestion, len(r.Suggestions))
	for i, s := range r.Suggestions {
		s.Tool = s.Tool.Clone()
		s.Parameters = maps.Clone(s.Parameters)
		s.ParameterHints = maps.Clone(s.ParameterHints)
		c.Suggestions[i] = s
	}
	return c
}
