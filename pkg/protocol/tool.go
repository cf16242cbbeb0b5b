// Package protocol provides shared data structures used across NLWeb components.
// These types can be imported by external tools and extensions.
package protocol

// Parameter types accepted by ParameterSpec.Type.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Tool defaults applied by the builder and by catalog decoding.
const (
	DefaultPriority  = 50
	DefaultTimeoutMs = 30000
	DefaultMethod    = "GET"
)

// Tool describes one invocable capability known to the router.
type Tool struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Category    string          `json:"category" yaml:"category"`
	Tags        []string        `json:"tags" yaml:"tags"`
	Path        string          `json:"path" yaml:"path"`
	Method      string          `json:"method" yaml:"method"` // GET, POST, PUT, DELETE
	Parameters  []ParameterSpec `json:"parameters" yaml:"parameters"`
	Examples    []string        `json:"examples" yaml:"examples"`
	Enabled     bool            `json:"enabled" yaml:"enabled"`
	Priority    int             `json:"priority" yaml:"priority"` // 0-100, higher is preferred
	Timeout     int             `json:"timeout" yaml:"timeout"`   // milliseconds
}

// ParameterSpec describes a tool parameter.
type ParameterSpec struct {
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type" yaml:"type"` // string, number, boolean, object, array
	Description string         `json:"description" yaml:"description"`
	Required    bool           `json:"required" yaml:"required"`
	Default     any            `json:"default,omitempty" yaml:"default,omitempty"`
	Constraints map[string]any `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Clone returns a copy of the tool that shares no slices with the original.
func (t Tool) Clone() Tool {
	c := t
	c.Tags = append([]string(nil), t.Tags...)
	c.Examples = append([]string(nil), t.Examples...)
	if t.Parameters != nil {
		c.Parameters = make([]ParameterSpec, len(t.Parameters))
		copy(c.Parameters, t.Parameters)
	}
	return c
}

// ToolBuilder provides a fluent interface for building tool definitions.
type ToolBuilder struct {
	tool Tool
}

// NewTool creates a new tool builder with defaults applied.
func NewTool(name, description, category string) *ToolBuilder {
	return &ToolBuilder{
		tool: Tool{
			Name:        name,
			Description: description,
			Category:    category,
			Method:      DefaultMethod,
			Enabled:     true,
			Priority:    DefaultPriority,
			Timeout:     DefaultTimeoutMs,
		},
	}
}

// Endpoint sets the invocation target.
func (b *ToolBuilder) Endpoint(method, path string) *ToolBuilder {
	b.tool.Method = method
	b.tool.Path = path
	return b
}

// Tags appends tags.
func (b *ToolBuilder) Tags(tags ...string) *ToolBuilder {
	b.tool.Tags = append(b.tool.Tags, tags...)
	return b
}

// Examples appends example phrasings.
func (b *ToolBuilder) Examples(examples ...string) *ToolBuilder {
	b.tool.Examples = append(b.tool.Examples, examples...)
	return b
}

// AddParam adds a parameter to the tool.
func (b *ToolBuilder) AddParam(name, paramType, description string, required bool) *ToolBuilder {
	b.tool.Parameters = append(b.tool.Parameters, ParameterSpec{
		Name:        name,
		Type:        paramType,
		Description: description,
		Required:    required,
	})
	return b
}

// AddParamWithDefault adds an optional parameter with a default value.
func (b *ToolBuilder) AddParamWithDefault(name, paramType, description string, def any) *ToolBuilder {
	b.tool.Parameters = append(b.tool.Parameters, ParameterSpec{
		Name:        name,
		Type:        paramType,
		Description: description,
		Default:     def,
	})
	return b
}

// Priority sets the priority.
func (b *ToolBuilder) Priority(p int) *ToolBuilder {
	b.tool.Priority = p
	return b
}

// Timeout sets the timeout in milliseconds.
func (b *ToolBuilder) Timeout(ms int) *ToolBuilder {
	b.tool.Timeout = ms
	return b
}

// Disabled marks the tool as registered but not suggestible.
func (b *ToolBuilder) Disabled() *ToolBuilder {
	b.tool.Enabled = false
	return b
}

// Build returns the constructed tool.
func (b *ToolBuilder) Build() Tool {
	return b.tool.Clone()
}
