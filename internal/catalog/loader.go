package catalog

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/reynard/nlweb/internal/errors"
	"github.com/reynard/nlweb/pkg/protocol"
)

// File is the on-disk layout of a tool catalog.
type File struct {
	Tools []fileTool `yaml:"tools"`
}

// fileTool mirrors protocol.Tool with optional fields, so omitted values
// take the same defaults as the builder.
type fileTool struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Category    string                   `yaml:"category"`
	Tags        []string                 `yaml:"tags"`
	Path        string                   `yaml:"path"`
	Method      string                   `yaml:"method"`
	Parameters  []protocol.ParameterSpec `yaml:"parameters"`
	Examples    []string                 `yaml:"examples"`
	Enabled     *bool                    `yaml:"enabled"`
	Priority    *int                     `yaml:"priority"`
	Timeout     *int                     `yaml:"timeout"`
}

func (f fileTool) toTool() protocol.Tool {
	tool := protocol.Tool{
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Tags:        f.Tags,
		Path:        f.Path,
		Method:      strings.ToUpper(f.Method),
		Parameters:  f.Parameters,
		Examples:    f.Examples,
		Enabled:     true,
		Priority:    protocol.DefaultPriority,
		Timeout:     protocol.DefaultTimeoutMs,
	}
	if tool.Method == "" {
		tool.Method = protocol.DefaultMethod
	}
	if f.Enabled != nil {
		tool.Enabled = *f.Enabled
	}
	if f.Priority != nil {
		tool.Priority = *f.Priority
	}
	if f.Timeout != nil {
		tool.Timeout = *f.Timeout
	}
	for i := range tool.Parameters {
		if tool.Parameters[i].Type == "" {
			tool.Parameters[i].Type = protocol.TypeString
		}
	}
	return tool
}

// Parse decodes a YAML catalog. Tools are not validated here; the registry
// rejects invalid entries on registration.
func Parse(data []byte) ([]protocol.Tool, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCatalogLoad, "failed to parse tool catalog", apperrors.CategoryUser)
	}

	tools := make([]protocol.Tool, 0, len(file.Tools))
	for _, ft := range file.Tools {
		tools = append(tools, ft.toTool())
	}
	return tools, nil
}

// Load reads and decodes a YAML catalog file.
func Load(path string) ([]protocol.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCatalogLoad, "failed to read tool catalog", apperrors.CategorySystem).
			WithContext("path", path)
	}

	tools, err := Parse(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCatalogLoad, "failed to load tool catalog", apperrors.CategoryUser).
			WithContext("path", path)
	}
	return tools, nil
}

// Marshal encodes tools in catalog layout.
func Marshal(tools []protocol.Tool) ([]byte, error) {
	file := File{Tools: make([]fileTool, len(tools))}
	for i, t := range tools {
		enabled, priority, timeout := t.Enabled, t.Priority, t.Timeout
		file.Tools[i] = fileTool{
			Name:        t.Name,
			Description: t.Description,
			Category:    t.Category,
			Tags:        t.Tags,
			Path:        t.Path,
			Method:      t.Method,
			Parameters:  t.Parameters,
			Examples:    t.Examples,
			Enabled:     &enabled,
			Priority:    &priority,
			Timeout:     &timeout,
		}
	}
	return yaml.Marshal(file)
}
