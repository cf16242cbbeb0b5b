package registry

import (
	"fmt"
	"strings"

	"github.com/reynard/nlweb/pkg/protocol"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds the result of validating a tool definition.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []ValidationError `json:"warnings,omitempty"`
}

// Error joins all errors into one message.
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidMethods contains the accepted invocation methods.
var ValidMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
}

// ValidParameterTypes contains the accepted parameter types.
var ValidParameterTypes = map[string]bool{
	protocol.TypeString:  true,
	protocol.TypeNumber:  true,
	protocol.TypeBoolean: true,
	protocol.TypeObject:  true,
	protocol.TypeArray:   true,
}

// Validate checks a tool definition before registration.
func Validate(tool protocol.Tool) *ValidationResult {
	result := &ValidationResult{Valid: true}

	validateRequired(tool, result)
	validateRanges(tool, result)
	validateParameters(tool.Parameters, result)
	addWarnings(tool, result)

	result.Valid = len(result.Errors) == 0
	return result
}

func validateRequired(tool protocol.Tool, result *ValidationResult) {
	if strings.TrimSpace(tool.Name) == "" {
		result.Errors = append(result.Errors, ValidationError{"name", "required field is missing"})
	}
	if strings.TrimSpace(tool.Description) == "" {
		result.Errors = append(result.Errors, ValidationError{"description", "required field is missing"})
	}
	if strings.TrimSpace(tool.Category) == "" {
		result.Errors = append(result.Errors, ValidationError{"category", "required field is missing"})
	}
	if strings.TrimSpace(tool.Path) == "" {
		result.Errors = append(result.Errors, ValidationError{"path", "required field is missing"})
	}
}

func validateRanges(tool protocol.Tool, result *ValidationResult) {
	if !ValidMethods[tool.Method] {
		result.Errors = append(result.Errors, ValidationError{"method", fmt.Sprintf("invalid method: %q", tool.Method)})
	}
	if tool.Priority < 0 || tool.Priority > 100 {
		result.Errors = append(result.Errors, ValidationError{"priority", "must be between 0 and 100"})
	}
	if tool.Timeout <= 0 {
		result.Errors = append(result.Errors, ValidationError{"timeout", "must be positive"})
	}
}

func validateParameters(params []protocol.ParameterSpec, result *ValidationResult) {
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		field := fmt.Sprintf("parameters[%d]", i)
		if p.Name == "" {
			result.Errors = append(result.Errors, ValidationError{field + ".name", "required field is missing"})
		} else if seen[p.Name] {
			result.Errors = append(result.Errors, ValidationError{field + ".name", fmt.Sprintf("duplicate parameter: %s", p.Name)})
		}
		seen[p.Name] = true

		if !ValidParameterTypes[p.Type] {
			result.Errors = append(result.Errors, ValidationError{field + ".type", fmt.Sprintf("invalid type: %q", p.Type)})
		}
	}
}

func addWarnings(tool protocol.Tool, result *ValidationResult) {
	if len(tool.Examples) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{"examples", "no examples; example matching will never score"})
	}
	if len(tool.Tags) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{"tags", "no tags; pattern group bonuses require a matching category"})
	}
}
