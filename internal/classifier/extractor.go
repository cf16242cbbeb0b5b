package classifier

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/reynard/nlweb/pkg/protocol"
)

// ExtractParameters pulls values for the given parameters out of a query.
//
// A parameter is considered only when its name occurs in the query. The value
// is the token following "name:", "name=" or "name ", converted to the
// parameter type. When no value follows, the parameter default is used if it
// has one. Extraction never fails; unconvertible values are kept as strings.
func ExtractParameters(query string, params []protocol.ParameterSpec) map[string]any {
	out := make(map[string]any)
	lower := strings.ToLower(query)

	for _, param := range params {
		if param.Name == "" || !strings.Contains(lower, strings.ToLower(param.Name)) {
			continue
		}
		if raw, ok := extractValue(query, param.Name); ok {
			out[param.Name] = ConvertValue(raw, param.Type)
		} else if param.Default != nil {
			out[param.Name] = param.Default
		}
	}

	return out
}

// extractValue finds the token after "name[:=]" or "name <space>".
// The original query is searched so the value keeps its case.
func extractValue(query, name string) (string, bool) {
	quoted := regexp.QuoteMeta(name)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + quoted + `[:=]\s*(\S+)`),
		regexp.MustCompile(`(?i)` + quoted + `\s+(\S+)`),
	}

	for _, re := range patterns {
		if m := re.FindStringSubmatch(query); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ConvertValue converts a raw token to the given parameter type.
// On any conversion failure the raw string is returned.
func ConvertValue(value, paramType string) any {
	switch paramType {
	case protocol.TypeNumber:
		if strings.Contains(value, ".") {
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				return f
			}
			return value
		}
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		return value

	case protocol.TypeBoolean:
		switch strings.ToLower(value) {
		case "true", "yes", "1", "on":
			return true
		}
		return false

	case protocol.TypeArray:
		return strings.Split(value, ",")

	case protocol.TypeObject:
		var obj any
		if err := json.Unmarshal([]byte(value), &obj); err != nil {
			return value
		}
		return obj

	default:
		return value
	}
}
