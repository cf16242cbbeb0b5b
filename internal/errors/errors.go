// Package errors provides the error taxonomy used at the NLWeb service boundary.
//
// The registry, cache and router report expected failures through boolean or
// zero-value returns. Only the service and transport adapters construct
// AppErrors, so callers get one consistent shape to map onto their own
// conventions (MCP error results, CLI exit codes).
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================
// Error Categories
// ============================================================

// Category defines the type of error for handling decisions.
type Category int

const (
	// CategoryUser errors are caused by caller input (validation, unknown keys)
	CategoryUser Category = iota

	// CategoryNotFound errors reference a tool or entity that does not exist
	CategoryNotFound

	// CategoryUnavailable errors mean the service is disabled or not initialised
	CategoryUnavailable

	// CategorySystem errors are local environment failures (config files, catalogs)
	CategorySystem
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryUser:
		return "user"
	case CategoryNotFound:
		return "not_found"
	case CategoryUnavailable:
		return "unavailable"
	case CategorySystem:
		return "system"
	default:
		return "unknown"
	}
}

// ============================================================
// AppError - Main Error Type
// ============================================================

// AppError is the main error type for all NLWeb boundary errors.
type AppError struct {
	// Code is a unique error code for programmatic handling
	Code string

	// Message is a caller-facing error message
	Message string

	// Category determines how the boundary maps the error
	Category Category

	// Inner is the underlying error
	Inner error

	// Context is additional debugging information
	Context map[string]any
}

// Error returns the error message.
func (e *AppError) Error() string {
	var sb strings.Builder

	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(e.Code)
		sb.WriteString("] ")
	}

	sb.WriteString(e.Message)

	if e.Inner != nil {
		innerMsg := e.Inner.Error()
		if innerMsg != "" && innerMsg != e.Message {
			sb.WriteString(": ")
			sb.WriteString(innerMsg)
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Inner
}

// Is matches another AppError by code, so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithContext returns the error with an extra context entry.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ============================================================
// Error Constructors
// ============================================================

// New creates a new AppError.
func New(code, message string, category Category) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
	}
}

// Wrap wraps an existing error with context.
func Wrap(err error, code, message string, category Category) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, keep its context
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:     code,
			Message:  message,
			Category: category,
			Inner:    appErr,
			Context:  appErr.Context,
		}
	}

	return &AppError{
		Code:     code,
		Message:  message,
		Category: category,
		Inner:    err,
	}
}

// User creates a caller input error.
func User(code, message string) *AppError {
	return New(code, message, CategoryUser)
}

// Userf creates a caller input error with a formatted message.
func Userf(code, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...), CategoryUser)
}

// NotFound creates a not-found error for the named entity.
func NotFound(code, name string) *AppError {
	return New(code, fmt.Sprintf("%s not found", name), CategoryNotFound).
		WithContext("name", name)
}

// ============================================================
// Error Codes
// ============================================================

const (
	// Request errors
	CodeInvalidRequest = "INVALID_REQUEST"

	// Service errors
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Tool errors
	CodeToolNotFound = "TOOL_NOT_FOUND"
	CodeInvalidTool  = "INVALID_TOOL"

	// Config errors
	CodeUnknownConfigKey = "UNKNOWN_CONFIG_KEY"
	CodeConfigInvalid    = "INVALID_CONFIG"
	CodeConfigLoad       = "CONFIG_LOAD"
	CodeConfigSave       = "CONFIG_SAVE"

	// Catalog errors
	CodeCatalogLoad = "CATALOG_LOAD"
)

// ErrUnavailable is returned when the service is disabled or not initialised.
var ErrUnavailable = New(CodeServiceUnavailable, "NLWeb service is not available", CategoryUnavailable)

// ============================================================
// Helpers
// ============================================================

// GetCode extracts the code from an error, or "" for non-AppError errors.
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetCategory extracts the category from an error.
// Returns CategorySystem for non-AppError errors.
func GetCategory(err error) Category {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return CategorySystem
}

// IsCategory reports whether err is an AppError of the given category.
func IsCategory(err error, category Category) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Category == category
}
