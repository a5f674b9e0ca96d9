// Package pferrors provides the structured error type used across PageForge
// for category-based classification of build failures.
package pferrors

import (
	"fmt"
)

// Category classifies a PageForge error for propagation policy decisions.
type Category string

const (
	// Pre-build configuration errors, always fatal at startup.
	CategoryConfig Category = "config"

	// Content pipeline errors.
	CategoryContent  Category = "content"
	CategoryParse    Category = "parse"
	CategoryTemplate Category = "template"

	// Infrastructure errors.
	CategoryIO       Category = "io"
	CategoryBuild    Category = "build"
	CategoryInternal Category = "internal"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityFatal   Severity = "fatal"   // Stops execution
	SeverityError   Severity = "error"   // Error, but not fatal
	SeverityWarning Severity = "warning" // Continues with degraded functionality
)

// ContextFields carries structured context for an Error.
type ContextFields map[string]any

// Error is a structured error with category, severity, and context.
//
// Build-pass failures are wrapped in CategoryBuild carrying the first
// underlying cause plus the originating file or template identity in Context.
type Error struct {
	Category Category      `json:"category"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(category Category, severity Severity, message string) *Error {
	return &Error{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(err error, category Category, severity Severity, message string) *Error {
	return &Error{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks whether an error (anywhere in its chain) belongs to a category.
func IsCategory(err error, category Category) bool {
	for err != nil {
		if pe, ok := err.(*Error); ok && pe.Category == category {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal when
// the error carries no classification.
func GetCategory(err error) Category {
	if pe, ok := err.(*Error); ok {
		return pe.Category
	}
	return CategoryInternal
}
