package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrCorruptData         = errors.New("corrupt data")
	ErrValidation          = errors.New("validation failed")
	ErrUnsupportedProvider = errors.New("unsupported ai provider")
	ErrGenerationFailed    = errors.New("generation failed")
	ErrInvalidInput        = errors.New("invalid input")
)

// FieldError describes a single schema violation.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError aggregates every field that failed validation.
type ValidationError struct {
	Entity string       `json:"entity"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+": "+f.Message)
	}
	prefix := "validation failed"
	if e.Entity != "" {
		prefix = e.Entity + " " + prefix
	}
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
