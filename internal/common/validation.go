package common

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator collects configuration rule violations
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
			// later rules usually assume earlier ones passed
			break
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required rejects empty strings.
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

func HTTPURL(fieldName string, value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	u, err := url.Parse(str)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be an http(s) URL"}
	}
	return nil
}

func Positive(fieldName string, value interface{}) *ValidationError {
	switch n := value.(type) {
	case int:
		if n <= 0 {
			return &ValidationError{Field: fieldName, Value: value, Message: "must be positive"}
		}
	case time.Duration:
		if n <= 0 {
			return &ValidationError{Field: fieldName, Value: value, Message: "must be positive"}
		}
	}
	return nil
}

func NonNegative(fieldName string, value interface{}) *ValidationError {
	if n, ok := value.(int); ok && n < 0 {
		return &ValidationError{Field: fieldName, Value: value, Message: "must not be negative"}
	}
	return nil
}

// OneOf builds a rule accepting only the given strings (case-insensitive).
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, _ := value.(string)
		for _, a := range allowed {
			if strings.EqualFold(str, a) {
				return nil
			}
		}
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be one of " + strings.Join(allowed, ", "),
		}
	}
}

var fieldKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// FieldKey requires snake_case identifiers, the shape the prompt and JSON keys use.
func FieldKey(fieldName string, value interface{}) *ValidationError {
	str, _ := value.(string)
	if !fieldKeyRegex.MatchString(str) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a snake_case key"}
	}
	return nil
}
