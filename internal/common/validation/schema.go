// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema, safe for concurrent use.
type Schema struct {
	schema *gojsonschema.Schema
}

// CompileSchema compiles a JSON schema held as a Go map.
func CompileSchema(schemaMap map[string]interface{}) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// Validate checks doc against the schema. The returned error is only set
// when doc cannot be loaded at all; schema violations land in the result.
func (s *Schema) Validate(doc interface{}) (*ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldPath(desc.Field()),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// ValidateVariables compiles schemaMap and validates doc in one step.
func ValidateVariables(schemaMap map[string]interface{}, doc interface{}) (*ValidationResult, error) {
	if len(schemaMap) == 0 {
		return &ValidationResult{Valid: true}, nil
	}
	s, err := CompileSchema(schemaMap)
	if err != nil {
		return nil, err
	}
	return s.Validate(doc)
}

// fieldPath turns gojsonschema's "(root)" and "a.0.b" into "a[0].b".
func fieldPath(field string) string {
	if field == "(root)" {
		return ""
	}
	parts := strings.Split(field, ".")
	var b strings.Builder
	for i, p := range parts {
		if isIndex(p) {
			b.WriteString("[" + p + "]")
			continue
		}
		if i > 0 {
			b.WriteString(".")
		}
		b.WriteString(p)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var taskTypePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// ValidateTaskType checks a Zeebe task type is lower-kebab-case.
func ValidateTaskType(taskType string) error {
	if !taskTypePattern.MatchString(taskType) {
		return fmt.Errorf("task type %q must be lower-kebab-case (e.g., search-listings)", taskType)
	}
	return nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		if err.Field == "" {
			messages[i] = err.Message
			continue
		}
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	return len(vr.GetErrorsForField(field)) > 0
}

// GetErrorsForField returns errors for a field and anything nested under it.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
