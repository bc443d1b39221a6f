package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	apperrors "deal-wizard/internal/common/errors"
)

// Error codes attached to field errors.
const (
	CodeRequired     = "REQUIRED_FIELD_MISSING"
	CodeOutOfRange   = "OUT_OF_RANGE"
	CodeInvalidValue = "INVALID_VALUE"
	CodeInvalidDate  = "INVALID_DATE"
	CodeSchema       = "SCHEMA_VIOLATION"
)

// DateLayout is the accepted offer date format.
const DateLayout = "2006-01-02"

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewResult returns an empty, valid result.
func NewResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// Add records a field error.
func (vr *ValidationResult) Add(field, message, code string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Message: message, Code: code})
	vr.Valid = false
}

// Required records a missing-value error when present is false.
func (vr *ValidationResult) Required(field string, present bool) {
	if !present {
		vr.Add(field, "required field missing", CodeRequired)
	}
}

// NonEmpty requires a string with at least one non-space character.
func (vr *ValidationResult) NonEmpty(field, value string) {
	vr.Required(field, strings.TrimSpace(value) != "")
}

// Range checks min <= v <= max for an optional value.
func (vr *ValidationResult) Range(field string, v *float64, min, max float64) {
	if v == nil {
		return
	}
	if *v < min || *v > max {
		vr.Add(field, fmt.Sprintf("value must be between %g and %g", min, max), CodeOutOfRange)
	}
}

// NonNegative checks an optional integer.
func (vr *ValidationResult) NonNegative(field string, v *int) {
	if v != nil && *v < 0 {
		vr.Add(field, "value must not be negative", CodeOutOfRange)
	}
}

// Date checks that a non-empty value parses with DateLayout.
func (vr *ValidationResult) Date(field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		vr.Add(field, "date must use YYYY-MM-DD", CodeInvalidDate)
	}
}

// Merge appends the errors of other.
func (vr *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for _, e := range other.Errors {
		vr.Add(e.Field, e.Message, e.Code)
	}
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, 0, len(vr.Errors))
	for _, err := range vr.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var out []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field {
			out = append(out, err)
		}
	}
	return out
}

// FieldIssues converts the result for the error model.
func (vr *ValidationResult) FieldIssues() []apperrors.FieldIssue {
	issues := make([]apperrors.FieldIssue, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		issues = append(issues, apperrors.FieldIssue{Field: e.Field, Message: e.Message, Code: e.Code})
	}
	return issues
}

// ValidateDocument validates doc against a JSON schema. Schema violations are
// returned as field errors; a broken schema is returned as an error.
func ValidateDocument(schema []byte, doc interface{}) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	vr := NewResult()
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "(root)" {
			if prop, ok := desc.Details()["property"].(string); ok {
				field = prop
			}
		}
		vr.Add(field, desc.Description(), CodeSchema)
	}
	return vr, nil
}
