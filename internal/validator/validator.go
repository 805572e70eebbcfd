// Package validator performs semantic validation of chat requests beyond the
// structural checks gin's JSON binding already applies.
package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aquanex/aquachat/internal/models"
)

var validate = validator.New()

// FieldError describes one failed field check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors aggregates every failed check in a request.
type ValidationErrors struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ValidateRequest checks a bound chat request: at least one message, every
// role in the accepted set (case-insensitive), every content non-blank.
func ValidateRequest(req *models.Request) error {
	var errs ValidationErrors

	if len(req.Messages) == 0 {
		errs.Errors = append(errs.Errors, FieldError{
			Field:   "messages",
			Message: "must contain at least one message",
		})
	}

	for i, m := range req.Messages {
		role := strings.ToLower(m.Role)
		if err := validate.Var(role, "required,oneof=system user assistant"); err != nil {
			errs.Errors = append(errs.Errors, FieldError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unsupported role %q", m.Role),
			})
		}
		if strings.TrimSpace(m.Content) == "" {
			errs.Errors = append(errs.Errors, FieldError{
				Field:   fmt.Sprintf("messages[%d].content", i),
				Message: "must not be blank",
			})
		}
	}

	if len(errs.Errors) > 0 {
		return &errs
	}
	return nil
}
