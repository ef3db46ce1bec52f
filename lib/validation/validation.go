package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPageSize caps the page size accepted by list endpoints.
const MaxPageSize = 100

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidatePagination validates pagination parameters to ensure they are within
// acceptable ranges. Returns an error if the parameters are invalid.
func ValidatePagination(page, size int) error {
	if page < 1 {
		return fmt.Errorf("page must be greater than 0")
	}
	if size < 1 || size > MaxPageSize {
		return fmt.Errorf("size must be between 1 and %d", MaxPageSize)
	}
	return nil
}

// FieldError names the first field that failed validation.
type FieldError struct {
	Field string
	Rule  string
	Value any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s failed %q validation (value %v)", e.Field, e.Rule, e.Value)
}

// Struct validates v using its validate tags. The first failure is returned
// as a *FieldError.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{
			Field: lowerFirst(fe.Field()),
			Rule:  fe.Tag(),
			Value: fe.Value(),
		}
	}
	return fmt.Errorf("failed to validate %T: %w", v, err)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// WriteError writes an error response to the HTTP response writer.
// Extra fields, such as the conflicting field and value, are merged into the body.
func WriteError(w http.ResponseWriter, err error, status int, extra ...map[string]any) {
	body := map[string]any{
		"error": err.Error(),
	}
	for _, e := range extra {
		for k, v := range e {
			body[k] = v
		}
	}
	WriteJSON(w, body, status)
}

// WriteJSON encodes v as the JSON response body.
func WriteJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}
