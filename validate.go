package gatekeeper

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	})
	return validate
}

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists the fields that failed validation. It matches
// ErrInvalidRequest with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidRequest.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrInvalidRequest.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// Validate checks the request shape: a well-formed email and either a
// password or a token.
func (r LoginRequest) Validate() error {
	err := requestValidator().Struct(r)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{}
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: describeTag(fe),
		})
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when token is absent"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
