package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by their JSON names, which is what clients send.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// RespondWithDecodeError answers a DecodeAndValidate failure with field
// errors when validation failed, or a generic 400 when the body was not JSON.
func RespondWithDecodeError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		RespondWithValidationErrors(w, FormatValidationErrors(err))
		return
	}
	RespondWithError(w, http.StatusBadRequest, "cuerpo de la solicitud inválido")
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"campo"`
	Message string `json:"mensaje"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return errors
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "este campo es obligatorio"
	case "email":
		return "formato de email inválido"
	case "min":
		return "debe tener al menos " + e.Param() + " caracteres"
	case "max":
		return "debe tener como máximo " + e.Param() + " caracteres"
	case "gte":
		return "debe ser mayor o igual a " + e.Param()
	case "lte":
		return "debe ser menor o igual a " + e.Param()
	case "gt":
		return "debe ser mayor que " + e.Param()
	case "lt":
		return "debe ser menor que " + e.Param()
	case "oneof":
		return "debe ser uno de: " + e.Param()
	case "uuid":
		return "debe ser un identificador válido"
	case "url":
		return "debe ser una url válida"
	case "hexcolor":
		return "debe ser un color hexadecimal"
	default:
		return "valor inválido"
	}
}
