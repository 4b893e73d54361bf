package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"gardem-catalog/internal/apperror"

	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Message   string                 `json:"mensaje"`
	Details   map[string]interface{} `json:"detalles,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

var codeByStatus = map[int]apperror.Code{
	http.StatusBadRequest:          apperror.CodeValidation,
	http.StatusUnauthorized:        apperror.CodeUnauthorized,
	http.StatusForbidden:           apperror.CodeForbidden,
	http.StatusNotFound:            apperror.CodeNotFound,
	http.StatusConflict:            apperror.CodeConflict,
	http.StatusTooManyRequests:     apperror.CodeRateLimit,
	http.StatusInternalServerError: apperror.CodeInternal,
}

func errorCodeFor(statusCode int) string {
	if code, ok := codeByStatus[statusCode]; ok {
		return string(code)
	}
	return http.StatusText(statusCode)
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	writeError(w, statusCode, ErrorResponse{
		Error:   errorCodeFor(statusCode),
		Message: message,
		Details: details,
	})
}

func writeError(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	response.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// RespondWithAppError maps a service error onto its HTTP status. Errors that
// are not typed are reported as internal, and internal causes never reach
// the client.
func RespondWithAppError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	typed := apperror.As(err)
	if typed == nil {
		typed = apperror.Internal(err, "unclassified error")
	}

	meta := apperror.MetadataFor(typed.Code())
	response := ErrorResponse{
		Error:     string(typed.Code()),
		Message:   typed.Message(),
		Retryable: meta.Retryable,
	}
	if meta.DetailsAllowed {
		response.Details = typed.Details()
	}

	if typed.Code() == apperror.CodeInternal {
		response.Message = meta.PublicMessage
		logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
	} else if response.Message == "" {
		response.Message = meta.PublicMessage
	}

	writeError(w, meta.HTTPStatus, response)
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	details := make(map[string]interface{})
	details["errores_validacion"] = errors

	RespondWithErrorDetails(w, http.StatusBadRequest, "datos inválidos", details)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, apperror.MetadataFor(apperror.CodeInternal).PublicMessage)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
