package transport

import (
	"net/http"
	"strconv"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// envelope is the success body: a mensaje plus the named payload
type envelope map[string]interface{}

func respond(w http.ResponseWriter, status int, message string, payload envelope) {
	body := envelope{"mensaje": message}
	for k, v := range payload {
		body[k] = v
	}
	middleware.RespondWithJSON(w, status, body)
}

// decodeBody decodes and validates the request body, answering 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := middleware.DecodeAndValidate(r, dst); err != nil {
		logger.Debug("Request body rejected", zap.String("path", r.URL.Path), zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return false
	}
	return true
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation("identificador inválido").WithDetails(name, raw)
	}
	return id, nil
}

// queryInt reads an integer query parameter, returning def when absent
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("parámetro numérico inválido").WithDetails(key, raw)
	}
	return n, nil
}

// pagination reads ?pagina= and ?limite=
func pagination(r *http.Request) (int, int, error) {
	page, err := queryInt(r, "pagina", 1)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := queryInt(r, "limite", 0)
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}
