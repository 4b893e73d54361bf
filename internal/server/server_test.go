package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedHealth map[string]string

func (f fixedHealth) Health() map[string]string { return f }

func TestHealthHandler(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	check := func(db HealthChecker) (int, map[string]interface{}) {
		w := httptest.NewRecorder()
		healthHandler(db, client)(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		return w.Code, body
	}

	code, body := check(fixedHealth{"status": "up", "open_connections": "3"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "up", body["status"])
	assert.Equal(t, "up", body["redis"])

	code, body = check(fixedHealth{"status": "down", "error": "db down: refused"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "down", body["status"])

	// A Redis outage degrades the report without failing it.
	mr.Close()
	code, body = check(fixedHealth{"status": "up"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "down", body["redis"])
}
