package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/plans", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	t.Run("wildcard echoes origin without credentials", func(t *testing.T) {
		rec := serveCORS([]string{"*"}, http.MethodGet, "https://evil.example")
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "https://evil.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("explicit origin allows credentials", func(t *testing.T) {
		rec := serveCORS([]string{"https://altar.example"}, http.MethodGet, "https://altar.example")
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Altar-Session-ID")
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		rec := serveCORS([]string{"https://altar.example"}, http.MethodGet, "https://other.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := serveCORS([]string{"*"}, http.MethodOptions, "https://altar.example")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
