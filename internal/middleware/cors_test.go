package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

// newCORSRouter mirrors the server wiring: mux only runs middleware once a
// route matches, so preflights need the OPTIONS catch-all to reach CORS.
func newCORSRouter(origins []string) *mux.Router {
	router := mux.NewRouter()
	router.Use(CORS(origins))
	router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	router.HandleFunc("/api/reports", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return router
}

func TestCORSPreflightAnswered(t *testing.T) {
	router := newCORSRouter([]string{"http://app.local"})

	r := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	r.Header.Set("Origin", "http://app.local")
	r.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://app.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSPreflightUnknownOriginGetsNoHeaders(t *testing.T) {
	router := newCORSRouter([]string{"http://app.local"})

	r := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	r.Header.Set("Origin", "http://evil.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowedOriginOnPlainRequest(t *testing.T) {
	router := newCORSRouter([]string{"http://app.local"})

	r := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	r.Header.Set("Origin", "http://app.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://app.local", w.Header().Get("Access-Control-Allow-Origin"))
}
