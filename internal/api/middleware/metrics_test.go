package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRoutePattern(t *testing.T) {
	var got string
	capture := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			got = routePattern(r)
		})
	}

	r := chi.NewRouter()
	r.Use(capture)
	r.Get("/api/data/search", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/data/search", nil))
	if got != "/api/data/search" {
		t.Errorf("matched route pattern = %q", got)
	}

	// Arbitrary scans must collapse into one label value, not one series
	// per probed path.
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/setup.php", nil))
	if got != "unmatched" {
		t.Errorf("unmatched path pattern = %q", got)
	}
}
