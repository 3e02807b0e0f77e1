package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// Дымовой тест: мидлварь метрик проксирует ответ и не паникует
func TestWithMetrics_Smoke(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})

	h := WithMetrics(next)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status passthrough failed: got %d", rr.Code)
	}
	if rr.Body.String() != "nope" {
		t.Fatalf("body passthrough failed: %q", rr.Body.String())
	}
}
