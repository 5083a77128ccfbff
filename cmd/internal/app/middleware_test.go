package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWithRequestLogging_PreservesStatusAndBody(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	h := WithRequestLogging(inner, slog.New(slog.DiscardHandler))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/artists", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", w.Code)
	}
	if w.Body.String() != "short and stout" {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestLoggingResponseWriter_PreservesFlusher(t *testing.T) {
	rec := httptest.NewRecorder()
	lrw := &loggingResponseWriter{ResponseWriter: rec, status: http.StatusOK}

	// httptest.ResponseRecorder implements http.Flusher; the wrapper must
	// forward it or WebSocket/SSE handlers break behind the middleware.
	var w http.ResponseWriter = lrw
	if _, ok := w.(http.Flusher); !ok {
		t.Fatalf("wrapper must expose Flusher")
	}
	lrw.Flush()
	if !rec.Flushed {
		t.Fatalf("Flush must reach the underlying writer")
	}
}

func TestWithMetrics_CountsRequests(t *testing.T) {
	m := NewMetrics()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := WithMetrics(inner, m)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/artists/nope", nil)
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "404"))
	if got != 3 {
		t.Fatalf("muse_http_requests_total{GET,404} = %v, want 3", got)
	}
}

func TestMetrics_DomainCounters(t *testing.T) {
	m := NewMetrics()
	m.RateLimitDenied("ip")
	m.RateLimitDenied("ip")
	m.AuthFailure("login")

	if got := testutil.ToFloat64(m.rateLimitDenied.WithLabelValues("ip")); got != 2 {
		t.Fatalf("rate limit counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.authFailures.WithLabelValues("login")); got != 1 {
		t.Fatalf("auth failure counter = %v, want 1", got)
	}
}
