package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"martelinho/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Level: slog.LevelDebug})
	m := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.7" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=418", "client_ip=203.0.113.7", "path=/dashboard"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
	if m.TotalRequests() != 1 {
		t.Errorf("TotalRequests() = %d, want 1", m.TotalRequests())
	}
}

func TestMiddlewareKeepsIncomingID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("request id = %q, want abc-123", seen)
	}

	req.Header.Set(HeaderRequestID, strings.Repeat("x", 100))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("oversized id kept: %q", seen)
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
