package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, requests int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{Requests: requests, Window: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWithinWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("4th request allowed, want rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other client rejected")
	}
	if got := rl.GetMetrics().TotalHits; got != 1 {
		t.Errorf("TotalHits = %d, want 1", got)
	}
	if got := rl.RetryAfter("1.2.3.4"); got != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m", got)
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("request after window rejected")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 3)
	rl.Allow("a")
	rl.Allow("b")
	*now = now.Add(2 * time.Minute)
	rl.Allow("c")

	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Errorf("cleanupStaleEntries() = %d, want 2", removed)
	}
	if got := rl.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients() = %d, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}

func TestStopTwice(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
