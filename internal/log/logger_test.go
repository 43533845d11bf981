package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Format: "json", Level: slog.LevelDebug, Component: ComponentFinance})
	l.Info("aggregated", FieldTenantID, "t1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentFinance || rec[FieldTenantID] != "t1" {
		t.Fatalf("record = %v", rec)
	}

	buf.Reset()
	l.WithComponent(ComponentAuth).Warn("denied")
	if !strings.Contains(buf.String(), `"component":"auth"`) {
		t.Fatalf("component not switched: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	l := Discard().WithComponent(ComponentHTTP)
	var got *Logger
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("logger from context = %+v", got)
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithError(nil).WithTenant("t").WithService("id", "AC1", 100)
	if _, ok := f[FieldError]; ok {
		t.Error("nil error should not be recorded")
	}
	f.WithError(errors.New("boom"))
	if f[FieldError] != "boom" || f[FieldValueCents] != int64(100) {
		t.Errorf("fields = %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length mismatch")
	}
}
