package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerServiceSaved("abc").
		TriggerDashboardRefresh().
		TriggerSuccessNotification("Serviço salvo").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	if trigger == "" {
		t.Fatal("HX-Trigger header not set")
	}

	expectedParts := []string{
		`"service:saved"`,
		`"id":"abc"`,
		`"dashboard:refresh"`,
		`"show-notification"`,
		`"type":"success"`,
		`"duration":3000`,
	}
	for _, part := range expectedParts {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_DeletedAndError(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerServiceDeleted("xyz").
		TriggerErrorNotification("falhou").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"service:deleted"`, `"id":"xyz"`, `"type":"error"`, `"duration":5000`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
}

func TestHTMXResponseBuilder_Redirect(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/").Write(w)

	if got := w.Header().Get("HX-Redirect"); got != "/" {
		t.Errorf("HX-Redirect = %q, want /", got)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		build  *HTMXResponseBuilder
		status int
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest},
		{"internal", InternalServerError("x"), http.StatusInternalServerError},
		{"not found", NotFoundError("x"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.build.Write(w)
			if w.Code != tt.status {
				t.Errorf("Status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q, want text/html", ct)
			}
		})
	}
}

func TestErrorResponseEscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, `<script>alert("x")</script>`).Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Errorf("message not escaped: %s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("escaped message missing: %s", body)
	}
}
