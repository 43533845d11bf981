package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"martelinho/internal/log"
)

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: s.now().Sub(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: "storage unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
}
