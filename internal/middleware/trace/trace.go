// Package trace tags every request with an id and logs its completion.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"martelinho/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	HeaderRequestID = "X-Request-ID"
	maxRequestIDLen = 64
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.StructuredLogger
	total     atomic.Int64
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.Discard()
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentTrace)),
	}
}

// Middleware returns HTTP middleware for request tracing. An incoming
// X-Request-ID is kept when it looks sane.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = GenerateRequestID()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, requestID)

		m.total.Add(1)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		m.logger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Flush keeps streaming responses working behind the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromRequest is the request id of r, for log.RequestIDMiddleware.
func FromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}

// TotalRequests is the number of requests seen since start.
func (m *Middleware) TotalRequests() int64 {
	return m.total.Load()
}
