// Package api is the HTTP adapter over the session registry: routing,
// request decoding, and the mapping from error kinds to status codes.
// All editing semantics live in internal/session; handlers here only
// translate.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/trackfix-data/trackfix/internal/monitoring"
	"github.com/trackfix-data/trackfix/internal/session"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	registry *session.Registry
}

func NewServer(registry *session.Registry) *Server {
	return &Server{registry: registry}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/track/upload", s.handleUpload)
	mux.HandleFunc("/api/track/undo", s.handleUndo)
	mux.HandleFunc("/api/track/redo", s.handleRedo)
	mux.HandleFunc("/api/track/reset", s.handleReset)
	mux.HandleFunc("/api/track/close", s.handleClose)
	mux.HandleFunc("/api/track/normalize/preview", s.handleNormalizePreview)
	mux.HandleFunc("/api/track/normalize/apply", s.handleNormalizeApply)
	mux.HandleFunc("/api/track/point/add", s.handleAddPoint)
	mux.HandleFunc("/api/track/time/update", s.handleUpdateTime)
	mux.HandleFunc("/api/track/time/recalculate", s.handleRecalculateTimes)
	mux.HandleFunc("/api/track/reroute", s.handleReroute)
	mux.HandleFunc("/api/track/trim", s.handleTrim)
	mux.HandleFunc("/api/track/merge", s.handleMerge)
	mux.HandleFunc("/api/track/export", s.handleExport)
	mux.HandleFunc("/api/track/stats", s.handleStats)
	mux.HandleFunc("/api/version", s.handleVersion)
	return mux
}
