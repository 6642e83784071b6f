package log

import (
	"net/http"
	"time"
)

type loggingHandler struct {
	inner  http.Handler
	logger Logger
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// NewLoggingHandler wraps a handler to log method, path, status and elapsed time per request
func NewLoggingHandler(inner http.Handler, logger Logger) http.Handler {
	return &loggingHandler{inner: inner, logger: logger}
}

func (h *loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.inner.ServeHTTP(recorder, r)
	h.logger.Info("request served",
		"method", r.Method,
		"path", r.URL.Path,
		"status", recorder.status,
		"elapsed", time.Since(start))
}
