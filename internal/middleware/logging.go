package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	maxCapturedBody = 4096
)

// errorBody extracts error details from JSON error responses.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"bytes", wrapped.written,
			"duration_ms", time.Since(started).Milliseconds(),
			"client_ip", ClientIP(r),
		}

		if wrapped.status >= 400 {
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}
			attrs = append(attrs, errorAttrs(wrapped.Header().Get("Content-Type"), wrapped.body.Bytes())...)
		}

		switch {
		case wrapped.status >= 500:
			slog.Error("request", attrs...)
		case wrapped.status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	})
}

// errorAttrs reads the error code and message from a JSON envelope, or the
// whole body for the plain-text responses of the download gate.
func errorAttrs(contentType string, body []byte) []any {
	if len(body) == 0 {
		return nil
	}

	if strings.HasPrefix(contentType, "text/plain") {
		return []any{"error_message", strings.TrimSpace(string(body))}
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == nil {
		return nil
	}

	attrs := []any{"error_code", parsed.Error.Code, "error_message", parsed.Error.Message}
	if parsed.Error.Details != "" {
		attrs = append(attrs, "error_details", parsed.Error.Details)
	}
	return attrs
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	body        bytes.Buffer
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.status = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	// Only error bodies are kept, and only their head.
	if rw.status >= 400 && rw.body.Len() < maxCapturedBody {
		remaining := maxCapturedBody - rw.body.Len()
		if len(b) < remaining {
			remaining = len(b)
		}
		rw.body.Write(b[:remaining])
	}

	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
