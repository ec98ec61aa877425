package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// StreamingTimeout bounds a file transfer without buffering it. The whole
// response must finish within maxDuration, and a transfer that writes
// nothing for idleTimeout is aborted. The connection write deadline is
// extended to maxDuration so the server-wide WriteTimeout does not cut
// large exports short.
func StreamingTimeout(maxDuration time.Duration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			_ = rc.SetWriteDeadline(time.Now().Add(maxDuration))

			iw := &idleWriter{ResponseWriter: w, rc: rc, idle: idleTimeout, cancel: cancel}
			iw.arm()
			defer iw.stop()

			next.ServeHTTP(iw, r.WithContext(ctx))
		})
	}
}

// idleWriter restarts its countdown on every write. When the countdown
// fires the request context is cancelled and pending writes fail.
type idleWriter struct {
	http.ResponseWriter
	rc     *http.ResponseController
	idle   time.Duration
	cancel context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
}

func (iw *idleWriter) arm() {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Reset(iw.idle)
		return
	}
	iw.timer = time.AfterFunc(iw.idle, func() {
		_ = iw.rc.SetWriteDeadline(time.Now())
		iw.cancel()
	})
}

func (iw *idleWriter) stop() {
	iw.mu.Lock()
	defer iw.mu.Unlock()

	if iw.timer != nil {
		iw.timer.Stop()
	}
}

func (iw *idleWriter) Write(b []byte) (int, error) {
	iw.arm()
	return iw.ResponseWriter.Write(b)
}

func (iw *idleWriter) Flush() {
	if f, ok := iw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (iw *idleWriter) Unwrap() http.ResponseWriter {
	return iw.ResponseWriter
}
