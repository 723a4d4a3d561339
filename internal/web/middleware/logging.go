package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/facelens/internal/logging"
)

// RequestLogger logs every request with its status and latency. It must run
// after chi's RequestID middleware so the ID can be attached to the context
// used by handler log entries.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			r = r.WithContext(logging.ContextWithRequestID(r.Context(), requestID))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := logging.Fields{
				"request_id":    requestID,
				"method":        r.Method,
				"path":          r.URL.Path,
				"status":        status,
				"latency_ms":    time.Since(start).Milliseconds(),
				"ip":            r.RemoteAddr,
				"user_agent":    r.UserAgent(),
				"response_size": ww.BytesWritten(),
			}

			switch {
			case status >= 500:
				logging.Error(fields, "Server error")
			case status >= 400:
				logging.Warn(fields, "Client error")
			default:
				logging.Debug(fields, "Success")
			}
		})
	}
}
