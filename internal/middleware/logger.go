package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

type Log interface {
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// RequestLogger logs every request once it has been served, at a level
// chosen by the response status.
func RequestLogger(log Log) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.Int("body_size", ww.BytesWritten()),
			}
			if r.URL.RawQuery != "" {
				fields = append(fields, zap.String("query", r.URL.RawQuery))
			}

			const msg = "HTTP Request"
			switch {
			case status >= 500:
				log.Error(msg, fields...)
			case status >= 400:
				log.Warn(msg, fields...)
			default:
				log.Info(msg, fields...)
			}
		})
	}
}
