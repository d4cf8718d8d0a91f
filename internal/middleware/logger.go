// AngelaMos | 2026
// logger.go

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const logFieldsKey contextKey = "log_fields"

// logFields collects values that inner middleware learn about a request
// after the logger has already wrapped it.
type logFields struct {
	account string
	traceID string
}

func fieldsFrom(ctx context.Context) *logFields {
	f, _ := ctx.Value(logFieldsKey).(*logFields) //nolint:errcheck // absent outside Logger
	return f
}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			fields := &logFields{}
			r = r.WithContext(context.WithValue(r.Context(), logFieldsKey, fields))

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				level := slog.LevelInfo
				switch {
				case status >= 500:
					level = slog.LevelError
				case status >= 400:
					level = slog.LevelWarn
				}

				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
					"request_id", GetRequestID(r.Context()),
				}
				if fields.account != "" {
					attrs = append(attrs, "api_account_id", fields.account)
				}
				if fields.traceID != "" {
					attrs = append(attrs, "trace_id", fields.traceID)
				}

				logger.Log(r.Context(), level, "http request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
