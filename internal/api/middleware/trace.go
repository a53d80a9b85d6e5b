package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// TraceMiddleware assigns every request a trace ID and a logger carrying
// it. A well-formed incoming X-Trace-ID is reused; otherwise a new ID is
// generated. The ID is echoed in the response header.
//
// Apply it before any middleware that logs or writes errors.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(shared.TraceIDHeader)
			if _, err := uuid.Parse(traceID); err != nil {
				traceID = shared.NewTraceID()
			}

			l := base.With(slog.String("trace_id", traceID))
			ctx := shared.WithTraceID(r.Context(), traceID)
			ctx = logger.WithLogger(ctx, l)

			w.Header().Set(shared.TraceIDHeader, traceID)

			l.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
