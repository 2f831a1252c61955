package middlewares

import (
	"net/http"

	"github.com/vtokenlabs/liquid-staking-service/internal/observability/tracing"
)

const traceIdHeader = "X-Trace-Id"

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.AttachTracingIntoContext(r.Context())
		w.Header().Set(traceIdHeader, tracing.TraceId(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
