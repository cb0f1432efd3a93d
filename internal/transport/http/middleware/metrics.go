package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"devcycle/internal/platform/metrics"
)

// Metrics records request counts and latency by chi route pattern, so ids
// in the path do not explode label cardinality.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			collector.Record(route, r.Method, recorder.status, time.Since(start))
		})
	}
}
