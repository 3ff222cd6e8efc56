package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mcoot/teamroster/internal/metrics"
)

// Metrics records request counts and latencies by route template
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := NewResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			metrics.RecordHTTPRequest(RouteTemplate(r), r.Method, strconv.Itoa(wrapped.status), time.Since(start))
		})
	}
}
