package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bmlt-enabled/tomato/internal/metrics"
)

// Metrics records one HTTP request observation per call, labeled by the
// client_interface switcher/format so operators can see which upstream
// protocol operations are hot, mirroring the teacher's request-metrics
// middleware in internal/api/middleware.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			switcher := r.URL.Query().Get("switcher")
			if switcher == "" {
				switcher = "none"
			}
			format := r.PathValue("format")
			if format == "" {
				format = "none"
			}
			status := rw.status
			if status == 0 {
				status = http.StatusOK
			}

			m.HTTPRequestsTotal.WithLabelValues(switcher, format, statusClass(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(switcher, format).Observe(time.Since(start).Seconds())
		})
	}
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
