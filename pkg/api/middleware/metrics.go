package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder is an interface for recording HTTP metrics
type MetricsRecorder interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	RecordResponseSize(method, path string, size float64)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()
}

// RouteLabelFunc maps a request to a low-cardinality path label, normally the
// matched route pattern rather than the raw URL.
type RouteLabelFunc func(*http.Request) string

// Metrics creates middleware that tracks HTTP request metrics. A nil label
// function uses the raw URL path.
func Metrics(recorder MetricsRecorder, label RouteLabelFunc) func(http.Handler) http.Handler {
	if label == nil {
		label = func(r *http.Request) string { return r.URL.Path }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder.IncHTTPRequestsInFlight()
			defer recorder.DecHTTPRequestsInFlight()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			path := label(r)
			recorder.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.statusCode), time.Since(start))
			recorder.RecordResponseSize(r.Method, path, float64(rec.bytesWritten))
		})
	}
}
