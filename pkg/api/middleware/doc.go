// Package middleware provides the HTTP middleware chain for the circuitd API.
//
// Every middleware has the shape func(http.Handler) http.Handler and Chain
// composes them outermost first:
//
//	handler := middleware.Chain(mux,
//		middleware.PanicRecovery(logger),
//		middleware.RequestID(),
//		middleware.Logging(logger),
//		middleware.Metrics(registry, routeLabel),
//		middleware.RateLimit(limiter, clientIP, nil),
//		middleware.CORS(corsConfig),
//		middleware.BodySizeLimit(1<<20),
//	)
package middleware

import "net/http"

// Chain applies mws to h so that mws[0] sees the request first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
