// Package middleware provides the net/http middleware printdesk runs in
// front of every handler.
//
// This package includes:
//   - Prometheus HTTP metrics
//   - OpenTelemetry request tracing
//   - Request IDs and structured access logging
//   - Per-client rate limiting
//
// # Prometheus Metrics
//
// Metrics are labelled by the chi route pattern rather than the raw path so
// file names never become label values:
//   - printdesk_http_requests_total{method,route,status}
//   - printdesk_http_request_duration_seconds{method,route}
//   - printdesk_http_requests_in_flight
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Handler)
//
// # OpenTelemetry
//
// The tracing middleware starts a server span per request using the global
// tracer provider unless one is supplied:
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// Handlers reach the span through the request context, so outbound calls
// made with r.Context() inherit the trace.
//
// # Rate Limiting
//
//	limiter := middleware.NewRateLimiter(60, 10)
//	r.With(limiter.Handler).Post("/files", upload)
package middleware
