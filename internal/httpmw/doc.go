// Package httpmw provides HTTP middleware for the public listener.
//
// httpserver.NewHandler composes them outermost first: recover, security
// headers, version header, request ID, client IP, OTEL tracing, trace
// response headers, metrics, request logger, access log, then the chi
// router. Form values and user agents never reach the logs.
package httpmw
