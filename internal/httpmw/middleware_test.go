package httpmw

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mw("outer"), nil, mw("inner"))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "inner", "handler"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := serve(SecurityHeaders(SecurityHeadersOptions{})(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "form-action 'self'") || !strings.Contains(csp, "style-src 'self'") {
		t.Errorf("CSP = %q", csp)
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must be opt-in")
	}

	rec = serve(SecurityHeaders(SecurityHeadersOptions{HSTS: true})(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing when enabled")
	}
}

func TestSecurityHeaders_SurviveErrors(t *testing.T) {
	h := SecurityHeaders(SecurityHeadersOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("headers must be set on error responses too")
	}
}

func TestVersionHeader(t *testing.T) {
	rec := serve(VersionHeader("2.1.3")(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("X-App-Version"); got != "2.1.3" {
		t.Fatalf("X-App-Version = %q", got)
	}
	rec = serve(VersionHeader("")(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))
	if _, ok := rec.Header()["X-App-Version"]; ok {
		t.Fatal("empty version should not set the header")
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := serve(h, req)
	if seen != "abc-123" || rec.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("propagated id = %q / %q", seen, rec.Header().Get("X-Request-Id"))
	}

	for _, bad := range []string{"", "has space", "new\nline", strings.Repeat("a", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if bad != "" {
			req.Header["X-Request-Id"] = []string{bad}
		}
		serve(h, req)
		if seen == bad || len(seen) != 32 {
			t.Errorf("input %q: got id %q, want fresh 32-char hex", bad, seen)
		}
	}
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatal("expected empty id")
	}
	if WithRequestID(context.Background(), "") != context.Background() {
		t.Fatal("empty id should not wrap the context")
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("declared oversize: status = %d, want 413", rec.Code)
	}

	// unknown length is caught while reading
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("0123456789")))
	req.ContentLength = -1
	serve(h, req)
	var mbe *http.MaxBytesError
	if !errors.As(readErr, &mbe) {
		t.Fatalf("read error = %v, want *http.MaxBytesError", readErr)
	}

	readErr = nil
	serve(h, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	if readErr != nil {
		t.Fatalf("small body: %v", readErr)
	}
}

func TestTraceResponseHeaders(t *testing.T) {
	h := TraceResponseHeaders("", "")(okHandler())

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("no span: header should be absent")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(sampledContext())
	rec = serve(h, req)
	if got := rec.Header().Get("X-Trace-Id"); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("X-Trace-Id = %q", got)
	}
	if got := rec.Header().Get("X-Span-Id"); got != "00f067aa0ba902b7" {
		t.Fatalf("X-Span-Id = %q", got)
	}

	unsampled := trace.ContextWithSpanContext(context.Background(),
		trace.SpanContextFromContext(sampledContext()).WithTraceFlags(0))
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(unsampled))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("unsampled span: header should be absent")
	}
}

func TestAnnotateHTTPRoute(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx, span := tp.Tracer("test").Start(req.Context(), "server")
			defer span.End()
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Use(AnnotateHTTPRoute)
	r.Get("/contact", func(w http.ResponseWriter, r *http.Request) {})

	serve(r, httptest.NewRequest(http.MethodGet, "/contact", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name() != "GET /contact" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[1].Name() != "GET unmatched" {
		t.Errorf("unmatched span name = %q", spans[1].Name())
	}
}
