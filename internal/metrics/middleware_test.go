package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}

	_, _ = sw.Write([]byte("hello"))
	_, _ = sw.Write([]byte(" world"))
	if sw.status != http.StatusOK {
		t.Fatalf("status = %d, want 200 on implicit write", sw.status)
	}
	if sw.n != 11 {
		t.Fatalf("n = %d, want 11", sw.n)
	}

	sw2 := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	sw2.WriteHeader(http.StatusTeapot)
	if sw2.status != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", sw2.status)
	}
}

func TestMiddleware_ChiRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	serve(r, http.MethodGet, "/health?ready")

	if v := labeledCounter(t, m.reg, "http_requests_total", map[string]string{
		"method": "GET", "route": "/health", "status": "503",
	}); v != 1 {
		t.Fatalf("http_requests_total = %v, want 1", v)
	}
	if v := labeledCounter(t, m.reg, "http_errors_total", map[string]string{
		"method": "GET", "route": "/health",
	}); v != 1 {
		t.Fatalf("http_errors_total = %v, want 1", v)
	}
}

func TestMiddleware_NoWriteDefaultsTo200(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serve(h, http.MethodGet, "/about")

	if v := labeledCounter(t, m.reg, "http_requests_total", map[string]string{
		"method": "GET", "route": "/about", "status": "200",
	}); v != 1 {
		t.Fatalf("http_requests_total = %v, want 1", v)
	}
	if f := gatherMetric(t, m.reg, "http_errors_total"); f != nil {
		t.Fatal("http_errors_total should be empty after a 200")
	}
}

func TestMiddleware_AnnotatedRoute(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/some/random/path", nil)
	h.ServeHTTP(rec, req.WithContext(WithRoute(req.Context(), "notfound")))

	if v := labeledCounter(t, m.reg, "http_requests_total", map[string]string{
		"method": "GET", "route": "notfound", "status": "404",
	}); v != 1 {
		t.Fatalf("http_requests_total = %v, want 1", v)
	}
}

func TestMiddleware_InflightReturnsToZero(t *testing.T) {
	m := New()
	var during float64
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = gatherMetric(t, m.reg, "http_inflight_requests").GetMetric()[0].GetGauge().GetValue()
	}))
	serve(h, http.MethodGet, "/")

	if during != 1 {
		t.Fatalf("inflight during request = %v, want 1", during)
	}
	if v := gatherMetric(t, m.reg, "http_inflight_requests").GetMetric()[0].GetGauge().GetValue(); v != 0 {
		t.Fatalf("inflight after = %v, want 0", v)
	}
}

func TestMiddleware_ResponseSizeAndPassthrough(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "1")
		_, _ = w.Write([]byte("0123456789"))
	}))
	rec := serve(h, http.MethodGet, "/")

	if rec.Header().Get("X-Test") != "1" || rec.Body.String() != "0123456789" {
		t.Fatal("response not passed through")
	}
	f := gatherMetric(t, m.reg, "http_response_size_bytes")
	if got := f.GetMetric()[0].GetHistogram().GetSampleSum(); got != 10 {
		t.Fatalf("size sum = %v, want 10", got)
	}
}

func TestTraceExemplar(t *testing.T) {
	if traceExemplar(context.Background()) != nil {
		t.Fatal("expected nil exemplar without a span")
	}

	tid, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	sid, _ := trace.SpanIDFromHex("0102030405060708")

	unsampled := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid}))
	if traceExemplar(unsampled) != nil {
		t.Fatal("expected nil exemplar for unsampled span")
	}

	sampled := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled}))
	ex := traceExemplar(sampled)
	if ex["trace_id"] != tid.String() {
		t.Fatalf("trace_id = %q, want %q", ex["trace_id"], tid.String())
	}
}
