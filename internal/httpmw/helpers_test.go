package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/devopsplatform-web/internal/log"
)

type logEntry struct {
	level string
	msg   string
	err   error
	kv    []any
}

// captureLogger records every call; With accumulates kv into children
// that share the same sink.
type captureLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	base    []any
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (c *captureLogger) record(level, msg string, err error, kv []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := append(append([]any{}, c.base...), kv...)
	*c.entries = append(*c.entries, logEntry{level: level, msg: msg, err: err, kv: all})
}

func (c *captureLogger) With(kv ...any) log.Logger {
	return &captureLogger{mu: c.mu, entries: c.entries, base: append(append([]any{}, c.base...), kv...)}
}
func (c *captureLogger) Debug(_ context.Context, msg string, kv ...any) {
	c.record("debug", msg, nil, kv)
}
func (c *captureLogger) Info(_ context.Context, msg string, kv ...any) {
	c.record("info", msg, nil, kv)
}
func (c *captureLogger) Warn(_ context.Context, msg string, kv ...any) {
	c.record("warn", msg, nil, kv)
}
func (c *captureLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	c.record("error", msg, err, kv)
}
func (c *captureLogger) Sync() error { return nil }

func (c *captureLogger) all() []logEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]logEntry(nil), *c.entries...)
}

// field returns the value for key in kv, or nil.
func field(kv []any, key string) any {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			return kv[i+1]
		}
	}
	return nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampledContext() context.Context {
	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}
