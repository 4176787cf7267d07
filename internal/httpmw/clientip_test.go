package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		hops       int
		want       string
		keepsProto bool
	}{
		{"public peer ignores xff", "198.51.100.1:1234", "1.2.3.4", 1, "198.51.100.1", false},
		{"private peer without hops ignores xff", "10.0.0.5:1234", "1.2.3.4", 0, "10.0.0.5", false},
		{"one hop takes rightmost", "10.0.0.5:1234", "9.9.9.9, 1.2.3.4", 1, "1.2.3.4", true},
		{"two hops", "10.0.0.5:1234", "9.9.9.9, 1.2.3.4", 2, "9.9.9.9", true},
		{"too few entries fails closed", "10.0.0.5:1234", "1.2.3.4", 3, "10.0.0.5", false},
		{"garbage entry falls back", "10.0.0.5:1234", "not-an-ip", 1, "10.0.0.5", true},
		{"loopback proxy trusted", "127.0.0.1:1234", "1.2.3.4", 1, "1.2.3.4", true},
		{"no xff", "10.0.0.5:1234", "", 1, "10.0.0.5", true},
		{"malformed remote", "nonsense", "", 0, "nonsense", false},
		{"unparseable host", "host:80", "", 0, "0.0.0.0", false},
		{"empty remote", "", "", 0, "0.0.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			r.Header.Set("X-Forwarded-Proto", "https")

			if got := clientAddr(r, tt.hops); got != tt.want {
				t.Fatalf("clientAddr = %q, want %q", got, tt.want)
			}
			if tt.remote != "nonsense" && tt.remote != "" && tt.remote != "host:80" {
				if kept := r.Header.Get("X-Forwarded-Proto") != ""; kept != tt.keepsProto {
					t.Fatalf("X-Forwarded-Proto kept = %v, want %v", kept, tt.keepsProto)
				}
			}
		})
	}
}

func TestClientIP_Middleware(t *testing.T) {
	var got string
	h := ClientIPWithOptions(ClientIPOptions{TrustedHops: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "172.16.0.9:443"
	r.Header.Set("X-Forwarded-For", "203.0.113.50")
	serve(h, r)

	if got != "203.0.113.50" {
		t.Fatalf("client ip = %q", got)
	}
}
