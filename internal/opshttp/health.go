package opshttp

import (
	"net/http"

	"github.com/keithlinneman/devopsplatform-web/internal/probe"
)

// HealthzHandler: 200 OK when probe passes, 503 otherwise (with reason)
func HealthzHandler(p probe.Probe) http.HandlerFunc {
	return probeHandler(p, "ok\n")
}

// ReadyzHandler: 200 OK when probe passes, 503 otherwise (with reason)
func ReadyzHandler(p probe.Probe) http.HandlerFunc {
	return probeHandler(p, "ready\n")
}

// ChecksHandler: 200 OK when every application check passes, 503 naming the
// failed ones otherwise
func ChecksHandler(p probe.Probe) http.HandlerFunc {
	return probeHandler(p, "checks ok\n")
}

func probeHandler(p probe.Probe, okBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		if p != nil {
			if err := p.Check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(okBody))
	}
}
