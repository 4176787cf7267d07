package opshttp

import (
	"net/http"

	"github.com/keithlinneman/devopsplatform-web/internal/probe"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	// AllowPublic skips the private-network guard (tests, sidecar setups).
	AllowPublic bool
	Health      probe.Probe
	Readiness   probe.Probe
	// Checks reports application checks for operators. Unlike Health it may
	// fail without the process needing a restart.
	Checks       probe.Probe
	UseRecoverMW bool
	OnPanic      func() // Optional callback for when panics are recovered, e.g. to increment a prometheus counter
}
