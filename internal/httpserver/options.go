package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/devopsplatform-web/internal/httpmw"
	"github.com/keithlinneman/devopsplatform-web/internal/log"
	"github.com/keithlinneman/devopsplatform-web/internal/probe"
)

// RouteRegistrar mounts a group of routes on the public router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

type Options struct {
	Logger       log.Logger
	Port         int
	Version      string // X-App-Version header, omitted when empty
	HSTS         bool
	ClientIPOpts httpmw.ClientIPOptions
	MaxBodyBytes int64 // default 64 KiB
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	Health       probe.Probe
	Readiness    probe.Probe

	// Routes are registered in order; the last one to set NotFound wins.
	Routes []RouteRegistrar
}
