// Package healthhttp serves the health reporter over HTTP at GET /health.
package healthhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/devopsplatform-web/internal/health"
	"github.com/keithlinneman/devopsplatform-web/internal/log"
	"github.com/keithlinneman/devopsplatform-web/internal/xerrors"
)

// Reporter is satisfied by *health.Reporter.
type Reporter interface {
	Report(ctx context.Context, mode health.Mode, started time.Time) health.Response
}

// Recorder is satisfied by *metrics.ServerMetrics.
type Recorder interface {
	ObserveHealthReport(mode string, code int)
}

// API implements httpserver.RouteRegistrar for the health endpoint.
type API struct {
	Reporter Reporter
	Metrics  Recorder
	now      func() time.Time
}

func NewAPI(reporter Reporter, rec Recorder) *API {
	return &API{
		Reporter: reporter,
		Metrics:  rec,
		now:      time.Now,
	}
}

func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/health", api.serveHealth)
}

func (api *API) serveHealth(w http.ResponseWriter, r *http.Request) {
	started := api.now()
	ctx := r.Context()

	mode := health.ModeFromQuery(r.URL.Query())
	resp := api.Reporter.Report(ctx, mode, started)

	var (
		body []byte
		err  error
	)
	if resp.Pretty {
		body, err = json.MarshalIndent(resp.Body, "", "    ")
	} else {
		body, err = json.Marshal(resp.Body)
	}
	if err != nil {
		log.FromContext(ctx).Error(ctx, xerrors.Wrap(err, "encode health response"), "health response encoding failed",
			"mode", mode.String(),
		)
		resp.Status = http.StatusInternalServerError
		body = []byte(`{"status":"error"}`)
	}

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))

	if api.Metrics != nil {
		api.Metrics.ObserveHealthReport(mode.String(), resp.Status)
	}
}
