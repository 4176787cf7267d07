package health

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/keithlinneman/devopsplatform-web/internal/probe"
	"github.com/keithlinneman/devopsplatform-web/internal/sysinfo"
	"github.com/keithlinneman/devopsplatform-web/internal/xerrors"
)

// Sampler supplies live process and host measurements.
type Sampler interface {
	Memory() sysinfo.Memory
	Host() sysinfo.Host
}

// Reporter evaluates health checks and renders mode-specific responses.
type Reporter struct {
	cfg      *Config
	sampler  Sampler
	writable func(dir string) bool
	now      func() time.Time
}

type Option func(*Reporter)

func WithSampler(s Sampler) Option {
	return func(r *Reporter) {
		if s != nil {
			r.sampler = s
		}
	}
}

// WithWritableFunc replaces the log directory writability check.
func WithWritableFunc(fn func(dir string) bool) Option {
	return func(r *Reporter) {
		if fn != nil {
			r.writable = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

func NewReporter(cfg *Config, opts ...Option) *Reporter {
	if cfg == nil {
		cfg = &Config{}
	}
	r := &Reporter{
		cfg:      cfg,
		sampler:  sysinfo.New(),
		writable: dirWritable,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Response is a rendered health result ready for transport.
type Response struct {
	Status int
	Body   any
	// Pretty asks the transport to indent the JSON body.
	Pretty bool
}

type SimpleBody struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type ReadinessBody struct {
	Status    string    `json:"status"`
	Checks    Readiness `json:"checks"`
	Timestamp string    `json:"timestamp"`
}

type LivenessBody struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	// Uptime is whole seconds since the request started.
	Uptime int64 `json:"uptime"`
}

type Snapshot struct {
	Timestamp   string      `json:"timestamp"`
	Application Application `json:"application"`
	System      System      `json:"system"`
	Checks      Checks      `json:"checks"`
	Status      string      `json:"status"`
}

type Application struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	Environment    string      `json:"environment"`
	RuntimeVersion string      `json:"go_version"`
	MemoryUsage    MemoryUsage `json:"memory_usage"`
}

type MemoryUsage struct {
	Current uint64 `json:"current"`
	Peak    uint64 `json:"peak"`
	Limit   uint64 `json:"limit"`
}

type System struct {
	Hostname     string      `json:"hostname"`
	OS           string      `json:"os"`
	Architecture string      `json:"architecture"`
	Uptime       *float64    `json:"uptime"`
	LoadAverage  *[3]float64 `json:"load_average"`
}

func (r *Reporter) timestamp() string {
	return r.now().In(r.cfg.location()).Format(time.RFC3339)
}

// Checks evaluates the health checks against live state.
func (r *Reporter) Checks(ctx context.Context) Checks {
	return r.checks(r.sampler.Memory())
}

func (r *Reporter) checks(mem sysinfo.Memory) Checks {
	return NewChecks(
		r.writable(r.cfg.LogDir),
		MemoryOK(mem.Current, r.cfg.MemoryLimit),
		true,
	)
}

// Readiness evaluates dependency readiness. Only the cache flag varies.
func (r *Reporter) Readiness(ctx context.Context) Readiness {
	return Readiness{
		Database:         true,
		Cache:            r.cfg.CacheEnabled,
		ExternalServices: true,
	}
}

// Snapshot samples memory once so checks and reported usage agree.
func (r *Reporter) Snapshot(ctx context.Context) Snapshot {
	mem := r.sampler.Memory()
	host := r.sampler.Host()
	checks := r.checks(mem)
	return Snapshot{
		Timestamp: r.timestamp(),
		Application: Application{
			Name:           r.cfg.AppName,
			Version:        r.cfg.AppVersion,
			Environment:    r.cfg.Environment,
			RuntimeVersion: r.cfg.runtimeVersion(),
			MemoryUsage: MemoryUsage{
				Current: mem.Current,
				Peak:    mem.Peak,
				Limit:   r.cfg.MemoryLimit,
			},
		},
		System: System{
			Hostname:     host.Hostname,
			OS:           host.OS,
			Architecture: host.Arch,
			Uptime:       host.Uptime,
			LoadAverage:  host.LoadAverage,
		},
		Checks: checks,
		Status: checks.Status(),
	}
}

// Report renders the response for mode. started is when the request began
// and only feeds liveness uptime.
func (r *Reporter) Report(ctx context.Context, mode Mode, started time.Time) Response {
	switch mode {
	case ModeSimple:
		c := r.Checks(ctx)
		status := "ok"
		if !c.OverallStatus {
			status = "error"
		}
		return Response{
			Status: statusCode(c.OverallStatus),
			Body: SimpleBody{
				Status:    status,
				Timestamp: r.timestamp(),
				Version:   r.cfg.AppVersion,
			},
		}
	case ModeReady:
		rd := r.Readiness(ctx)
		status := "ready"
		if !rd.Ready() {
			status = "not ready"
		}
		return Response{
			Status: statusCode(rd.Ready()),
			Body: ReadinessBody{
				Status:    status,
				Checks:    rd,
				Timestamp: r.timestamp(),
			},
		}
	case ModeLive:
		up := int64(r.now().Sub(started) / time.Second)
		if up < 0 {
			up = 0
		}
		return Response{
			Status: http.StatusOK,
			Body: LivenessBody{
				Status:    "alive",
				Timestamp: r.timestamp(),
				Uptime:    up,
			},
		}
	default:
		snap := r.Snapshot(ctx)
		return Response{
			Status: statusCode(snap.Checks.OverallStatus),
			Body:   snap,
			Pretty: true,
		}
	}
}

func statusCode(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// HealthProbe fails with the names of failing health checks.
func (r *Reporter) HealthProbe() probe.Probe {
	return probe.Func(func(ctx context.Context) error {
		if failed := r.Checks(ctx).Failed(); len(failed) > 0 {
			return xerrors.Newf("failed checks: %s", strings.Join(failed, ", "))
		}
		return nil
	})
}

// ReadinessProbe fails with the names of failing readiness checks.
func (r *Reporter) ReadinessProbe() probe.Probe {
	return probe.Func(func(ctx context.Context) error {
		if failed := r.Readiness(ctx).Failed(); len(failed) > 0 {
			return xerrors.Newf("not ready: %s", strings.Join(failed, ", "))
		}
		return nil
	})
}
