package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/keithlinneman/devopsplatform-web/internal/cfg"
	"github.com/keithlinneman/devopsplatform-web/internal/contact"
	"github.com/keithlinneman/devopsplatform-web/internal/health"
	"github.com/keithlinneman/devopsplatform-web/internal/healthhttp"
	"github.com/keithlinneman/devopsplatform-web/internal/httpmw"
	"github.com/keithlinneman/devopsplatform-web/internal/logfile"
	"github.com/keithlinneman/devopsplatform-web/internal/opshttp"
	"github.com/keithlinneman/devopsplatform-web/internal/probe"
	"github.com/keithlinneman/devopsplatform-web/internal/ratelimit"
	"github.com/keithlinneman/devopsplatform-web/internal/sitehandler"
	"github.com/keithlinneman/devopsplatform-web/internal/sysinfo"
	"github.com/keithlinneman/devopsplatform-web/internal/webassets"

	"github.com/keithlinneman/devopsplatform-web/internal/httpserver"
	"github.com/keithlinneman/devopsplatform-web/internal/log"
	"github.com/keithlinneman/devopsplatform-web/internal/metrics"
	"github.com/keithlinneman/devopsplatform-web/internal/otelx"
	"github.com/keithlinneman/devopsplatform-web/internal/prof"
	v "github.com/keithlinneman/devopsplatform-web/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Get build/version info
	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// no prefix so APP_ENV, LOG_PATH, CACHE_ENABLED etc. keep working
	cfg.FillFromEnv(flag.CommandLine, "", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	logOpts := log.Options{
		App:               conf.AppName,
		Version:           conf.AppVersion,
		Environment:       conf.Environment,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JsonFormat:        conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	}
	if conf.LogFile {
		logOpts.File = &log.FileOptions{Dir: conf.LogPath}
	}
	lg, err := log.New(logOpts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	// flushes and closes the rotating file when log-file is on
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	loc := conf.Location()

	// respect an operator-provided GOMEMLIMIT
	if _, set := os.LookupEnv("GOMEMLIMIT"); !set && conf.MemoryLimit > 0 {
		debug.SetMemoryLimit(int64(conf.MemoryLimit))
	}

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_id", vi.BuildId,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"app_version", conf.AppVersion,
		"environment", conf.Environment,
		"log_path", conf.LogPath,
		"cache_enabled", conf.CacheEnabled,
		"cache_ttl", conf.CacheTTL.String(),
		"memory_limit", memoryLimitLabel(conf.MemoryLimit),
		"timezone", loc.String(),
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"trusted_hops", conf.TrustedHops,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"pyro_server", conf.PyroServer,
		"pyro_tenant", conf.PyroTenantID,
		"trace_sample", conf.TraceSample,
	)

	// Setup metrics / admin listener
	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", vi)
	m.SetMemoryLimit(conf.MemoryLimit)

	// Setup pyroscope profiling
	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":         v.AppName,
			"component":   "server",
			"version":     vi.Version,
			"commit":      vi.Commit,
			"environment": conf.Environment,
			"source":      "go-agent",
		},
		OnActive: m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// Setup otel for tracing
	// Insecure is true because we are only writing to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:     conf.EnableTracing,
		Endpoint:    conf.OTLPEndpoint,
		Insecure:    true,
		Sample:      conf.TraceSample,
		Service:     v.AppName,
		Component:   "server",
		Version:     vi.Version,
		Environment: conf.Environment,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// health reporter backing /health and the readiness probes
	reporter := health.NewReporter(&health.Config{
		AppName:      conf.AppName,
		AppVersion:   conf.AppVersion,
		Environment:  conf.Environment,
		LogDir:       conf.LogPath,
		CacheEnabled: conf.CacheEnabled,
		MemoryLimit:  conf.MemoryLimit,
		Location:     loc,
	}, health.WithSampler(sysinfo.New()))

	// contact form submissions and home page visits go to plain append-only logs
	contactSvc := contact.NewService(
		logfile.New(conf.LogPath, "contact.log"),
		contact.WithLocation(loc),
	)

	var contactLimiter func(http.Handler) http.Handler
	if conf.ContactRate > 0 {
		limiter := ratelimit.New(ctx,
			ratelimit.WithRate(conf.ContactRate, conf.ContactBurst),
			// increment prometheus counter on each denied request
			ratelimit.WithOnDenied(func(ip string) {
				m.IncRateLimitDenied()
			}),
			// only log the first time an ip is denied each time it is cleaned from the bucket
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(ctx, "contact rate limit triggered", "ip", ip)
			}),
			ratelimit.WithOnCapacity(func() {
				m.IncRateLimitCapacity()
				L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
			}),
		)
		contactLimiter = limiter.Middleware
	}

	siteHandler, err := sitehandler.New(&sitehandler.Options{
		Logger: L,
		Site: sitehandler.SiteInfo{
			AppName:     conf.AppName,
			Version:     conf.AppVersion,
			Environment: conf.Environment,
			GoVersion:   runtime.Version(),
			MemoryLimit: memoryLimitLabel(conf.MemoryLimit),
			Location:    loc,
		},
		Templates:      webassets.TemplatesFS(),
		Static:         webassets.StaticFS(),
		Contact:        contactSvc,
		AccessLog:      logfile.New(conf.LogPath, "access.log"),
		ContactLimiter: contactLimiter,
		CacheEnabled:   conf.CacheEnabled,
		CacheTTL:       conf.CacheTTL,
		Metrics:        m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	// setup toggle for server shutdown
	var gate probe.ShutdownGate

	// readiness fails while draining or when a readiness check fails
	readiness := probe.All(gate.Probe(), reporter.ReadinessProbe())
	// process liveness, never tied to checks so a full disk does not restart the pod
	liveness := probe.Fixed(true, "")

	// start site http server
	siteHTTPStop, err := httpserver.Start(ctx, httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		Version:      conf.AppVersion,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		Health:       liveness,
		Readiness:    readiness,
		Routes: []httpserver.RouteRegistrar{
			healthhttp.NewAPI(reporter, m),
			// last so its NotFound handler wins
			siteHandler,
		},
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener port")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// start admin/ops listener to serve metrics, health checks and pprof
	// we reject connections from public ips in middleware to prevent
	// accidental exposure if the admin port is ever published
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       liveness,
		Readiness:    readiness,
		Checks:       reporter.HealthProbe(),
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	// notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd readiness notify skipped", "reason", err.Error())
	}

	// wait for ctrl+c / sigterm
	<-ctx.Done()
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	// fail readiness so the load balancer stops sending new requests
	gate.Set("draining")
	L.Info(bg, "shutdown gate closed, draining", "drain", conf.ShutdownDrain.String())

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.ShutdownDrain):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "app http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

// memoryLimitLabel renders the limit for logs and the about page.
func memoryLimitLabel(n uint64) string {
	if n == 0 {
		return "ilimitado"
	}
	return humanize.IBytes(n)
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		_ = conn.Close()
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
