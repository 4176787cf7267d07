package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // containers often ship without zoneinfo

	"github.com/dustin/go-humanize"

	"github.com/keithlinneman/devopsplatform-web/internal/log"
)

type App struct {
	AppName      string
	AppVersion   string
	Environment  string
	LogPath      string
	LogJSON      bool
	LogLevel     string
	LogFile      bool
	CacheEnabled bool
	CacheTTL     time.Duration
	MemoryLimit  uint64
	Timezone     string

	HTTPPort      int
	AdminPort     int
	ShutdownDrain time.Duration
	TrustedHops   int
	ContactRate   float64
	ContactBurst  int

	EnablePprof       bool
	EnablePyroscope   bool
	EnableTracing     bool
	PyroServer        string
	PyroTenantID      string
	OTLPEndpoint      string
	TraceSample       float64
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.StringVar(&c.AppName, "app-name", "DevOps Test Platform", "application name")
	fs.StringVar(&c.AppVersion, "app-version", "2.1.3", "application version reported by /health")
	fs.StringVar(&c.Environment, "app-env", "production", "environment name")
	fs.StringVar(&c.LogPath, "log-path", "./logs", "log directory (writability check, contact and access logs)")
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.BoolVar(&c.LogFile, "log-file", true, "also write the app log to <log-path>/app.log")
	fs.BoolVar(&c.CacheEnabled, "cache-enabled", true, "enable the page render cache (reported by readiness)")
	c.CacheTTL = time.Hour
	fs.Var((*seconds)(&c.CacheTTL), "cache-ttl", "render cache TTL (duration, bare integers are seconds)")
	c.MemoryLimit = 128 * humanize.MiByte
	fs.Var((*byteSize)(&c.MemoryLimit), "memory-limit", "memory limit, e.g. 128M or 128MiB; bare K/M/G are binary (0 = unlimited)")
	fs.StringVar(&c.Timezone, "timezone", "America/Sao_Paulo", "IANA timezone for timestamps")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.DurationVar(&c.ShutdownDrain, "shutdown-drain", 5*time.Second, "time between failing readiness and closing listeners")
	fs.IntVar(&c.TrustedHops, "trusted-hops", 0, "reverse proxies in front of the server (X-Forwarded-For trust depth)")
	fs.Float64Var(&c.ContactRate, "contact-rate", 0.2, "contact form submissions per second per IP (0 disables)")
	fs.IntVar(&c.ContactBurst, "contact-burst", 5, "contact form burst per IP")

	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := EnvKey(prefix, f.Name)
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// EnvKey maps flag "log-path" to "<prefix>LOG_PATH".
func EnvKey(prefix, flagName string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// Location loads the configured timezone. Validate has already rejected
// unknown names, so the UTC fallback only covers unvalidated configs.
func (c *App) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if strings.TrimSpace(c.AppName) == "" {
		errs = append(errs, fmt.Errorf("APP_NAME is required"))
	}
	if strings.TrimSpace(c.LogPath) == "" {
		errs = append(errs, fmt.Errorf("LOG_PATH is required"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid CACHE_TTL %s (must be > 0)", c.CacheTTL))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil || c.Timezone == "" {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q", c.Timezone))
	}

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}
	if c.ShutdownDrain < 0 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_DRAIN %s (must be >= 0)", c.ShutdownDrain))
	}
	if c.TrustedHops < 0 || c.TrustedHops > 10 {
		errs = append(errs, fmt.Errorf("invalid TRUSTED_HOPS %d (must be 0..10)", c.TrustedHops))
	}

	// Contact rate limit
	if c.ContactRate < 0 {
		errs = append(errs, fmt.Errorf("invalid CONTACT_RATE %.3f (must be >= 0)", c.ContactRate))
	}
	if c.ContactRate > 0 && c.ContactBurst < 1 {
		errs = append(errs, fmt.Errorf("invalid CONTACT_BURST %d (must be >= 1)", c.ContactBurst))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// Pyroscope (URL and scheme)
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// Error link limits
	if c.IncludeErrorLinks {
		if c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64 {
			errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// seconds is a duration flag that also accepts a bare integer as seconds,
// so CACHE_TTL=3600 keeps working.
type seconds time.Duration

func (s *seconds) String() string {
	if s == nil {
		return "0s"
	}
	return time.Duration(*s).String()
}

func (s *seconds) Set(v string) error {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n < 0 {
			return fmt.Errorf("negative duration %q", v)
		}
		*s = seconds(time.Duration(n) * time.Second)
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*s = seconds(d)
	return nil
}

// byteSize parses human sizes ("128MiB", "512M", "1073741824"). A bare K, M,
// G or T suffix is binary, the way php.ini memory_limit reads it; "MB" stays SI.
type byteSize uint64

func (b *byteSize) String() string {
	if b == nil || *b == 0 {
		return "0"
	}
	return humanize.IBytes(uint64(*b))
}

func (b *byteSize) Set(v string) error {
	v = strings.TrimSpace(v)
	if n := len(v); n > 1 && strings.ContainsRune("kKmMgGtT", rune(v[n-1])) {
		if c := v[n-2]; c == ' ' || (c >= '0' && c <= '9') {
			v += "iB"
		}
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return err
	}
	*b = byteSize(n)
	return nil
}
