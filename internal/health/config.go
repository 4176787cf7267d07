package health

import (
	"runtime"
	"time"
)

// Config is built once at startup from cfg.App and shared read-only.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	// RuntimeVersion defaults to runtime.Version().
	RuntimeVersion string

	// LogDir is the directory whose writability backs logs_writable.
	LogDir string
	// CacheEnabled is the cache feature flag consulted by readiness.
	CacheEnabled bool
	// MemoryLimit in bytes; 0 means unlimited.
	MemoryLimit uint64
	// Location for rendered timestamps; defaults to time.Local.
	Location *time.Location
}

func (c *Config) runtimeVersion() string {
	if c.RuntimeVersion != "" {
		return c.RuntimeVersion
	}
	return runtime.Version()
}

func (c *Config) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.Local
}
