package sitehandler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"runtime"
	"time"

	"github.com/keithlinneman/devopsplatform-web/internal/contact"
	"github.com/keithlinneman/devopsplatform-web/internal/log"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

// SiteInfo is fixed for the life of the process.
type SiteInfo struct {
	AppName     string
	Version     string
	Environment string
	GoVersion   string
	OS          string
	Arch        string
	// MemoryLimit is pre-formatted for display, e.g. "128 MiB".
	MemoryLimit string
	Location    *time.Location
}

// ContactService is satisfied by *contact.Service.
type ContactService interface {
	Submit(ctx context.Context, sub contact.Submission, ip string) error
}

// LineAppender is satisfied by *logfile.Appender.
type LineAppender interface {
	AppendString(line string) error
}

// Recorder is satisfied by *metrics.ServerMetrics.
type Recorder interface {
	ObserveRenderCache(hit bool)
	IncContactSubmission(result string)
}

type Options struct {
	Logger log.Logger
	Site   SiteInfo

	// Templates holds layout.html plus one file per page; Static is served
	// under /assets/.
	Templates fs.FS
	Static    fs.FS

	Contact ContactService
	// AccessLog receives one line per home page view. Optional.
	AccessLog LineAppender
	// ContactLimiter wraps POST /contact. Optional.
	ContactLimiter func(http.Handler) http.Handler
	// MaxContactBody caps POST /contact bodies. default: 64 KiB
	MaxContactBody int64

	// Pages that do not change per request (about, 404) are cached after
	// the first render when CacheEnabled.
	CacheEnabled bool
	CacheTTL     time.Duration // default: 1h

	Metrics Recorder
	Now     func() time.Time

	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=86400"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Site.GoVersion == "" {
		o.Site.GoVersion = runtime.Version()
	}
	if o.Site.OS == "" {
		o.Site.OS = runtime.GOOS
	}
	if o.Site.Arch == "" {
		o.Site.Arch = runtime.GOARCH
	}
	if o.Site.Location == nil {
		o.Site.Location = time.Local
	}
	if o.MaxContactBody <= 0 {
		o.MaxContactBody = 64 << 10
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		// assets are not fingerprinted, so no immutable
		o.AssetCacheControl = "public, max-age=86400"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Templates == nil {
		return fmt.Errorf("%w: Templates is nil", ErrInvalidOptions)
	}
	if o.Static == nil {
		return fmt.Errorf("%w: Static is nil", ErrInvalidOptions)
	}
	if o.Contact == nil {
		return fmt.Errorf("%w: Contact is nil", ErrInvalidOptions)
	}
	if o.Site.AppName == "" {
		return fmt.Errorf("%w: Site.AppName is empty", ErrInvalidOptions)
	}
	return nil
}
