package sitehandler

import (
	"path"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// renderCache holds rendered page bodies keyed by page name and year.
type renderCache struct {
	c *gocache.Cache
}

func newRenderCache(ttl time.Duration) *renderCache {
	return &renderCache{c: gocache.New(ttl, 2*ttl)}
}

func (rc *renderCache) get(key string) ([]byte, bool) {
	v, ok := rc.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (rc *renderCache) set(key string, body []byte) {
	rc.c.SetDefault(key, body)
}

func cacheControlForFile(name string, o *Options) string {
	ext := strings.ToLower(path.Ext(name))

	switch ext {
	case ".html", "":
		return o.HTMLCacheControl
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf":
		return o.AssetCacheControl
	default:
		return o.OtherCacheControl
	}
}
