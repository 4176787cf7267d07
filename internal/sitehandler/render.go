package sitehandler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
)

const layoutFile = "layout.html"

// page names double as template file stems and render cache keys
const (
	pageHome     = "home"
	pageAbout    = "about"
	pageContact  = "contact"
	pageNotFound = "404"
)

var allPages = []string{pageHome, pageAbout, pageContact, pageNotFound}

// parsePages parses every page against the shared layout up front so a
// broken template fails startup rather than a request.
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(allPages))
	for _, p := range allPages {
		t, err := template.ParseFS(fsys, layoutFile, p+".html")
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidOptions, p, err)
		}
		out[p] = t
	}
	return out, nil
}

// layout is embedded in every page's data so the shared template can reach
// these fields directly.
type layout struct {
	AppName string
	Active  string
	Year    int
}

func (h *Handler) layout(active string) layout {
	return layout{
		AppName: h.opts.Site.AppName,
		Active:  active,
		Year:    h.opts.Now().In(h.opts.Site.Location).Year(),
	}
}

func (h *Handler) renderBytes(page string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// render executes page into memory first so a template error can still
// produce a clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	body, err := h.renderBytes(page, data)
	if err != nil {
		h.renderFailed(w, r, page, err)
		return
	}
	h.writeHTML(w, r, status, body)
}

// renderCached serves page from the render cache when enabled, building it
// with build on a miss. Entries are keyed by year since the footer shows it.
func (h *Handler) renderCached(w http.ResponseWriter, r *http.Request, status int, page string, build func() any) {
	key := page + "@" + strconv.Itoa(h.opts.Now().In(h.opts.Site.Location).Year())
	if h.cache != nil {
		if body, ok := h.cache.get(key); ok {
			h.observeCache(true)
			h.writeHTML(w, r, status, body)
			return
		}
		h.observeCache(false)
	}

	body, err := h.renderBytes(page, build())
	if err != nil {
		h.renderFailed(w, r, page, err)
		return
	}
	if h.cache != nil {
		h.cache.set(key, body)
	}
	h.writeHTML(w, r, status, body)
}

func (h *Handler) observeCache(hit bool) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.ObserveRenderCache(hit)
	}
}

func (h *Handler) renderFailed(w http.ResponseWriter, r *http.Request, page string, err error) {
	ctx := r.Context()
	h.logger(ctx).Error(ctx, err, "page render failed", "page", page)
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) writeHTML(w http.ResponseWriter, r *http.Request, status int, body []byte) {
	hdr := w.Header()
	hdr.Set("Content-Type", "text/html; charset=utf-8")
	hdr.Set("Content-Length", strconv.Itoa(len(body)))
	if hdr.Get("Cache-Control") == "" {
		hdr.Set("Cache-Control", h.opts.HTMLCacheControl)
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}
