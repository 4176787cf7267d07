// Package sitehandler renders the public pages (home, about, contact, 404),
// accepts contact form posts, and serves the embedded stylesheet.
package sitehandler

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/devopsplatform-web/internal/contact"
	"github.com/keithlinneman/devopsplatform-web/internal/httpmw"
	"github.com/keithlinneman/devopsplatform-web/internal/log"
	"github.com/keithlinneman/devopsplatform-web/internal/pathutil"
)

// displayTimeLayout is DD/MM/YYYY HH:MM:SS.
const displayTimeLayout = "02/01/2006 15:04:05"

// legacyPaths maps the old script URLs to their routes.
var legacyPaths = map[string]string{
	"/index.php":   "/",
	"/about.php":   "/about",
	"/contact.php": "/contact",
	"/health.php":  "/health",
}

// Handler implements httpserver.RouteRegistrar for the site pages.
type Handler struct {
	opts  Options
	pages map[string]*template.Template
	cache *renderCache
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	pages, err := parsePages(opts.Templates)
	if err != nil {
		return nil, err
	}
	h := &Handler{opts: *opts, pages: pages}
	if opts.CacheEnabled {
		h.cache = newRenderCache(opts.CacheTTL)
	}
	return h, nil
}

// RegisterRoutes should run last so NotFound and MethodNotAllowed land on
// the themed 404.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.serveHome)
	r.Get("/about", h.serveAbout)
	r.Get("/contact", h.serveContactForm)
	postMW := []func(http.Handler) http.Handler{httpmw.MaxBody(h.opts.MaxContactBody)}
	if h.opts.ContactLimiter != nil {
		postMW = append([]func(http.Handler) http.Handler{h.opts.ContactLimiter}, postMW...)
	}
	r.With(postMW...).Post("/contact", h.submitContact)
	r.Get("/assets/*", h.serveAsset)

	for from, to := range legacyPaths {
		r.Handle(from, redirectTo(to))
	}

	r.NotFound(h.serveNotFound)
	r.MethodNotAllowed(h.serveMethodNotAllowed)
}

// logger prefers the request-scoped logger set by httpmw.WithLogger.
func (h *Handler) logger(ctx context.Context) log.Logger {
	return log.FromContextOr(ctx, h.opts.Logger)
}

// redirectTo issues a 308 so a legacy POST stays a POST. The query string
// carries over (health.php?simple -> /health?simple).
func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dst := target
		if r.URL.RawQuery != "" {
			dst += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, dst, http.StatusPermanentRedirect)
	}
}

type feature struct {
	Title string
	Text  string
}

var homeFeatures = []feature{
	{"🚀 Alta Performance", "Aplicação otimizada para atender milhares de usuários simultaneamente."},
	{"🔒 Segurança", "Implementação de melhores práticas de segurança para proteção de dados."},
	{"📊 Analytics", "Sistema de métricas e monitoramento em tempo real."},
	{"🔄 CI/CD", "Pipeline automatizado para deployments seguros e rápidos."},
}

type homePage struct {
	layout
	Version     string
	Environment string
	ServerTime  string
	GoVersion   string
	Features    []feature
}

func (h *Handler) serveHome(w http.ResponseWriter, r *http.Request) {
	now := h.opts.Now().In(h.opts.Site.Location)
	h.logAccess(r, now)

	h.render(w, r, http.StatusOK, pageHome, homePage{
		layout:      h.layout("home"),
		Version:     h.opts.Site.Version,
		Environment: h.opts.Site.Environment,
		ServerTime:  now.Format(displayTimeLayout),
		GoVersion:   h.opts.Site.GoVersion,
		Features:    homeFeatures,
	})
}

// logAccess appends the access line. A failed append never fails the page.
func (h *Handler) logAccess(r *http.Request, now time.Time) {
	if h.opts.AccessLog == nil {
		return
	}
	line := now.Format(time.DateTime) + " - Acesso à página principal - IP: " + clientIP(r)
	if err := h.opts.AccessLog.AppendString(line); err != nil {
		ctx := r.Context()
		h.logger(ctx).Warn(ctx, "access log append failed", "err", err)
	}
}

type aboutPage struct {
	layout
	GoVersion   string
	OS          string
	Arch        string
	MemoryLimit string
	Timezone    string
}

func (h *Handler) serveAbout(w http.ResponseWriter, r *http.Request) {
	h.renderCached(w, r, http.StatusOK, pageAbout, func() any {
		s := h.opts.Site
		return aboutPage{
			layout:      h.layout("about"),
			GoVersion:   s.GoVersion,
			OS:          s.OS,
			Arch:        s.Arch,
			MemoryLimit: s.MemoryLimit,
			Timezone:    s.Location.String(),
		}
	})
}

type alert struct {
	Kind string // success | error
	Text string
}

type contactPage struct {
	layout
	Alert      *alert
	Form       contact.Submission
	Subjects   []contact.Subject
	MaxName    int
	MaxEmail   int
	MaxMessage int
}

func (h *Handler) contactPage(a *alert, form contact.Submission) contactPage {
	return contactPage{
		layout:     h.layout("contact"),
		Alert:      a,
		Form:       form,
		Subjects:   contact.Subjects,
		MaxName:    contact.MaxName,
		MaxEmail:   contact.MaxEmail,
		MaxMessage: contact.MaxMessage,
	}
}

func (h *Handler) serveContactForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageContact, h.contactPage(nil, contact.Submission{}))
}

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Cache-Control", "no-store")

	if err := r.ParseForm(); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.countContact("too_large")
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		h.countContact("invalid")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sub := contact.FromForm(r.PostForm)
	err := h.opts.Contact.Submit(ctx, sub, clientIP(r))

	var invalid *contact.ValidationError
	switch {
	case err == nil:
		h.countContact("accepted")
		h.render(w, r, http.StatusOK, pageContact,
			h.contactPage(&alert{Kind: "success", Text: contact.SuccessMessage}, contact.Submission{}))
	case errors.As(err, &invalid):
		h.countContact("invalid")
		h.logger(ctx).Debug(ctx, "contact submission rejected", "reason", invalid.Reason.String(), "fields", invalid.Fields)
		h.render(w, r, http.StatusBadRequest, pageContact,
			h.contactPage(&alert{Kind: "error", Text: invalid.Reason.Message()}, sub))
	default:
		h.countContact("failed")
		h.logger(ctx).Error(ctx, err, "contact submission not recorded")
		h.render(w, r, http.StatusInternalServerError, pageContact,
			h.contactPage(&alert{Kind: "error", Text: contact.FailureMessage}, sub))
	}
}

func (h *Handler) countContact(result string) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.IncContactSubmission(result)
	}
}

func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if !pathutil.ValidAssetName(name) || !existsFile(h.opts.Static, name) {
		h.serveNotFound(w, r)
		return
	}
	if cc := cacheControlForFile(name, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, h.opts.Static, name)
}

func existsFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	h.renderCached(w, r, http.StatusNotFound, pageNotFound, func() any {
		return struct{ layout }{h.layout("")}
	})
}

func (h *Handler) serveMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func clientIP(r *http.Request) string {
	if ip := httpmw.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
