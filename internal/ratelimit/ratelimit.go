// Package ratelimit is per-ip token bucket middleware for the contact form.
//
// State is in-memory and per-instance. It blunts a single client hammering
// POST /contact (each accepted post is a disk append); it does nothing
// against distributed senders, which belong to an upstream WAF.
package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/devopsplatform-web/internal/httpmw"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged is reset only by eviction
	logged bool
}

// IPLimiter holds one limiter per client ip and evicts idle ones.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond   rate.Limit
	burst       int
	ttl         time.Duration
	maxVisitors int
	now         func() time.Time

	// OnFirstDenied fires once per visitor lifetime, for logging.
	OnFirstDenied func(ip string)
	// OnDenied fires on every rejection, for counters.
	OnDenied func(ip string)
	// OnCapacity fires when a new ip is rejected because the table is full.
	OnCapacity func()
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and bucket size. WithRate(0.2, 5) allows
// five posts at once, then one every five seconds.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL is how long an idle ip is remembered.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithMaxVisitors caps the table; 0 disables the cap.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) { l.maxVisitors = n }
}

func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnFirstDenied = fn }
}

func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.OnDenied = fn }
}

func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.OnCapacity = fn }
}

func withClock(now func() time.Time) Option {
	return func(l *IPLimiter) { l.now = now }
}

// New starts the eviction goroutine, which exits when ctx is done.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:    make(map[string]*visitor),
		perSecond:   0.2,
		burst:       5,
		ttl:         10 * time.Minute,
		maxVisitors: 10000,
		now:         time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.evictLoop(ctx)
	return l
}

type decision int

const (
	allowed decision = iota
	denied
	deniedFirst
	deniedCapacity
)

func (l *IPLimiter) decide(ip string) decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		if l.maxVisitors > 0 && len(l.visitors) >= l.maxVisitors {
			return deniedCapacity
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return allowed
	}
	if !v.logged {
		v.logged = true
		return deniedFirst
	}
	return denied
}

// allow reports whether ip may proceed. Hooks run outside the lock.
func (l *IPLimiter) allow(ip string) bool {
	switch l.decide(ip) {
	case allowed:
		return true
	case deniedCapacity:
		if l.OnCapacity != nil {
			l.OnCapacity()
		}
	case deniedFirst:
		if l.OnFirstDenied != nil {
			l.OnFirstDenied(ip)
		}
	}
	if l.OnDenied != nil {
		l.OnDenied(ip)
	}
	return false
}

func (l *IPLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

func (l *IPLimiter) evict(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
			n++
		}
	}
	return n
}

func (l *IPLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// retryAfter is the whole seconds needed to refill one token.
func (l *IPLimiter) retryAfter() string {
	if l.perSecond <= 0 || l.perSecond == rate.Inf {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(l.perSecond))))
}

// Middleware rejects requests over the limit with 429 and a JSON body.
// The client ip comes from httpmw.ClientIP.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(httpmw.ClientIPFromContext(r.Context())) {
			h := w.Header()
			h.Set("Content-Type", "application/json; charset=utf-8")
			h.Set("Cache-Control", "no-store")
			h.Set("Retry-After", l.retryAfter())
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
