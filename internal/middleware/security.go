package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/moodlog-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerReferrerPolicy          = "Referrer-Policy"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerReferrerPolicy, "no-referrer")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost (e.g. api.moodlog.app).
// allowedHost should be the bare hostname without scheme or port.
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedHost == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), strings.TrimSpace(allowedHost)) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPRateLimiter hands out one token bucket per client IP and forgets idle ones.
type IPRateLimiter struct {
	limit      rate.Limit
	burst      int
	ttl        time.Duration
	trustProxy bool

	mu      sync.Mutex
	entries map[string]*limiterEntry
	stop    chan struct{}
	once    sync.Once
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

// NewIPRateLimiter starts a limiter whose idle entries are swept every few minutes.
// Call Close to stop the sweeper.
func NewIPRateLimiter(limit rate.Limit, burst int, trustProxy bool) *IPRateLimiter {
	l := &IPRateLimiter{
		limit:      limit,
		burst:      burst,
		ttl:        limiterTTL,
		trustProxy: trustProxy,
		entries:    make(map[string]*limiterEntry),
		stop:       make(chan struct{}),
	}
	go l.sweep(limiterCleanupInterval)
	return l
}

// Allow reports whether a request from ip may proceed now.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter.Allow()
}

func (l *IPRateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for ip, e := range l.entries {
				if now.Sub(e.lastUse) > l.ttl {
					delete(l.entries, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *IPRateLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

// Middleware returns 429 with message once an IP runs out of tokens.
func (l *IPRateLimiter) Middleware(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientip.RealClientIP(r, l.trustProxy)) {
				writeError(w, http.StatusTooManyRequests, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Global limit: 1 req/s, burst 10 per IP. Sign-in: 1 req/5s, burst 2 per IP.
const (
	globalRateLimitRPS   = 1
	globalRateLimitBurst = 10
	loginRateLimitEvery  = 5 * time.Second
	loginRateLimitBurst  = 2
)

var loginPaths = map[string]bool{
	"/api/auth/signin": true,
	"/api/auth/signup": true,
}

// LoginOnly applies mw to sign-in and sign-up paths and passes everything else through.
func LoginOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if loginPaths[r.URL.Path] {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProductionSecurity returns middlewares for production: SecurityHeaders, HostCheck, the global
// per-IP limit, then the stricter sign-in limit. The returned closer stops both limiters' sweepers.
func ProductionSecurity(allowedHost string, trustProxy bool) ([]func(http.Handler) http.Handler, func()) {
	global := NewIPRateLimiter(rate.Limit(globalRateLimitRPS), globalRateLimitBurst, trustProxy)
	login := NewIPRateLimiter(rate.Every(loginRateLimitEvery), loginRateLimitBurst, trustProxy)

	mws := []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		global.Middleware("Too many requests. Please slow down."),
		LoginOnly(login.Middleware("Too many login attempts. Please try again later.")),
	}
	return mws, func() {
		global.Close()
		login.Close()
	}
}
