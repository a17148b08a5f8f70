package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access for browser clients.
//
// AllowedOrigins entries are exact origins, "*.example.com" subdomain
// patterns, or "*". A bare "*" is ignored when AllowCredentials is set.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int // preflight cache, seconds
}

// DefaultCORSConfig allows no origins until configured.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", RequestIDHeader, TraceIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         86400,
	}
}

type corsHandler struct {
	next    http.Handler
	origins originPolicy

	// Header values rendered once at startup.
	credentials bool
	methods     string
	headers     string
	exposed     string
	maxAge      string
}

// CORS answers preflight requests itself and decorates other cross-origin
// responses. A preflight from a disallowed origin gets 403; other requests
// from it are served without CORS headers and the browser blocks the read.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	tmpl := corsHandler{
		origins:     newOriginPolicy(cfg.AllowedOrigins, cfg.AllowCredentials),
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		exposed:     strings.Join(cfg.ExposedHeaders, ", "),
	}
	if cfg.MaxAge > 0 {
		tmpl.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(next http.Handler) http.Handler {
		h := tmpl
		h.next = next
		return &h
	}
}

func (c *corsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	preflight := r.Method == http.MethodOptions

	switch {
	case origin == "":
		c.next.ServeHTTP(w, r)
	case !c.origins.allows(origin):
		if preflight {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		c.next.ServeHTTP(w, r)
	case preflight:
		c.allowOrigin(w.Header(), origin)
		c.preflight(w.Header())
		w.WriteHeader(http.StatusNoContent)
	default:
		c.allowOrigin(w.Header(), origin)
		c.next.ServeHTTP(w, r)
	}
}

func (c *corsHandler) allowOrigin(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	setIfNotEmpty(h, "Access-Control-Expose-Headers", c.exposed)
}

func (c *corsHandler) preflight(h http.Header) {
	setIfNotEmpty(h, "Access-Control-Allow-Methods", c.methods)
	setIfNotEmpty(h, "Access-Control-Allow-Headers", c.headers)
	setIfNotEmpty(h, "Access-Control-Max-Age", c.maxAge)
}

func setIfNotEmpty(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// originPolicy is the precomputed form of CORSConfig.AllowedOrigins.
type originPolicy struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string // ".example.com" for "*.example.com"
}

func newOriginPolicy(origins []string, credentials bool) originPolicy {
	p := originPolicy{exact: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "":
		case o == "*":
			p.any = !credentials
		case strings.HasPrefix(o, "*."):
			p.suffixes = append(p.suffixes, o[1:])
		default:
			p.exact[o] = struct{}{}
		}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	origin = strings.ToLower(origin)
	if p.any {
		return true
	}
	if _, ok := p.exact[origin]; ok {
		return true
	}
	_, host, ok := strings.Cut(origin, "://")
	if !ok {
		return false
	}
	for _, suffix := range p.suffixes {
		// the apex itself is not a subdomain
		if len(host) > len(suffix) && strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
