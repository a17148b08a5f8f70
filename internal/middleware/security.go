// Package middleware provides the HTTP middleware chain of the Hireline API:
// request IDs, logging, recovery, security headers, CORS, authentication,
// scope and role checks and rate limiting.
package middleware

import (
	"errors"
	"net/http"
)

// DefaultMaxRequestBodySize caps JSON request bodies.
const DefaultMaxRequestBodySize int64 = 1 << 20

const hstsValue = "max-age=31536000; includeSubDomains; preload"

// SecurityConfig configures Security and the router's body limit.
type SecurityConfig struct {
	IsDevelopment      bool  // no HSTS over plain HTTP
	MaxRequestBodySize int64 // zero means DefaultMaxRequestBodySize
}

// apiHeaders apply to every response. The API only speaks JSON and its
// responses carry personal data, so nothing may be framed, embedded or cached.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "0"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Cache-Control", "no-store"},
}

// Security sets the response security headers before the handler runs.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	headers := apiHeaders
	if !cfg.IsDevelopment {
		headers = append(headers[:len(headers):len(headers)], [2]string{"Strict-Transport-Security", hstsValue})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range headers {
				h.Set(kv[0], kv[1])
			}
			h.Del("Server")
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize rejects a declared Content-Length above maxBytes with 413 and
// wraps the body in http.MaxBytesReader for chunked uploads.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// IsBodyTooLarge reports whether err came from a body cut off by MaxBodySize.
func IsBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
