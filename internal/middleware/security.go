package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SecureHeaders sets the browser security headers of every response
type SecureHeaders struct {
	// AssetsHost serves the chart scripts and is added to script-src
	AssetsHost string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	ReferrerPolicy string
}

// NewSecureHeaders returns headers that let the dashboard load chart
// scripts from assetsHost and embed its own chart pages.
func NewSecureHeaders(assetsHost string) *SecureHeaders {
	return &SecureHeaders{
		AssetsHost:            assetsHost,
		HSTSMaxAge:            63072000,
		HSTSIncludeSubdomains: true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
}

// Handler returns the middleware handler
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	csp := sh.ContentSecurityPolicy()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		if sh.HSTSMaxAge > 0 && r.TLS != nil {
			hsts := fmt.Sprintf("max-age=%d", sh.HSTSMaxAge)
			if sh.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			h.Set("Strict-Transport-Security", hsts)
		}
		h.Set("Content-Security-Policy", csp)
		// chart pages are framed by the dashboard itself
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-Content-Type-Options", "nosniff")
		if sh.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", sh.ReferrerPolicy)
		}
		h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=()")

		next.ServeHTTP(w, r)
	})
}

// ContentSecurityPolicy builds the policy string
func (sh *SecureHeaders) ContentSecurityPolicy() string {
	scripts := "script-src 'self' 'unsafe-inline'"
	if origin := assetsOrigin(sh.AssetsHost); origin != "" {
		scripts += " " + origin
	}
	return strings.Join([]string{
		"default-src 'self'",
		scripts,
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: blob:",
		"connect-src 'self' ws: wss:",
		"frame-src 'self'",
		"frame-ancestors 'self'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}

// assetsOrigin reduces an assets URL to scheme://host; relative hosts are
// already covered by 'self'
func assetsOrigin(host string) string {
	u, err := url.Parse(host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
