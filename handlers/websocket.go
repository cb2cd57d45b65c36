package handlers

import (
	"net/http"
	"net/url"
)

// checkWSOrigin validates the Origin header against allowed origins.
// If no Origin header is present (non-browser client), the connection is allowed.
// A "*" entry allows any origin.
func checkWSOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
			continue
		}
		if u, err := url.Parse(o); err == nil {
			allowed[u.Host] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return allowed[u.Host]
	}
}
