package middleware

import (
	"net/http"
	"regexp"
)

var (
	// Matches /{prefix}/v1/config (special case: prefix becomes warehouse).
	configPattern = regexp.MustCompile(`^/([^/]+)/v1/config$`)

	// Matches /{prefix}/v1/... for all other endpoints.
	clientPattern = regexp.MustCompile(`^/([^/]+)/v1/(.+)$`)
)

// PrefixRewrite wraps the router so client-style /{prefix}/v1/... paths are
// rewritten to the canonical /v1/{prefix}/... form before routing. The
// config endpoint is special: /{warehouse}/v1/config becomes
// /v1/config?warehouse={warehouse}, preserving a caller-supplied warehouse
// parameter. It runs ahead of the engine because the rewrite must precede
// route matching.
func PrefixRewrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if m := configPattern.FindStringSubmatch(path); m != nil && m[1] != "v1" {
			r.URL.Path = "/v1/config"
			query := r.URL.Query()
			if query.Get("warehouse") == "" {
				query.Set("warehouse", m[1])
				r.URL.RawQuery = query.Encode()
			}
			next.ServeHTTP(w, r)
			return
		}

		if m := clientPattern.FindStringSubmatch(path); m != nil && m[1] != "v1" {
			r.URL.Path = "/v1/" + m[1] + "/" + m[2]
		}

		next.ServeHTTP(w, r)
	})
}
