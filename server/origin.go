package server

import (
	"net/http"
	"strings"
)

// originValidationMiddleware rejects requests whose Origin header is present and not
// allowed. "*" allows any origin; a trailing ":*" pattern matches any numeric port.
func originValidationMiddleware(allowed []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || isOriginAllowed(origin, allowed) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "origin not allowed", http.StatusForbidden)
		})
	}
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, pattern := range allowed {
		if pattern == "*" || matchOrigin(origin, pattern) {
			return true
		}
	}
	return false
}

func matchOrigin(origin, pattern string) bool {
	if origin == pattern {
		return true
	}
	if !strings.HasSuffix(pattern, ":*") {
		return false
	}
	prefix := strings.TrimSuffix(pattern, "*")
	if !strings.HasPrefix(origin, prefix) {
		return false
	}
	port := origin[len(prefix):]
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
	}
	return port != ""
}
