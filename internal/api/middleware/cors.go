package middleware

import (
	"net/http"
	"strings"
)

// OriginChecker decides whether a browser origin may talk to this server
type OriginChecker func(origin string) bool

// NewOriginChecker builds a checker from a list of allowed origins.
// Entries starting with "*." match any subdomain of the given suffix.
// An empty list allows every origin.
func NewOriginChecker(allowed []string) OriginChecker {
	if len(allowed) == 0 {
		return func(string) bool { return true }
	}

	exact := make(map[string]bool, len(allowed))
	var suffixes []string
	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "*.") {
			suffixes = append(suffixes, entry[1:])
			continue
		}
		exact[entry] = true
	}

	return func(origin string) bool {
		if exact[origin] {
			return true
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(origin, suffix) {
				return true
			}
		}
		return false
	}
}

// CORS creates middleware that answers preflight requests and sets CORS
// headers for allowed origins. Websocket upgrades bypass the preflight
// path; the upgrader does its own origin check with the same checker.
func CORS(check OriginChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && check(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
				w.Header().Set("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
