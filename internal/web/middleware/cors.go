package middleware

import (
	"net/http"
	"os"
	"strings"
)

// originList holds the set of origins allowed to call the API cross-site.
type originList map[string]struct{}

// loadOrigins reads WEB_ALLOWED_ORIGINS (comma-separated) into an origin set.
func loadOrigins() originList {
	list := make(originList)
	for o := range strings.SplitSeq(os.Getenv("WEB_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			list[o] = struct{}{}
		}
	}
	return list
}

// allows reports whether the origin may receive CORS headers.
// Localhost origins are always permitted for development.
func (l originList) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "https://localhost") {
		return true
	}
	_, ok := l[origin]
	return ok
}

// CORS returns middleware that sets CORS headers with an origin whitelist
// taken from the WEB_ALLOWED_ORIGINS environment variable.
func CORS() func(http.Handler) http.Handler {
	allowed := loadOrigins()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed.allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
