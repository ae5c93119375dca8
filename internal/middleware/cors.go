package middleware

import (
	"net/http"
	"strings"
)

// preflightMaxAge lets browsers cache preflight answers for ten minutes.
const preflightMaxAge = "600"

// CORS adds Access-Control headers for allowed origins and short-circuits OPTIONS requests.
// Only explicitly listed origins get credentialed access; "*" answers with a
// literal wildcard and no credentials.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowAll := false
	normalized := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
		normalized = append(normalized, strings.TrimRight(strings.ToLower(origin), "/"))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || containsOrigin(normalized, origin)) {
			if allowAll {
				// Browsers refuse credentialed requests against "*", so a wildcard
				// deployment never exposes session cookies to other sites.
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Max-Age", preflightMaxAge)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func containsOrigin(allowed []string, origin string) bool {
	origin = strings.TrimRight(strings.ToLower(origin), "/")
	for _, candidate := range allowed {
		if candidate == origin {
			return true
		}
	}
	return false
}
