package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// CORS allows credentialed requests from the listed origins. A "*" entry
// reflects any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAny := slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAny || slices.Contains(allowedOrigins, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")

				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					h.Set("Access-Control-Allow-Methods", strings.Join([]string{
						http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
					}, ", "))
					h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					h.Set("Access-Control-Max-Age", "600")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
