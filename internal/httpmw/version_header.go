package httpmw

import "net/http"

// VersionHeader stamps responses with the application version so a client
// or load balancer can tell which release answered.
func VersionHeader(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if version == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-App-Version", version)
			next.ServeHTTP(w, r)
		})
	}
}
