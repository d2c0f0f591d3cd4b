// cors.go — CORS middleware для веб-фронтенда киоска.
// Фронтенд обращается к backend напрямую с другого origin.
package middleware

import "net/http"

// CORS возвращает middleware, добавляющий CORS-заголовки и обрабатывающий
// preflight-запросы. origin — разрешённый Origin (IGD_CORS_ORIGIN).
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Use-Go-Backend")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
