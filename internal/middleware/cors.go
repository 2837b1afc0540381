package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS wraps h with a CORS policy for the given origins. "*" allows any
// origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
	})
	return c.Handler
}
