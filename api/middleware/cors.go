package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/merchkit/storefront/pkg/config"
)

// CORS applies the configured origin policy. The storefront is meant to be
// embedded, so the default is permissive.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}).Handler
}
