package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/merchkit/storefront/pkg/config"
	"github.com/merchkit/storefront/pkg/logger"
)

type contextKey string

const visitorIDKey contextKey = "visitor_id"

// VisitorID returns the session id assigned by VisitorSession, or "" when the
// middleware did not run.
func VisitorID(ctx context.Context) string {
	id, _ := ctx.Value(visitorIDKey).(string)
	return id
}

// VisitorSession assigns each visitor a stable uuid cookie. The id keys the
// Redis session snapshot; nothing sensitive lives in the cookie itself.
func VisitorSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var visitorID string
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				if parsed, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					visitorID = parsed.String()
				}
			}
			if visitorID == "" {
				visitorID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), visitorIDKey, visitorID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, visitorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
