package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/merchkit/storefront/api/responses"
	"github.com/merchkit/storefront/pkg/config"
	pkgerrors "github.com/merchkit/storefront/pkg/errors"
	"github.com/merchkit/storefront/pkg/logger"
)

// RateLimiterStore is the counter surface the throttle needs from Redis.
type RateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// CheckoutThrottle applies a fixed-window limit to order submissions, scoped
// per visitor and store. The store API has its own protections; this keeps a
// stuck retry loop from hammering it.
func CheckoutThrottle(cfg config.ThrottleConfig, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.CheckoutLimit <= 0 || cfg.CheckoutWindow <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope := "checkout:" + chi.URLParam(r, "slug") + ":" + VisitorID(ctx)

			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(cfg.CheckoutLimit), cfg.CheckoutWindow)
			if err != nil {
				// Redis trouble must not block orders.
				if logg != nil {
					logg.Error(ctx, "checkout throttle unavailable", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "attempts", count), "checkout throttled")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many checkout attempts, please wait a moment"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
