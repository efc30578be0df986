package controllers

import (
	"context"
	"net/http"

	"github.com/merchkit/storefront/api/responses"
	"github.com/merchkit/storefront/pkg/config"
	pkgerrors "github.com/merchkit/storefront/pkg/errors"
	"github.com/merchkit/storefront/pkg/logger"
)

// Pinger is the health-check surface a dependency exposes.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the dependencies the storefront cannot serve without:
// the session store and the upstream store API.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisP, upstreamP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		ctx := r.Context()

		checks := map[string]string{}
		healthy := true

		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}
		if upstreamP != nil {
			if err := upstreamP.Ping(ctx); err != nil {
				checks["upstream"] = err.Error()
				healthy = false
			} else {
				checks["upstream"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
