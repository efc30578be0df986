package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/merchkit/storefront/api/controllers"
	cartcontrollers "github.com/merchkit/storefront/api/controllers/cart"
	checkoutcontrollers "github.com/merchkit/storefront/api/controllers/checkout"
	storefrontcontrollers "github.com/merchkit/storefront/api/controllers/storefront"
	"github.com/merchkit/storefront/api/middleware"
	"github.com/merchkit/storefront/internal/render"
	sessionsvc "github.com/merchkit/storefront/internal/session"
	storefrontsvc "github.com/merchkit/storefront/internal/storefront"
	"github.com/merchkit/storefront/internal/upstream"
	"github.com/merchkit/storefront/pkg/config"
	"github.com/merchkit/storefront/pkg/logger"
	"github.com/merchkit/storefront/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	upstreamClient *upstream.Client,
	loader *storefrontsvc.Loader,
	sessions sessionsvc.Service,
	engine *render.Engine,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	// Concrete nils must not leak into interfaces, so the wiring below is
	// conditional.
	var redisP, upstreamP controllers.Pinger
	if redisClient != nil {
		redisP = redisClient
	}
	if upstreamClient != nil {
		upstreamP = upstreamClient
	}
	var throttleStore middleware.RateLimiterStore
	if redisClient != nil {
		throttleStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisP, upstreamP))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/store/{slug}", func(r chi.Router) {
		r.Use(middleware.VisitorSession(cfg.Session, logg))

		r.Get("/", storefrontcontrollers.Page(loader, sessions, engine, logg))
		r.Get("/order/{orderNumber}", storefrontcontrollers.OrderStatus(upstreamClient, loader, engine, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Panel(sessions, loader, engine, logg))
			r.Post("/items", cartcontrollers.Add(upstreamClient, sessions, loader, engine, logg))
			r.Post("/items/{productId}/quantity", cartcontrollers.UpdateQuantity(upstreamClient, sessions, loader, engine, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutcontrollers.Begin(sessions, loader, engine, logg))
			r.Post("/cancel", checkoutcontrollers.Cancel(sessions, loader, engine, logg))
			r.With(middleware.CheckoutThrottle(cfg.Throttle, throttleStore, logg)).
				Post("/submit", checkoutcontrollers.Submit(upstreamClient, sessions, loader, engine, logg))
		})
	})

	return r
}
