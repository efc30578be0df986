package storefront

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/merchkit/storefront/api/middleware"
	"github.com/merchkit/storefront/api/responses"
	"github.com/merchkit/storefront/internal/render"
	sessionsvc "github.com/merchkit/storefront/internal/session"
	storefrontsvc "github.com/merchkit/storefront/internal/storefront"
	"github.com/merchkit/storefront/internal/upstream"
	"github.com/merchkit/storefront/pkg/logger"
)

// Page renders the full storefront for a store slug. A fatal catalog failure
// renders the retry page; it never shows a partial grid.
func Page(loader *storefrontsvc.Loader, sessions sessionsvc.Service, engine *render.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithStoreSlug(ctx, slug)
		}

		filters := filtersFromQuery(r)
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		if category == "" {
			category = render.CategoryAll
		}

		snapshot, err := loader.Load(ctx, slug, filters)
		if err != nil {
			writeErrorPage(ctx, logg, engine, w, r, err)
			return
		}

		visitorID := middleware.VisitorID(ctx)
		sess, err := sessions.View(ctx, slug, visitorID)
		if err != nil {
			responses.LogError(ctx, logg, err)
			sess = sessionsvc.NewSession(slug)
		}
		if sess.CurrentCategory != category {
			if _, err := sessions.SetCategory(ctx, slug, visitorID, category); err != nil {
				responses.LogError(ctx, logg, err)
			}
		}

		view := render.BuildPage(slug, snapshot.Store, snapshot.Products, snapshot.Categories, snapshot.Promotions, sess.Cart, category)
		responses.WriteHTML(ctx, logg, w, http.StatusOK, func(out io.Writer) error {
			return engine.Page(out, view)
		})
	}
}

// OrderStatus renders the status page for a placed order.
func OrderStatus(client *upstream.Client, loader *storefrontsvc.Loader, engine *render.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		orderNumber := chi.URLParam(r, "orderNumber")
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderNumber(logg.WithStoreSlug(ctx, slug), orderNumber)
		}

		api, err := client.ForStore(slug)
		if err != nil {
			writeErrorPage(ctx, logg, engine, w, r, err)
			return
		}

		order, err := api.GetOrderStatus(ctx, orderNumber)
		if err != nil {
			writeErrorPage(ctx, logg, engine, w, r, err)
			return
		}

		currency := "USD"
		if store, storeErr := loader.LoadStore(ctx, slug); storeErr == nil && store != nil {
			currency = store.Configuration.Currency
		}

		view := render.BuildOrderStatus(order, currency)
		responses.WriteHTML(ctx, logg, w, http.StatusOK, func(out io.Writer) error {
			return engine.OrderStatus(out, view)
		})
	}
}

func filtersFromQuery(r *http.Request) upstream.ProductFilters {
	query := r.URL.Query()
	var filters upstream.ProductFilters

	if search := strings.TrimSpace(query.Get("search")); search != "" {
		filters.Search = &search
	}
	if raw := query.Get("min_price"); raw != "" {
		if value, err := decimal.NewFromString(raw); err == nil {
			filters.MinPrice = &value
		}
	}
	if raw := query.Get("max_price"); raw != "" {
		if value, err := decimal.NewFromString(raw); err == nil {
			filters.MaxPrice = &value
		}
	}
	if raw := query.Get("in_stock"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			filters.InStock = &value
		}
	}
	return filters
}

// writeErrorPage renders the full retry view with the customer-safe message
// for the failure.
func writeErrorPage(ctx context.Context, logg *logger.Logger, engine *render.Engine, w http.ResponseWriter, r *http.Request, err error) {
	responses.LogError(ctx, logg, err)
	status, msg := responses.Resolve(err)
	view := render.ErrorPageView{Message: msg, RetryURL: r.URL.RequestURI()}
	responses.WriteHTML(ctx, logg, w, status, func(out io.Writer) error {
		return engine.ErrorPage(out, view)
	})
}
