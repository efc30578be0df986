package cart

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/merchkit/storefront/api/middleware"
	"github.com/merchkit/storefront/api/responses"
	"github.com/merchkit/storefront/internal/render"
	sessionsvc "github.com/merchkit/storefront/internal/session"
	storefrontsvc "github.com/merchkit/storefront/internal/storefront"
	"github.com/merchkit/storefront/internal/upstream"
	pkgerrors "github.com/merchkit/storefront/pkg/errors"
	"github.com/merchkit/storefront/pkg/logger"
)

// Add puts one unit of a product in the visitor's cart and responds with the
// refreshed cart fragment. Failures become an inline message so the visitor
// keeps the cart they had.
func Add(client *upstream.Client, sessions sessionsvc.Service, loader *storefrontsvc.Loader, engine *render.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		ctx := requestContext(r, logg, slug)

		if err := r.ParseForm(); err != nil {
			writeInline(ctx, logg, engine, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form submission"))
			return
		}
		productID := strings.TrimSpace(r.PostFormValue("product_id"))
		quantity := formQuantity(r, 1)

		api, err := client.ForStore(slug)
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		sess, err := sessions.AddToCart(ctx, api, slug, middleware.VisitorID(ctx), productID, quantity)
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		writeCart(ctx, logg, loader, engine, w, slug, sess)
	}
}

// UpdateQuantity sets the absolute quantity for a cart line. Zero and below
// deliberately change nothing.
func UpdateQuantity(client *upstream.Client, sessions sessionsvc.Service, loader *storefrontsvc.Loader, engine *render.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		productID := chi.URLParam(r, "productId")
		ctx := requestContext(r, logg, slug)

		if err := r.ParseForm(); err != nil {
			writeInline(ctx, logg, engine, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form submission"))
			return
		}
		quantity := formQuantity(r, 0)

		api, err := client.ForStore(slug)
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		sess, err := sessions.UpdateQuantity(ctx, api, slug, middleware.VisitorID(ctx), productID, quantity)
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		writeCart(ctx, logg, loader, engine, w, slug, sess)
	}
}

// Panel returns the current cart fragment.
func Panel(sessions sessionsvc.Service, loader *storefrontsvc.Loader, engine *render.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		ctx := requestContext(r, logg, slug)

		sess, err := sessions.View(ctx, slug, middleware.VisitorID(ctx))
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		writeCart(ctx, logg, loader, engine, w, slug, sess)
	}
}

func requestContext(r *http.Request, logg *logger.Logger, slug string) context.Context {
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithStoreSlug(ctx, slug)
	}
	return ctx
}

func formQuantity(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.PostFormValue("quantity"))
	if raw == "" {
		return fallback
	}
	quantity, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return quantity
}

func writeCart(ctx context.Context, logg *logger.Logger, loader *storefrontsvc.Loader, engine *render.Engine, w http.ResponseWriter, slug string, sess *sessionsvc.Session) {
	currency := "USD"
	if store, err := loader.LoadStore(ctx, slug); err == nil && store != nil {
		currency = store.Configuration.Currency
	}

	view := render.BuildCart(sess.Cart, currency)
	view.StoreSlug = slug
	responses.WriteHTML(ctx, logg, w, http.StatusOK, func(out io.Writer) error {
		return engine.CartPanel(out, view)
	})
}

func writeInline(ctx context.Context, logg *logger.Logger, engine *render.Engine, w http.ResponseWriter, err error) {
	responses.LogError(ctx, logg, err)
	status, msg := responses.Resolve(err)
	responses.WriteHTML(ctx, logg, w, status, func(out io.Writer) error {
		return engine.InlineMessage(out, msg)
	})
}
