package checkout

import (
	"context"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/merchkit/storefront/api/middleware"
	"github.com/merchkit/storefront/api/responses"
	"github.com/merchkit/storefront/api/validators"
	"github.com/merchkit/storefront/internal/render"
	sessionsvc "github.com/merchkit/storefront/internal/session"
	storefrontsvc "github.com/merchkit/storefront/internal/storefront"
	"github.com/merchkit/storefront/internal/upstream"
	pkgerrors "github.com/merchkit/storefront/pkg/errors"
	"github.com/merchkit/storefront/pkg/logger"
)

// Begin moves the session into checkout and renders the form. An empty cart
// is refused before any upstream call.
func Begin(sessions sessionsvc.Service, loader *storefrontsvc.Loader, engine *render.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		ctx := requestContext(r, logg, slug)

		sess, err := sessions.BeginCheckout(ctx, slug, middleware.VisitorID(ctx))
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		store, err := loader.LoadStore(ctx, slug)
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		view := render.BuildCheckout(slug, store, sess.Cart, "")
		responses.WriteHTML(ctx, logg, w, http.StatusOK, func(out io.Writer) error {
			return engine.CheckoutForm(out, view)
		})
	}
}

// Submit validates the customer form and places the order. A failed submit
// re-renders the form with the message inline; the cart survives.
func Submit(client *upstream.Client, sessions sessionsvc.Service, loader *storefrontsvc.Loader, engine *render.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		ctx := requestContext(r, logg, slug)
		visitorID := middleware.VisitorID(ctx)

		store, err := loader.LoadStore(ctx, slug)
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		form, err := parseForm(r)
		if err == nil {
			err = validateDeliveryMethod(form, store)
		}
		if err != nil {
			rerenderForm(ctx, logg, sessions, engine, w, slug, visitorID, store, err)
			return
		}

		api, err := client.ForStore(slug)
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		sess, err := sessions.SubmitCheckout(ctx, api, slug, visitorID, form)
		if err != nil {
			rerenderForm(ctx, logg, sessions, engine, w, slug, visitorID, store, err)
			return
		}

		view := render.BuildConfirmation(sess.LastOrder, store.Configuration.Currency)
		responses.WriteHTML(ctx, logg, w, http.StatusOK, func(out io.Writer) error {
			return engine.Confirmation(out, view)
		})
	}
}

// Cancel backs the session out of checkout and returns the cart fragment.
func Cancel(sessions sessionsvc.Service, loader *storefrontsvc.Loader, engine *render.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		ctx := requestContext(r, logg, slug)

		sess, err := sessions.ReturnToCart(ctx, slug, middleware.VisitorID(ctx))
		if err != nil {
			writeInline(ctx, logg, engine, w, err)
			return
		}

		currency := "USD"
		if store, storeErr := loader.LoadStore(ctx, slug); storeErr == nil && store != nil {
			currency = store.Configuration.Currency
		}
		view := render.BuildCart(sess.Cart, currency)
		view.StoreSlug = slug
		responses.WriteHTML(ctx, logg, w, http.StatusOK, func(out io.Writer) error {
			return engine.CartPanel(out, view)
		})
	}
}

func parseForm(r *http.Request) (sessionsvc.CheckoutForm, error) {
	var form sessionsvc.CheckoutForm
	if err := r.ParseForm(); err != nil {
		return form, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form submission")
	}
	form = sessionsvc.CheckoutForm{
		CustomerName:        strings.TrimSpace(r.PostFormValue("customer_name")),
		CustomerEmail:       strings.TrimSpace(r.PostFormValue("customer_email")),
		CustomerPhone:       strings.TrimSpace(r.PostFormValue("customer_phone")),
		DeliveryAddress:     strings.TrimSpace(r.PostFormValue("delivery_address")),
		DeliveryMethod:      strings.TrimSpace(r.PostFormValue("delivery_method")),
		PaymentMethod:       strings.TrimSpace(r.PostFormValue("payment_method")),
		SpecialInstructions: strings.TrimSpace(r.PostFormValue("special_instructions")),
		PromotionCode:       strings.TrimSpace(r.PostFormValue("promotion_code")),
	}
	if err := validators.ValidateStruct(&form); err != nil {
		return form, err
	}
	return form, nil
}

// validateDeliveryMethod rejects methods the store has not enabled; a
// delivery order also needs an address.
func validateDeliveryMethod(form sessionsvc.CheckoutForm, store *upstream.Store) error {
	enabled := store.Configuration.DeliveryMethods()
	if !slices.Contains(enabled, form.DeliveryMethod) {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery method not offered by this store")
	}
	if form.DeliveryMethod == "delivery" && form.DeliveryAddress == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required for delivery orders")
	}
	return nil
}

func rerenderForm(ctx context.Context, logg *logger.Logger, sessions sessionsvc.Service, engine *render.Engine, w http.ResponseWriter, slug, visitorID string, store *upstream.Store, cause error) {
	responses.LogError(ctx, logg, cause)
	status, msg := responses.Resolve(cause)

	sess, err := sessions.View(ctx, slug, visitorID)
	if err != nil {
		writeInline(ctx, logg, engine, w, cause)
		return
	}

	view := render.BuildCheckout(slug, store, sess.Cart, msg)
	responses.WriteHTML(ctx, logg, w, status, func(out io.Writer) error {
		return engine.CheckoutForm(out, view)
	})
}

func requestContext(r *http.Request, logg *logger.Logger, slug string) context.Context {
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithStoreSlug(ctx, slug)
	}
	return ctx
}

func writeInline(ctx context.Context, logg *logger.Logger, engine *render.Engine, w http.ResponseWriter, err error) {
	responses.LogError(ctx, logg, err)
	status, msg := responses.Resolve(err)
	responses.WriteHTML(ctx, logg, w, status, func(out io.Writer) error {
		return engine.InlineMessage(out, msg)
	})
}
