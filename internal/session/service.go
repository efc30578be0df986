package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/merchkit/storefront/internal/upstream"
	pkgerrors "github.com/merchkit/storefront/pkg/errors"
	"github.com/merchkit/storefront/pkg/logger"
)

// CheckoutForm is the customer-facing submit payload. Validation tags run at
// the HTTP edge before the service is invoked.
type CheckoutForm struct {
	CustomerName        string `json:"customer_name" validate:"required,min=2,max=120"`
	CustomerEmail       string `json:"customer_email" validate:"required,email"`
	CustomerPhone       string `json:"customer_phone" validate:"required,min=5,max=32"`
	DeliveryAddress     string `json:"delivery_address" validate:"max=240"`
	DeliveryMethod      string `json:"delivery_method" validate:"required,oneof=delivery pickup"`
	PaymentMethod       string `json:"payment_method" validate:"required,max=40"`
	SpecialInstructions string `json:"special_instructions" validate:"max=500"`
	PromotionCode       string `json:"promotion_code" validate:"max=40"`
}

// Service drives the visitor cart and checkout flow. Every mutation calls the
// store API through the per-store client and treats its response as the
// authoritative cart.
type Service interface {
	View(ctx context.Context, storeSlug, sessionID string) (*Session, error)
	SetCategory(ctx context.Context, storeSlug, sessionID, category string) (*Session, error)
	AddToCart(ctx context.Context, api upstream.API, storeSlug, sessionID, productID string, quantity int) (*Session, error)
	UpdateQuantity(ctx context.Context, api upstream.API, storeSlug, sessionID, productID string, quantity int) (*Session, error)
	BeginCheckout(ctx context.Context, storeSlug, sessionID string) (*Session, error)
	ReturnToCart(ctx context.Context, storeSlug, sessionID string) (*Session, error)
	SubmitCheckout(ctx context.Context, api upstream.API, storeSlug, sessionID string, form CheckoutForm) (*Session, error)
}

type service struct {
	sessions *Manager
	logger   *logger.Logger
}

// NewService builds the cart/checkout service on top of the session manager.
func NewService(sessions *Manager, logg *logger.Logger) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	return &service{sessions: sessions, logger: logg}, nil
}

func (s *service) View(ctx context.Context, storeSlug, sessionID string) (*Session, error) {
	return s.sessions.Load(ctx, storeSlug, sessionID)
}

// SetCategory remembers the selected category so fragment responses keep the
// visitor's filter.
func (s *service) SetCategory(ctx context.Context, storeSlug, sessionID, category string) (*Session, error) {
	return s.sessions.Mutate(ctx, storeSlug, sessionID, func(sess *Session) error {
		sess.CurrentCategory = category
		return nil
	})
}

// AddToCart adds one unit of the product. The returned server cart replaces
// the session cart wholesale; on failure the cart is left untouched so the
// visitor keeps what they had.
func (s *service) AddToCart(ctx context.Context, api upstream.API, storeSlug, sessionID, productID string, quantity int) (*Session, error) {
	if quantity <= 0 {
		quantity = 1
	}
	return s.sessions.Mutate(ctx, storeSlug, sessionID, func(sess *Session) error {
		if sess.Phase == PhaseOrderPlaced {
			// A new order starts from a clean slate.
			sess.LastOrder = nil
			sess.Phase = PhaseEmpty
		}
		cart, err := api.AddToCart(ctx, productID, quantity, nil)
		if err != nil {
			return err
		}
		sess.replaceCart(*cart)
		return nil
	})
}

// UpdateQuantity re-issues the add call with the absolute quantity. A
// quantity of zero or less is an explicit no-op until the store API grows a
// remove endpoint.
func (s *service) UpdateQuantity(ctx context.Context, api upstream.API, storeSlug, sessionID, productID string, quantity int) (*Session, error) {
	if quantity <= 0 {
		return s.sessions.Load(ctx, storeSlug, sessionID)
	}
	return s.sessions.Mutate(ctx, storeSlug, sessionID, func(sess *Session) error {
		if sess.quantityOf(productID) == quantity {
			return nil
		}
		cart, err := api.AddToCart(ctx, productID, quantity, nil)
		if err != nil {
			return err
		}
		sess.replaceCart(*cart)
		return nil
	})
}

// BeginCheckout refuses an empty cart without touching the store API.
func (s *service) BeginCheckout(ctx context.Context, storeSlug, sessionID string) (*Session, error) {
	return s.sessions.Mutate(ctx, storeSlug, sessionID, func(sess *Session) error {
		if sess.Cart.IsEmpty() {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot check out an empty cart")
		}
		sess.Phase = PhaseCheckoutInProgress
		return nil
	})
}

// ReturnToCart backs out of checkout without losing the cart.
func (s *service) ReturnToCart(ctx context.Context, storeSlug, sessionID string) (*Session, error) {
	return s.sessions.Mutate(ctx, storeSlug, sessionID, func(sess *Session) error {
		if sess.Phase == PhaseCheckoutInProgress {
			sess.Phase = PhasePopulated
		}
		return nil
	})
}

// SubmitCheckout snapshots the cart into the order request and places the
// order. Success empties the cart and retains the confirmation; failure drops
// the session back to Populated with the cart intact.
func (s *service) SubmitCheckout(ctx context.Context, api upstream.API, storeSlug, sessionID string, form CheckoutForm) (*Session, error) {
	return s.sessions.Mutate(ctx, storeSlug, sessionID, func(sess *Session) error {
		if sess.Cart.IsEmpty() {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot check out an empty cart")
		}

		order := upstream.OrderRequest{
			CustomerName:        strings.TrimSpace(form.CustomerName),
			CustomerEmail:       strings.TrimSpace(form.CustomerEmail),
			CustomerPhone:       strings.TrimSpace(form.CustomerPhone),
			DeliveryAddress:     strings.TrimSpace(form.DeliveryAddress),
			DeliveryMethod:      form.DeliveryMethod,
			PaymentMethod:       form.PaymentMethod,
			SpecialInstructions: strings.TrimSpace(form.SpecialInstructions),
			CartItems:           sess.orderSnapshot(),
		}
		if code := strings.TrimSpace(form.PromotionCode); code != "" {
			order.PromotionCode = &code
		}

		confirmation, err := api.Checkout(ctx, order)
		if err != nil {
			sess.Phase = PhasePopulated
			return err
		}

		sess.replaceCart(upstream.Cart{})
		sess.Phase = PhaseOrderPlaced
		sess.LastOrder = confirmation
		if s.logger != nil {
			s.logger.Info(s.logger.WithOrderNumber(ctx, confirmation.OrderNumber), "order placed")
		}
		return nil
	})
}
