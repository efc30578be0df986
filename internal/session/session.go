package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/merchkit/storefront/internal/upstream"
)

// Phase tracks where a visitor is in the browse-to-order flow.
type Phase string

const (
	PhaseEmpty              Phase = "empty"
	PhasePopulated          Phase = "populated"
	PhaseCheckoutInProgress Phase = "checkout_in_progress"
	PhaseOrderPlaced        Phase = "order_placed"
)

// Session is the per-visitor snapshot persisted between requests. Cart
// contents are upstream-authoritative; the session only holds the last cart
// the store API returned.
type Session struct {
	ID              string                      `json:"id"`
	StoreSlug       string                      `json:"store_slug"`
	Phase           Phase                       `json:"phase"`
	Cart            upstream.Cart               `json:"cart"`
	CurrentCategory string                      `json:"current_category"`
	LastOrder       *upstream.OrderConfirmation `json:"last_order,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// NewSession returns a fresh empty-phase session for the store.
func NewSession(storeSlug string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		StoreSlug: storeSlug,
		Phase:     PhaseEmpty,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// replaceCart swallows the server-computed cart wholesale and realigns the
// phase with its contents. Nothing is recomputed locally.
func (s *Session) replaceCart(cart upstream.Cart) {
	s.Cart = cart
	if cart.IsEmpty() {
		s.Phase = PhaseEmpty
	} else if s.Phase != PhaseCheckoutInProgress {
		s.Phase = PhasePopulated
	}
	s.UpdatedAt = time.Now().UTC()
}

func (s *Session) quantityOf(productID string) int {
	for _, item := range s.Cart.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// orderSnapshot copies the cart lines into order items. The order carries a
// literal snapshot of what the customer saw, never live cart state.
func (s *Session) orderSnapshot() []upstream.OrderItem {
	items := make([]upstream.OrderItem, 0, len(s.Cart.Items))
	for _, item := range s.Cart.Items {
		items = append(items, upstream.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return items
}
