package upstream

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/merchkit/storefront/pkg/errors"
)

// API is the store-facing surface consumed by the session manager and the
// storefront loader.
type API interface {
	GetStore(ctx context.Context) (*Store, error)
	GetProducts(ctx context.Context, filters ProductFilters) ([]Product, error)
	GetCategories(ctx context.Context) ([]Category, error)
	GetPromotions(ctx context.Context) ([]Promotion, error)
	AddToCart(ctx context.Context, productID string, quantity int, variants map[string]string) (*Cart, error)
	Checkout(ctx context.Context, order OrderRequest) (*OrderConfirmation, error)
	GetOrderStatus(ctx context.Context, orderNumber string) (*Order, error)
}

var _ API = (*StoreClient)(nil)

// GetStore fetches the store settings. Failure is fatal to initialization.
func (s *StoreClient) GetStore(ctx context.Context) (*Store, error) {
	var store Store
	if err := s.do(ctx, "get_store", http.MethodGet, "/settings", nil, nil, &store); err != nil {
		return nil, err
	}
	s.log(ctx, "response", "get_store", map[string]any{"store_id": store.ID})
	return &store, nil
}

// GetProducts fetches the catalog, constrained by the provided filters.
func (s *StoreClient) GetProducts(ctx context.Context, filters ProductFilters) ([]Product, error) {
	var products []Product
	if err := s.do(ctx, "get_products", http.MethodGet, "/products", filters.encode(), nil, &products); err != nil {
		return nil, err
	}
	s.log(ctx, "response", "get_products", map[string]any{"count": len(products)})
	return products, nil
}

func (s *StoreClient) GetCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.do(ctx, "get_categories", http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetPromotions fetches active promotions. Callers must treat failure as
// "no active promotions", never as a fatal initialization error.
func (s *StoreClient) GetPromotions(ctx context.Context) ([]Promotion, error) {
	var promotions []Promotion
	if err := s.do(ctx, "get_promotions", http.MethodGet, "/promotions", nil, nil, &promotions); err != nil {
		return nil, err
	}
	return promotions, nil
}

type addToCartRequest struct {
	ProductID string            `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Variants  map[string]string `json:"variants,omitempty"`
}

// AddToCart submits an absolute quantity for the product and returns the full
// replacement cart computed by the server.
func (s *StoreClient) AddToCart(ctx context.Context, productID string, quantity int, variants map[string]string) (*Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	s.log(ctx, "request", "add_to_cart", map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})

	var cart Cart
	body := addToCartRequest{ProductID: productID, Quantity: quantity, Variants: variants}
	if err := s.do(ctx, "add_to_cart", http.MethodPost, "/cart", nil, body, &cart); err != nil {
		return nil, err
	}

	s.log(ctx, "response", "add_to_cart", map[string]any{
		"items": len(cart.Items),
		"total": cart.Total.String(),
	})
	return &cart, nil
}

// Checkout places an order from the snapshotted cart items.
func (s *StoreClient) Checkout(ctx context.Context, order OrderRequest) (*OrderConfirmation, error) {
	if len(order.CartItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must include cart items")
	}

	s.log(ctx, "request", "checkout", map[string]any{
		"customer_name":   order.CustomerName,
		"delivery_method": order.DeliveryMethod,
		"payment_method":  order.PaymentMethod,
		"items":           len(order.CartItems),
	})

	var confirmation OrderConfirmation
	if err := s.do(ctx, "checkout", http.MethodPost, "/checkout", nil, order, &confirmation); err != nil {
		return nil, err
	}

	s.log(ctx, "response", "checkout", map[string]any{
		"order_number": confirmation.OrderNumber,
		"status":       confirmation.Status,
	})
	return &confirmation, nil
}

// GetOrderStatus looks up an order by number. Read-only and safe to poll.
func (s *StoreClient) GetOrderStatus(ctx context.Context, orderNumber string) (*Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}

	var order Order
	if err := s.do(ctx, "get_order_status", http.MethodGet, "/order/"+orderNumber, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
