package upstream

import "github.com/shopspring/decimal"

// Store carries the merchant identity and display configuration returned by
// the settings endpoint. It is immutable for the lifetime of a page session.
type Store struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	Address       string             `json:"address"`
	LogoURL       *string            `json:"logo_url"`
	Social        SocialLinks        `json:"social_links"`
	Configuration StoreConfiguration `json:"configuration"`
}

type SocialLinks struct {
	Facebook  *string `json:"facebook,omitempty"`
	Instagram *string `json:"instagram,omitempty"`
	Twitter   *string `json:"twitter,omitempty"`
	Website   *string `json:"website,omitempty"`
}

type StoreConfiguration struct {
	Currency        string          `json:"currency"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	DeliveryEnabled bool            `json:"delivery_enabled"`
	PickupEnabled   bool            `json:"pickup_enabled"`
	PaymentMethods  []string        `json:"payment_methods"`
}

// DeliveryMethods lists the fulfillment options the store has enabled.
func (c StoreConfiguration) DeliveryMethods() []string {
	var methods []string
	if c.DeliveryEnabled {
		methods = append(methods, "delivery")
	}
	if c.PickupEnabled {
		methods = append(methods, "pickup")
	}
	return methods
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"image_url"`
	// Stock is nil when the store does not track inventory for the product.
	Stock     *int     `json:"stock_quantity"`
	Available bool     `json:"available"`
	Tags      []string `json:"tags"`
}

type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

type Promotion struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Code          *string         `json:"code,omitempty"`
	MinOrderTotal *decimal.Decimal `json:"min_order_total,omitempty"`
}

// Cart is the server-authoritative aggregate. Subtotal, tax, and total are
// computed by the store API and rendered verbatim, never recomputed here.
type Cart struct {
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount sums the quantities across all lines, for the cart badge.
func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

type CartItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// OrderRequest is the checkout payload. CartItems is a literal snapshot of
// what the customer saw, never a reference to live cart state.
type OrderRequest struct {
	CustomerName        string      `json:"customer_name"`
	CustomerEmail       string      `json:"customer_email"`
	CustomerPhone       string      `json:"customer_phone"`
	DeliveryAddress     string      `json:"delivery_address"`
	DeliveryMethod      string      `json:"delivery_method"`
	PaymentMethod       string      `json:"payment_method"`
	SpecialInstructions string      `json:"special_instructions"`
	CartItems           []OrderItem `json:"cart_items"`
	PromotionCode       *string     `json:"promotion_code,omitempty"`
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderConfirmation struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	TrackingURL *string         `json:"tracking_url,omitempty"`
}

type Order struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	TrackingURL *string         `json:"tracking_url,omitempty"`
}
