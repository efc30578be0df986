package render

import (
	"html/template"
	"strings"

	"github.com/merchkit/storefront/internal/upstream"
)

// CategoryAll is the sentinel selection meaning "no category filter".
const CategoryAll = "all"

// placeholderImage is the deterministic fallback shown for missing or broken
// product images. A data URI cannot itself fail to load, and the one-shot
// onerror guard in the template prevents an error loop regardless.
const placeholderImage = "data:image/svg+xml;charset=utf-8," +
	"%3Csvg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 120 120'%3E" +
	"%3Crect width='120' height='120' fill='%23e5e7eb'/%3E" +
	"%3Cpath d='M30 84l20-26 14 18 10-12 16 20z' fill='%239ca3af'/%3E" +
	"%3Ccircle cx='44' cy='42' r='8' fill='%239ca3af'/%3E%3C/svg%3E"

// HeaderView is the typed model behind the store header.
type HeaderView struct {
	Name        string
	Description string
	LogoURL     string
	HasLogo     bool
	Initials    string
	Email       string
	Phone       string
	Address     string
	Social      []SocialLinkView
}

type SocialLinkView struct {
	Label string
	URL   string
}

type ProductView struct {
	ID          string
	Name        string
	Description string
	PriceLabel  string
	Category    string
	ImageURL    string
	HasImage    bool
	// Placeholder is a fixed data URI; typing it template.URL keeps the
	// contextual escaper from rewriting the scheme.
	Placeholder template.URL
	Available   bool
	Tags        []string
}

type CategoryView struct {
	Name         string
	ProductCount int
	Selected     bool
}

type PromotionView struct {
	Name        string
	Description string
	Code        string
}

type CartItemView struct {
	ProductID  string
	Name       string
	Quantity   int
	UnitPrice  string
	TotalPrice string
}

type CartView struct {
	StoreSlug string
	Items     []CartItemView
	Subtotal  string
	Tax       string
	Total     string
	Count     int
	Empty     bool
}

// ProductGridView distinguishes an empty store from an empty category so the
// two empty states render different messages.
type ProductGridView struct {
	Products      []ProductView
	StoreEmpty    bool
	CategoryEmpty bool
	Category      string
}

type CheckoutView struct {
	StoreSlug       string
	DeliveryMethods []string
	PaymentMethods  []string
	Cart            CartView
	Error           string
}

type ConfirmationView struct {
	OrderNumber string
	Status      string
	Total       string
	TrackingURL string
}

type OrderStatusView struct {
	OrderNumber string
	Status      string
	Total       string
	TrackingURL string
}

type PageView struct {
	Header     HeaderView
	Promotions []PromotionView
	Categories []CategoryView
	Grid       ProductGridView
	Cart       CartView
	StoreSlug  string
}

type ErrorPageView struct {
	Message  string
	RetryURL string
}

// BuildHeader maps the store settings onto the header model, deriving the
// initials badge used when the logo is absent or broken.
func BuildHeader(store *upstream.Store) HeaderView {
	view := HeaderView{
		Name:        store.Name,
		Description: store.Description,
		Initials:    Initials(store.Name),
		Email:       store.Email,
		Phone:       store.Phone,
		Address:     store.Address,
	}
	if store.LogoURL != nil && strings.TrimSpace(*store.LogoURL) != "" {
		view.LogoURL = strings.TrimSpace(*store.LogoURL)
		view.HasLogo = true
	}
	view.Social = buildSocial(store.Social)
	return view
}

func buildSocial(links upstream.SocialLinks) []SocialLinkView {
	var views []SocialLinkView
	add := func(label string, value *string) {
		if value == nil || strings.TrimSpace(*value) == "" {
			return
		}
		views = append(views, SocialLinkView{Label: label, URL: strings.TrimSpace(*value)})
	}
	add("Facebook", links.Facebook)
	add("Instagram", links.Instagram)
	add("Twitter", links.Twitter)
	add("Website", links.Website)
	return views
}

// BuildProduct never fails on missing optional fields; absent descriptions,
// images, and tags simply leave their slots empty.
func BuildProduct(product upstream.Product, currencyCode string) ProductView {
	view := ProductView{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		PriceLabel:  FormatPrice(product.Price, currencyCode),
		Category:    product.Category,
		Placeholder: template.URL(placeholderImage),
		Available:   product.Available,
	}
	if product.ImageURL != nil && strings.TrimSpace(*product.ImageURL) != "" {
		view.ImageURL = strings.TrimSpace(*product.ImageURL)
		view.HasImage = true
	}
	for _, tag := range product.Tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		view.Tags = append(view.Tags, tag)
	}
	return view
}

// BuildGrid filters by exact, case-sensitive category match unless the
// sentinel "all" is selected.
func BuildGrid(products []upstream.Product, currentCategory, currencyCode string) ProductGridView {
	grid := ProductGridView{Category: currentCategory}
	if len(products) == 0 {
		grid.StoreEmpty = true
		return grid
	}

	for _, product := range products {
		if currentCategory != CategoryAll && product.Category != currentCategory {
			continue
		}
		grid.Products = append(grid.Products, BuildProduct(product, currencyCode))
	}
	if len(grid.Products) == 0 {
		grid.CategoryEmpty = true
	}
	return grid
}

func BuildCategories(categories []upstream.Category, currentCategory string) []CategoryView {
	views := make([]CategoryView, 0, len(categories)+1)
	views = append(views, CategoryView{Name: CategoryAll, Selected: currentCategory == CategoryAll})
	for _, category := range categories {
		views = append(views, CategoryView{
			Name:         category.Name,
			ProductCount: category.ProductCount,
			Selected:     category.Name == currentCategory,
		})
	}
	return views
}

func BuildPromotions(promotions []upstream.Promotion) []PromotionView {
	views := make([]PromotionView, 0, len(promotions))
	for _, promo := range promotions {
		view := PromotionView{Name: promo.Name, Description: promo.Description}
		if promo.Code != nil {
			view.Code = strings.TrimSpace(*promo.Code)
		}
		views = append(views, view)
	}
	return views
}

// BuildCart renders the literal server-computed cart; no totals are derived
// here.
func BuildCart(cart upstream.Cart, currencyCode string) CartView {
	view := CartView{
		Subtotal: FormatPrice(cart.Subtotal, currencyCode),
		Tax:      FormatPrice(cart.Tax, currencyCode),
		Total:    FormatPrice(cart.Total, currencyCode),
		Count:    cart.ItemCount(),
		Empty:    cart.IsEmpty(),
	}
	for _, item := range cart.Items {
		view.Items = append(view.Items, CartItemView{
			ProductID:  item.ProductID,
			Name:       item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  FormatPrice(item.UnitPrice, currencyCode),
			TotalPrice: FormatPrice(item.TotalPrice, currencyCode),
		})
	}
	return view
}

func BuildCheckout(slug string, store *upstream.Store, cart upstream.Cart, errMessage string) CheckoutView {
	cartView := BuildCart(cart, store.Configuration.Currency)
	cartView.StoreSlug = slug
	return CheckoutView{
		StoreSlug:       slug,
		DeliveryMethods: store.Configuration.DeliveryMethods(),
		PaymentMethods:  store.Configuration.PaymentMethods,
		Cart:            cartView,
		Error:           errMessage,
	}
}

// BuildPage assembles the full storefront page model.
func BuildPage(slug string, store *upstream.Store, products []upstream.Product, categories []upstream.Category, promotions []upstream.Promotion, cart upstream.Cart, currentCategory string) PageView {
	if currentCategory == "" {
		currentCategory = CategoryAll
	}
	currencyCode := store.Configuration.Currency
	cartView := BuildCart(cart, currencyCode)
	cartView.StoreSlug = slug
	return PageView{
		Header:     BuildHeader(store),
		Promotions: BuildPromotions(promotions),
		Categories: BuildCategories(categories, currentCategory),
		Grid:       BuildGrid(products, currentCategory, currencyCode),
		Cart:       cartView,
		StoreSlug:  slug,
	}
}

func BuildConfirmation(confirmation *upstream.OrderConfirmation, currencyCode string) ConfirmationView {
	view := ConfirmationView{
		OrderNumber: confirmation.OrderNumber,
		Status:      confirmation.Status,
		Total:       FormatPrice(confirmation.Total, currencyCode),
	}
	if confirmation.TrackingURL != nil {
		view.TrackingURL = strings.TrimSpace(*confirmation.TrackingURL)
	}
	return view
}

func BuildOrderStatus(order *upstream.Order, currencyCode string) OrderStatusView {
	view := OrderStatusView{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       FormatPrice(order.Total, currencyCode),
	}
	if order.TrackingURL != nil {
		view.TrackingURL = strings.TrimSpace(*order.TrackingURL)
	}
	return view
}
