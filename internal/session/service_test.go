package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/merchkit/storefront/internal/upstream"
	"github.com/merchkit/storefront/pkg/config"
	pkgerrors "github.com/merchkit/storefront/pkg/errors"
	"github.com/merchkit/storefront/pkg/redis"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) SessionKey(storeSlug, sessionID string) string {
	return "sf:session:" + storeSlug + ":" + sessionID
}

type stubAPI struct {
	addCalls      atomic.Int64
	checkoutCalls atomic.Int64
	addFn         func(productID string, quantity int) (*upstream.Cart, error)
	checkoutFn    func(order upstream.OrderRequest) (*upstream.OrderConfirmation, error)
}

func (s *stubAPI) GetStore(context.Context) (*upstream.Store, error)          { return nil, nil }
func (s *stubAPI) GetCategories(context.Context) ([]upstream.Category, error) { return nil, nil }
func (s *stubAPI) GetPromotions(context.Context) ([]upstream.Promotion, error) {
	return nil, nil
}
func (s *stubAPI) GetProducts(context.Context, upstream.ProductFilters) ([]upstream.Product, error) {
	return nil, nil
}
func (s *stubAPI) GetOrderStatus(context.Context, string) (*upstream.Order, error) {
	return nil, nil
}

func (s *stubAPI) AddToCart(_ context.Context, productID string, quantity int, _ map[string]string) (*upstream.Cart, error) {
	s.addCalls.Add(1)
	return s.addFn(productID, quantity)
}

func (s *stubAPI) Checkout(_ context.Context, order upstream.OrderRequest) (*upstream.OrderConfirmation, error) {
	s.checkoutCalls.Add(1)
	return s.checkoutFn(order)
}

func serverCart(quantity int) *upstream.Cart {
	unit := decimal.RequireFromString("9.90")
	total := unit.Mul(decimal.NewFromInt(int64(quantity)))
	return &upstream.Cart{
		Items: []upstream.CartItem{{
			ProductID:   "p1",
			ProductName: "Margherita",
			Quantity:    quantity,
			UnitPrice:   unit,
			TotalPrice:  total,
		}},
		Subtotal: total,
		Tax:      total.Mul(decimal.RequireFromString("0.1")),
		Total:    total.Mul(decimal.RequireFromString("1.1")),
	}
}

func newTestService(t *testing.T) (Service, *Manager) {
	t.Helper()
	mgr, err := NewManager(newMemoryStore(), config.SessionConfig{TTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	svc, err := NewService(mgr, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, mgr
}

func TestAddToCartReplacesCartWholesale(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	api := &stubAPI{addFn: func(string, int) (*upstream.Cart, error) {
		return serverCart(2), nil
	}}

	sess, err := svc.AddToCart(context.Background(), api, "shop", "visitor-1", "p1", 1)
	if err != nil {
		t.Fatalf("AddToCart failed: %v", err)
	}
	if sess.Phase != PhasePopulated {
		t.Fatalf("phase = %q, want populated", sess.Phase)
	}
	// Server-computed quantity wins even though we asked for 1.
	if got := sess.Cart.Items[0].Quantity; got != 2 {
		t.Fatalf("quantity = %d, want the server's 2", got)
	}
	if sess.Cart.Total.String() != "21.78" {
		t.Fatalf("total = %s, want the server's 21.78", sess.Cart.Total)
	}
}

func TestFailedAddLeavesCartUntouched(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	calls := 0
	api := &stubAPI{addFn: func(string, int) (*upstream.Cart, error) {
		calls++
		if calls == 1 {
			return serverCart(1), nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeUpstream, "store api exploded")
	}}

	ctx := context.Background()
	if _, err := svc.AddToCart(ctx, api, "shop", "visitor-1", "p1", 1); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	sess, err := svc.AddToCart(ctx, api, "shop", "visitor-1", "p2", 1)
	if err == nil {
		t.Fatal("expected second add to fail")
	}
	if sess.Cart.ItemCount() != 1 || sess.Cart.Items[0].ProductID != "p1" {
		t.Fatalf("cart changed on failure: %+v", sess.Cart)
	}
	if sess.Phase != PhasePopulated {
		t.Fatalf("phase = %q, want populated", sess.Phase)
	}
}

func TestUpdateQuantityZeroIsNoOp(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	api := &stubAPI{addFn: func(string, int) (*upstream.Cart, error) {
		return serverCart(1), nil
	}}

	ctx := context.Background()
	if _, err := svc.AddToCart(ctx, api, "shop", "visitor-1", "p1", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	before := api.addCalls.Load()

	sess, err := svc.UpdateQuantity(ctx, api, "shop", "visitor-1", "p1", 0)
	if err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if api.addCalls.Load() != before {
		t.Fatal("zero quantity must not reach the store api")
	}
	if sess.Cart.ItemCount() != 1 {
		t.Fatalf("cart changed on no-op: %+v", sess.Cart)
	}
}

func TestUpdateQuantitySkipsUnchangedLines(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	api := &stubAPI{addFn: func(_ string, quantity int) (*upstream.Cart, error) {
		return serverCart(quantity), nil
	}}

	ctx := context.Background()
	if _, err := svc.AddToCart(ctx, api, "shop", "visitor-1", "p1", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	before := api.addCalls.Load()

	if _, err := svc.UpdateQuantity(ctx, api, "shop", "visitor-1", "p1", 1); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if api.addCalls.Load() != before {
		t.Fatal("matching quantity must not reach the store api")
	}

	sess, err := svc.UpdateQuantity(ctx, api, "shop", "visitor-1", "p1", 3)
	if err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if api.addCalls.Load() != before+1 {
		t.Fatal("changed quantity must reach the store api once")
	}
	if sess.Cart.Items[0].Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", sess.Cart.Items[0].Quantity)
	}
}

func TestBeginCheckoutRefusesEmptyCartWithoutUpstreamCall(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.BeginCheckout(context.Background(), "shop", "visitor-1")
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}
}

func TestSubmitCheckoutSnapshotsCart(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	var captured upstream.OrderRequest
	api := &stubAPI{
		addFn: func(string, int) (*upstream.Cart, error) { return serverCart(2), nil },
		checkoutFn: func(order upstream.OrderRequest) (*upstream.OrderConfirmation, error) {
			captured = order
			return &upstream.OrderConfirmation{
				OrderID:     "o-1",
				OrderNumber: "PF-1001",
				Status:      "received",
				Total:       decimal.RequireFromString("21.78"),
			}, nil
		},
	}

	ctx := context.Background()
	if _, err := svc.AddToCart(ctx, api, "shop", "visitor-1", "p1", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.BeginCheckout(ctx, "shop", "visitor-1"); err != nil {
		t.Fatalf("begin checkout failed: %v", err)
	}

	form := CheckoutForm{
		CustomerName:   "Ada Lovelace",
		CustomerEmail:  "ada@example.com",
		CustomerPhone:  "+1 555 0100",
		DeliveryMethod: "pickup",
		PaymentMethod:  "cash",
		PromotionCode:  "  SAVE10  ",
	}
	sess, err := svc.SubmitCheckout(ctx, api, "shop", "visitor-1", form)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if len(captured.CartItems) != 1 || captured.CartItems[0].ProductID != "p1" || captured.CartItems[0].Quantity != 2 {
		t.Fatalf("order snapshot does not match cart: %+v", captured.CartItems)
	}
	if captured.PromotionCode == nil || *captured.PromotionCode != "SAVE10" {
		t.Fatalf("promotion code not trimmed: %v", captured.PromotionCode)
	}
	if sess.Phase != PhaseOrderPlaced {
		t.Fatalf("phase = %q, want order_placed", sess.Phase)
	}
	if !sess.Cart.IsEmpty() {
		t.Fatal("cart must be reset after a placed order")
	}
	if sess.LastOrder == nil || sess.LastOrder.OrderNumber != "PF-1001" {
		t.Fatalf("confirmation not retained: %+v", sess.LastOrder)
	}
}

func TestSubmitCheckoutFailureFallsBackToPopulated(t *testing.T) {
	t.Parallel()

	svc, mgr := newTestService(t)
	api := &stubAPI{
		addFn: func(string, int) (*upstream.Cart, error) { return serverCart(1), nil },
		checkoutFn: func(upstream.OrderRequest) (*upstream.OrderConfirmation, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUpstream, "payment declined")
		},
	}

	ctx := context.Background()
	if _, err := svc.AddToCart(ctx, api, "shop", "visitor-1", "p1", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.BeginCheckout(ctx, "shop", "visitor-1"); err != nil {
		t.Fatalf("begin checkout failed: %v", err)
	}

	sess, err := svc.SubmitCheckout(ctx, api, "shop", "visitor-1", CheckoutForm{})
	if err == nil {
		t.Fatal("expected submit to fail")
	}
	if sess.Phase != PhasePopulated {
		t.Fatalf("phase = %q, want populated", sess.Phase)
	}
	if sess.Cart.IsEmpty() {
		t.Fatal("cart must survive a failed submit")
	}

	// The rollback must also be persisted, not just returned.
	stored, err := mgr.Load(ctx, "shop", "visitor-1")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.Phase != PhasePopulated {
		t.Fatalf("stored phase = %q, want populated", stored.Phase)
	}
}

func TestMutationsOnOneSessionSerialize(t *testing.T) {
	t.Parallel()

	svc, mgr := newTestService(t)
	var inFlight atomic.Int64
	var overlapped atomic.Bool
	api := &stubAPI{addFn: func(_ string, quantity int) (*upstream.Cart, error) {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return serverCart(quantity), nil
	}}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddToCart(ctx, api, "shop", "visitor-1", "p1", 1)
		}()
	}
	wg.Wait()

	if overlapped.Load() {
		t.Fatal("mutations on the same session must not overlap")
	}
	if got := api.addCalls.Load(); got != 4 {
		t.Fatalf("addCalls = %d, want 4", got)
	}
	if n := mgr.lockCount(); n != 0 {
		t.Fatalf("lock table holds %d entries after contention drained, want 0", n)
	}
}
