package checkout

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/events"
	"github.com/angelmondragon/storefront-cart/internal/marketplace"
	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeCarts struct {
	state      *cart.State
	completed  []string
	mode       enums.CheckoutMode
	completeEr error
}

func (f *fakeCarts) Get(context.Context, string) (*cart.View, error) {
	return &cart.View{Cart: f.state, Summary: f.state.CartTotal(pricing.DefaultFeeSchedule())}, nil
}

func (f *fakeCarts) BuyNowSummary(context.Context, string) (*cart.BuyNowView, error) {
	if f.state.BuyNow == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no buy-now item is staged")
	}
	return &cart.BuyNowView{Checkout: f.state.BuyNow, Summary: f.state.BuyNow.Summary(pricing.DefaultFeeSchedule())}, nil
}

func (f *fakeCarts) CompleteCheckout(_ context.Context, _ string, mode enums.CheckoutMode, itemIDs []string) (*cart.View, error) {
	f.mode = mode
	f.completed = itemIDs
	return nil, f.completeEr
}

type fakeBackend struct {
	mu          sync.Mutex
	addresses   []marketplace.Address
	vouchers    map[string][]cart.VendorVoucher
	coupons     map[string][]cart.VendorCoupon
	addressErr  error
	orderErr    error
	orders      []marketplace.OrderRequest
	voucherHits int
	couponHits  int
}

func (f *fakeBackend) ListAddresses(context.Context) ([]marketplace.Address, error) {
	return f.addresses, f.addressErr
}

func (f *fakeBackend) ListVendorVouchers(_ context.Context, vendorID string) ([]cart.VendorVoucher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voucherHits++
	return f.vouchers[vendorID], nil
}

func (f *fakeBackend) ListVendorCoupons(_ context.Context, vendorID string) ([]cart.VendorCoupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.couponHits++
	return f.coupons[vendorID], nil
}

func (f *fakeBackend) CreateOrder(_ context.Context, req marketplace.OrderRequest) (*marketplace.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, req)
	return &marketplace.OrderResult{OrderID: "ord-1"}, nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

type recordingMetrics struct {
	outcomes []string
}

func (m *recordingMetrics) ObserveCheckout(mode, outcome string, _ time.Duration) {
	m.outcomes = append(m.outcomes, mode+":"+outcome)
}

var save20 = cart.VendorVoucher{
	ID:                  "promo-1",
	VendorID:            "A",
	Code:                "SAVE20",
	DiscountAmount:      decimal.NewFromInt(20),
	DiscountType:        enums.DiscountTypePercentageOff,
	AdminApprovalStatus: enums.ApprovalStatusApproved,
}

type harness struct {
	svc       Service
	carts     *fakeCarts
	backend   *fakeBackend
	publisher *recordingPublisher
	metrics   *recordingMetrics
	itemA     cart.LineItem
	itemB     cart.LineItem
}

// newHarness builds a cart with a selected item for vendor A (500, SAVE20,
// motorcycle) and an unselected item for vendor B.
func newHarness(t *testing.T) *harness {
	t.Helper()
	state := cart.NewState("buyer-1", "buyer-1")
	opts := cart.DefaultOptions()
	itemA, err := state.AddItem(cart.NewItem{ProductID: "p1", VendorID: "A", VendorName: "Vendor A", Quantity: 2, OriginalPrice: decimal.NewFromInt(250)}, opts, testNow)
	require.NoError(t, err)
	itemB, err := state.AddItem(cart.NewItem{ProductID: "p2", VendorID: "B", VendorName: "Vendor B", Quantity: 1, OriginalPrice: decimal.NewFromInt(99)}, opts, testNow)
	require.NoError(t, err)
	_, err = state.ToggleItemSelection(itemA.ID, testNow)
	require.NoError(t, err)
	require.NoError(t, state.ApplyVendorVoucher("A", save20, testNow))
	require.NoError(t, state.SetVendorDeliveryOption("A", enums.DeliveryOptionMotorcycle, testNow))

	h := &harness{
		carts: &fakeCarts{state: state},
		backend: &fakeBackend{
			addresses: []marketplace.Address{{ID: "addr-1"}, {ID: "addr-2", IsDefault: true}},
			vouchers:  map[string][]cart.VendorVoucher{"A": {save20}},
		},
		publisher: &recordingPublisher{},
		metrics:   &recordingMetrics{},
	}
	svc, err := NewService(ServiceParams{
		Carts:     h.carts,
		Backend:   h.backend,
		Publisher: h.publisher,
		Metrics:   h.metrics,
		Logger:    logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
		Clock:     func() time.Time { return testNow },
	})
	require.NoError(t, err)
	h.svc = svc
	h.itemA = state.Items[0]
	h.itemB = itemB
	return h
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{Output: io.Discard})
	_, err := NewService(ServiceParams{Backend: &fakeBackend{}, Logger: logg})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Carts: &fakeCarts{}, Logger: logg})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Carts: &fakeCarts{}, Backend: &fakeBackend{}})
	require.Error(t, err)
}

func TestPlaceOrderSubmitsSelectedItems(t *testing.T) {
	h := newHarness(t)

	confirmation, err := h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery"})
	require.NoError(t, err)

	assert.Equal(t, "ord-1", confirmation.OrderID)
	assert.Equal(t, "addr-2", confirmation.ShippingAddressID)
	assert.Equal(t, []string{h.itemA.ID}, confirmation.ItemIDs)
	assert.True(t, confirmation.Summary.Total.Equal(decimal.NewFromInt(400)))
	assert.True(t, confirmation.Summary.AmountDue.Equal(decimal.NewFromInt(440)))

	require.Len(t, h.backend.orders, 1)
	order := h.backend.orders[0]
	assert.Equal(t, enums.PaymentMethodCashOnDelivery, order.PaymentMethod)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "promo-1", order.Items[0].PromoCodeID)
	require.Len(t, order.VendorDeliveries, 1)
	assert.True(t, order.VendorDeliveries[0].ShippingFee.Equal(decimal.NewFromInt(40)))
	require.Len(t, order.VendorTotals, 1)
	assert.True(t, order.VendorTotals[0].Discount.Equal(decimal.NewFromInt(100)))

	assert.Equal(t, enums.CheckoutModeCart, h.carts.mode)
	assert.Equal(t, []string{h.itemA.ID}, h.carts.completed)
	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, enums.CartEventCheckoutCompleted, h.publisher.events[0].Type)
	assert.Equal(t, []string{"cart:success"}, h.metrics.outcomes)
}

func TestPlaceOrderValidationMakesNoNetworkCall(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(h *harness)
		input  PlaceOrderInput
	}{
		{name: "missing payment method", input: PlaceOrderInput{}},
		{name: "invalid mode", input: PlaceOrderInput{PaymentMethod: "cash_on_delivery", Mode: "later"}},
		{
			name:   "nothing selected",
			mutate: func(h *harness) { h.carts.state.DeselectAllItems(testNow) },
			input:  PlaceOrderInput{PaymentMethod: "cash_on_delivery"},
		},
		{
			name: "vendor without delivery",
			mutate: func(h *harness) {
				_, err := h.carts.state.ToggleItemSelection(h.itemB.ID, testNow)
				require.NoError(t, err)
			},
			input: PlaceOrderInput{PaymentMethod: "online_payment"},
		},
		{
			name:  "buy-now without staged item",
			input: PlaceOrderInput{PaymentMethod: "online_payment", Mode: enums.CheckoutModeBuyNow},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.mutate != nil {
				tc.mutate(h)
			}
			_, err := h.svc.PlaceOrder(context.Background(), "buyer-1", tc.input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
			assert.Zero(t, h.backend.voucherHits)
			assert.Empty(t, h.backend.orders)
			assert.Nil(t, h.carts.completed)
		})
	}
}

func TestPlaceOrderAddressResolution(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery", ShippingAddressID: "ghost"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	h.backend.addresses = []marketplace.Address{{ID: "addr-1"}}
	_, err = h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	confirmation, err := h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery", ShippingAddressID: "addr-1"})
	require.NoError(t, err)
	assert.Equal(t, "addr-1", confirmation.ShippingAddressID)
}

func TestPlaceOrderRejectsStaleVoucher(t *testing.T) {
	h := newHarness(t)
	revoked := save20
	revoked.AdminApprovalStatus = enums.ApprovalStatusRejected
	h.backend.vouchers["A"] = []cart.VendorVoucher{revoked}

	_, err := h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, h.backend.orders)
	assert.Nil(t, h.carts.completed)
	assert.Equal(t, []string{"cart:error"}, h.metrics.outcomes)
}

func TestPlaceOrderRevalidatesCoupons(t *testing.T) {
	coupon := cart.VendorCoupon{
		ID:             "coupon-1",
		VendorID:       "A",
		Type:           enums.DiscountTypeFixedPrice,
		DiscountAmount: decimal.NewFromInt(50),
		Status:         enums.PromoStatusOngoing,
	}
	ended := coupon
	ended.Status = enums.PromoStatusEnded
	changed := coupon
	changed.DiscountAmount = decimal.NewFromInt(80)

	cases := []struct {
		name    string
		live    []cart.VendorCoupon
		wantErr bool
	}{
		{name: "still ongoing", live: []cart.VendorCoupon{coupon}},
		{name: "ended", live: []cart.VendorCoupon{ended}, wantErr: true},
		{name: "terms changed", live: []cart.VendorCoupon{changed}, wantErr: true},
		{name: "withdrawn", live: nil, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.carts.state.ApplyVendorCoupon("A", coupon, testNow))
			h.backend.coupons = map[string][]cart.VendorCoupon{"A": tc.live}

			_, err := h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery"})
			assert.Equal(t, 1, h.backend.couponHits)
			if !tc.wantErr {
				require.NoError(t, err)
				require.Len(t, h.backend.orders, 1)
				return
			}
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
			assert.Empty(t, h.backend.orders)
			assert.Nil(t, h.carts.completed)
		})
	}
}

func TestPlaceOrderBackendFailuresLeaveCartUntouched(t *testing.T) {
	h := newHarness(t)
	h.backend.orderErr = pkgerrors.New(pkgerrors.CodeValidation, "Out of stock")
	_, err := h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "Out of stock", typed.Message())
	assert.Nil(t, h.carts.completed)

	h = newHarness(t)
	h.backend.addressErr = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "execute marketplace request")
	_, err = h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, h.publisher.events)
}

func TestPlaceOrderSucceedsWhenClearingFails(t *testing.T) {
	h := newHarness(t)
	h.carts.completeEr = errors.New("redis down")
	confirmation, err := h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "cash_on_delivery"})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", confirmation.OrderID)
}

func TestPlaceOrderBuyNow(t *testing.T) {
	h := newHarness(t)
	opts := cart.DefaultOptions()
	_, err := h.carts.state.BuyNowItem(cart.NewItem{ProductID: "p9", VendorID: "A", Quantity: 1, OriginalPrice: decimal.NewFromInt(100)}, opts, testNow)
	require.NoError(t, err)

	_, err = h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "online_payment", Mode: enums.CheckoutModeBuyNow})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, h.carts.state.SetBuyNowDelivery(enums.DeliveryOptionBicycle, testNow))
	require.NoError(t, h.carts.state.ApplyBuyNowVoucher(save20, testNow))

	confirmation, err := h.svc.PlaceOrder(context.Background(), "buyer-1", PlaceOrderInput{PaymentMethod: "online_payment", Mode: enums.CheckoutModeBuyNow})
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutModeBuyNow, h.carts.mode)
	assert.True(t, confirmation.Summary.AmountDue.Equal(decimal.NewFromInt(110)))
	require.Len(t, h.backend.orders, 1)
	require.Len(t, h.backend.orders[0].Items, 1)
	assert.Equal(t, "p9", h.backend.orders[0].Items[0].ProductID)
	assert.Equal(t, "promo-1", h.backend.orders[0].Items[0].PromoCodeID)
	assert.Equal(t, 1, h.backend.voucherHits)
}
