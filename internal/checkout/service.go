package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/checkout/helpers"
	"github.com/angelmondragon/storefront-cart/internal/events"
	"github.com/angelmondragon/storefront-cart/internal/marketplace"
	"github.com/angelmondragon/storefront-cart/internal/pricing"
	pkgcheckout "github.com/angelmondragon/storefront-cart/pkg/checkout"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

type cartReader interface {
	Get(ctx context.Context, sessionID string) (*cart.View, error)
	BuyNowSummary(ctx context.Context, sessionID string) (*cart.BuyNowView, error)
	CompleteCheckout(ctx context.Context, sessionID string, mode enums.CheckoutMode, itemIDs []string) (*cart.View, error)
}

type orderBackend interface {
	ListAddresses(ctx context.Context) ([]marketplace.Address, error)
	ListVendorVouchers(ctx context.Context, vendorID string) ([]cart.VendorVoucher, error)
	ListVendorCoupons(ctx context.Context, vendorID string) ([]cart.VendorCoupon, error)
	CreateOrder(ctx context.Context, req marketplace.OrderRequest) (*marketplace.OrderResult, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

type checkoutRecorder interface {
	ObserveCheckout(mode, outcome string, duration time.Duration)
}

// Service places orders for the session's selected items or buy-now slot.
type Service interface {
	PlaceOrder(ctx context.Context, sessionID string, input PlaceOrderInput) (*Confirmation, error)
}

// PlaceOrderInput captures the buyer's checkout choices.
type PlaceOrderInput struct {
	ShippingAddressID string
	PaymentMethod     string
	Mode              enums.CheckoutMode
}

// Confirmation is returned once the order endpoint accepted the order.
type Confirmation struct {
	OrderID           string              `json:"order_id"`
	Mode              enums.CheckoutMode  `json:"mode"`
	ShippingAddressID string              `json:"shipping_address_id"`
	Summary           pricing.CartSummary `json:"summary"`
	ItemIDs           []string            `json:"item_ids"`
}

// ServiceParams bundles the checkout dependencies.
type ServiceParams struct {
	Carts     cartReader
	Backend   orderBackend
	Publisher eventPublisher
	Metrics   checkoutRecorder
	Logger    *logger.Logger
	Clock     func() time.Time
}

type service struct {
	carts     cartReader
	backend   orderBackend
	publisher eventPublisher
	metrics   checkoutRecorder
	logg      *logger.Logger
	clock     func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("order backend required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	publisher := params.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		carts:     params.Carts,
		backend:   params.Backend,
		publisher: publisher,
		metrics:   params.Metrics,
		logg:      params.Logger,
		clock:     clock,
	}, nil
}

// plan is the snapshot of what is being ordered.
type plan struct {
	items      []cart.LineItem
	vendorIDs  []string
	deliveries map[string]enums.DeliveryOption
	vouchers   map[string]cart.VendorVoucher
	coupons    map[string]cart.VendorCoupon
	summary    pricing.CartSummary
}

func (s *service) PlaceOrder(ctx context.Context, sessionID string, input PlaceOrderInput) (*Confirmation, error) {
	started := s.clock()
	mode := input.Mode
	if mode == "" {
		mode = enums.CheckoutModeCart
	}
	ctx = s.logg.WithFields(s.logg.WithSessionID(ctx, sessionID), map[string]any{"checkout_mode": mode.String()})

	confirmation, err := s.placeOrder(ctx, sessionID, mode, input)
	s.observe(mode, err, s.clock().Sub(started))
	if err != nil {
		s.logFailure(ctx, err)
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "order_id", confirmation.OrderID), "checkout.completed")
	return confirmation, nil
}

func (s *service) placeOrder(ctx context.Context, sessionID string, mode enums.CheckoutMode, input PlaceOrderInput) (*Confirmation, error) {
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout mode").WithDetails(map[string]any{"mode": mode})
	}
	payment, err := pkgcheckout.ValidatePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	p, err := s.snapshot(ctx, sessionID, mode)
	if err != nil {
		return nil, err
	}
	if len(p.items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no items selected for checkout")
	}
	if err := pkgcheckout.ValidateDeliveries(deliveryInputs(p)); err != nil {
		return nil, err
	}

	address, err := s.resolveAndRevalidate(ctx, p, input.ShippingAddressID)
	if err != nil {
		return nil, err
	}

	req := marketplace.OrderRequest{
		ShippingAddressID: address.ID,
		PaymentMethod:     payment,
		VendorDeliveries:  helpers.VendorDeliveries(p.vendorIDs, p.deliveries, p.summary.Vendors),
		Items:             helpers.OrderItems(p.items),
		VendorTotals:      helpers.VendorTotals(p.summary.Vendors),
		CartSummary:       helpers.Summary(p.summary),
	}
	result, err := s.backend.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	itemIDs := helpers.ItemIDs(p.items)
	if _, err := s.carts.CompleteCheckout(ctx, sessionID, mode, itemIDs); err != nil {
		// the order exists upstream; the buyer can remove the items by hand
		s.logg.Error(s.logg.WithField(ctx, "order_id", result.OrderID), "checkout.clear_items_failed", err)
	}

	s.publish(ctx, sessionID, result.OrderID, mode, itemIDs, p.summary)
	return &Confirmation{
		OrderID:           result.OrderID,
		Mode:              mode,
		ShippingAddressID: address.ID,
		Summary:           p.summary,
		ItemIDs:           itemIDs,
	}, nil
}

func (s *service) snapshot(ctx context.Context, sessionID string, mode enums.CheckoutMode) (*plan, error) {
	if mode == enums.CheckoutModeBuyNow {
		view, err := s.carts.BuyNowSummary(ctx, sessionID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return &plan{}, nil
			}
			return nil, err
		}
		item := view.Checkout.Item
		p := &plan{
			items:      []cart.LineItem{item},
			vendorIDs:  []string{item.VendorID},
			deliveries: map[string]enums.DeliveryOption{},
			vouchers:   map[string]cart.VendorVoucher{},
			summary:    view.Summary,
		}
		if view.Checkout.Delivery != "" {
			p.deliveries[item.VendorID] = view.Checkout.Delivery
		}
		if view.Checkout.Voucher != nil {
			p.vouchers[item.VendorID] = *view.Checkout.Voucher
		}
		return p, nil
	}

	view, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items := view.Cart.SelectedItems()
	vendorIDs, _ := helpers.GroupItemsByVendor(items)
	vouchers := make(map[string]cart.VendorVoucher, len(vendorIDs))
	coupons := make(map[string]cart.VendorCoupon, len(vendorIDs))
	for _, vendorID := range vendorIDs {
		if v, ok := view.Cart.Vouchers[vendorID]; ok {
			vouchers[vendorID] = v
		}
		if c, ok := view.Cart.Coupons[vendorID]; ok {
			coupons[vendorID] = c
		}
	}
	return &plan{
		items:      items,
		vendorIDs:  vendorIDs,
		deliveries: view.Cart.Deliveries,
		vouchers:   vouchers,
		coupons:    coupons,
		summary:    view.Summary,
	}, nil
}

// resolveAndRevalidate loads the address book and re-checks every applied
// voucher and coupon concurrently. The first failure cancels the rest.
func (s *service) resolveAndRevalidate(ctx context.Context, p *plan, addressID string) (marketplace.Address, error) {
	g, gctx := errgroup.WithContext(ctx)

	var address marketplace.Address
	g.Go(func() error {
		addresses, err := s.backend.ListAddresses(gctx)
		if err != nil {
			return err
		}
		picked, ok := marketplace.PickAddress(addresses, addressID)
		if !ok {
			if addressID == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping address not found").
				WithDetails(map[string]any{"shipping_address_id": addressID})
		}
		address = picked
		return nil
	})

	now := s.clock()
	for vendorID, applied := range p.vouchers {
		vendorID, applied := vendorID, applied
		g.Go(func() error {
			candidates, err := s.backend.ListVendorVouchers(gctx, vendorID)
			if err != nil {
				return err
			}
			return helpers.RevalidateVoucher(vendorID, applied, candidates, now)
		})
	}
	for vendorID, applied := range p.coupons {
		vendorID, applied := vendorID, applied
		g.Go(func() error {
			candidates, err := s.backend.ListVendorCoupons(gctx, vendorID)
			if err != nil {
				return err
			}
			return helpers.RevalidateCoupon(vendorID, applied, candidates, now)
		})
	}

	if err := g.Wait(); err != nil {
		return marketplace.Address{}, err
	}
	return address, nil
}

func (s *service) publish(ctx context.Context, sessionID, orderID string, mode enums.CheckoutMode, itemIDs []string, summary pricing.CartSummary) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:      enums.CartEventCheckoutCompleted,
		SessionID: sessionID,
		Data: map[string]any{
			"order_id":   orderID,
			"mode":       mode,
			"item_ids":   itemIDs,
			"amount_due": summary.AmountDue,
		},
		OccurredAt: s.clock().UTC(),
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "publish checkout event failed")
	}
}

func (s *service) observe(mode enums.CheckoutMode, err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCheckout(mode.String(), metrics.Outcome(err), duration)
}

func (s *service) logFailure(ctx context.Context, err error) {
	typed := pkgerrors.As(err)
	if typed != nil && typed.Code() != pkgerrors.CodeDependency && typed.Code() != pkgerrors.CodeInternal {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout.rejected")
		return
	}
	s.logg.Error(ctx, "checkout.failed", err)
}

func deliveryInputs(p *plan) []pkgcheckout.DeliveryValidationInput {
	names := make(map[string]string, len(p.vendorIDs))
	for _, item := range p.items {
		names[item.VendorID] = item.VendorName
	}
	out := make([]pkgcheckout.DeliveryValidationInput, 0, len(p.vendorIDs))
	for _, vendorID := range p.vendorIDs {
		out = append(out, pkgcheckout.DeliveryValidationInput{
			VendorID:   vendorID,
			VendorName: names[vendorID],
			Delivery:   p.deliveries[vendorID],
		})
	}
	return out
}
