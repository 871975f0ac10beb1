package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/events"
	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

// VoucherSource lists the promo codes and coupons a vendor currently offers.
type VoucherSource interface {
	ListVendorVouchers(ctx context.Context, vendorID string) ([]VendorVoucher, error)
	ListVendorCoupons(ctx context.Context, vendorID string) ([]VendorCoupon, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

type operationRecorder interface {
	ObserveCartOperation(operation, outcome string)
}

// View is a cart together with the summary of its selected items.
type View struct {
	Cart    *State              `json:"cart"`
	Summary pricing.CartSummary `json:"summary"`
}

// BuyNowView is the transient checkout slot with its own summary.
type BuyNowView struct {
	Checkout *TransientCheckout  `json:"checkout"`
	Summary  pricing.CartSummary `json:"summary"`
}

// Service is the process-wide entry point for cart sessions.
type Service interface {
	Get(ctx context.Context, sessionID string) (*View, error)
	AddItem(ctx context.Context, sessionID string, in NewItem) (LineItem, *View, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*View, error)
	RemoveItems(ctx context.Context, sessionID string, itemIDs []string) (int, *View, error)
	UpdateQuantity(ctx context.Context, sessionID, itemID string, qty int) (*View, error)
	ToggleItemSelection(ctx context.Context, sessionID, itemID string) (bool, *View, error)
	SelectAllItems(ctx context.Context, sessionID string) (*View, error)
	DeselectAllItems(ctx context.Context, sessionID string) (*View, error)
	ToggleVendorSelection(ctx context.Context, sessionID, vendorID string) (bool, *View, error)
	IsVendorSelected(ctx context.Context, sessionID, vendorID string) (bool, error)
	RedeemVoucher(ctx context.Context, sessionID, vendorID, code string) (*View, error)
	ApplyVendorVoucher(ctx context.Context, sessionID, vendorID string, voucher VendorVoucher) (*View, error)
	RemoveVendorVoucher(ctx context.Context, sessionID, vendorID string) (*View, error)
	ApplyVendorCoupon(ctx context.Context, sessionID, vendorID, couponID string) (*View, error)
	RemoveVendorCoupon(ctx context.Context, sessionID, vendorID string) (*View, error)
	SetVendorDeliveryOption(ctx context.Context, sessionID, vendorID string, option enums.DeliveryOption) (*View, error)
	CalculateVendorTotal(ctx context.Context, sessionID, vendorID string) (pricing.VendorTotal, error)
	CalculateCartTotal(ctx context.Context, sessionID string) (pricing.CartSummary, error)
	BuyNowItem(ctx context.Context, sessionID string, in NewItem) (*BuyNowView, error)
	SetBuyNowDelivery(ctx context.Context, sessionID string, option enums.DeliveryOption) (*BuyNowView, error)
	RedeemBuyNowVoucher(ctx context.Context, sessionID, code string) (*BuyNowView, error)
	ClearBuyNow(ctx context.Context, sessionID string) error
	BuyNowSummary(ctx context.Context, sessionID string) (*BuyNowView, error)
	CompleteCheckout(ctx context.Context, sessionID string, mode enums.CheckoutMode, itemIDs []string) (*View, error)
	Discard(ctx context.Context, sessionID string) error
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Repo      StateRepository
	Locker    SessionLocker
	Vouchers  VoucherSource
	Publisher eventPublisher
	Metrics   operationRecorder
	Logger    *logger.Logger
	Options   Options
	Clock     func() time.Time
}

type service struct {
	repo      StateRepository
	locker    SessionLocker
	vouchers  VoucherSource
	publisher eventPublisher
	metrics   operationRecorder
	logg      *logger.Logger
	opts      Options
	clock     func() time.Time
}

// NewService constructs a cart service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("state repository required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("session locker required")
	}
	if params.Vouchers == nil {
		return nil, fmt.Errorf("voucher source required")
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
		repo:      params.Repo,
		locker:    params.Locker,
		vouchers:  params.Vouchers,
		publisher: publisher,
		metrics:   params.Metrics,
		logg:      params.Logger,
		opts:      params.Options.withDefaults(),
		clock:     clock,
	}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*View, error) {
	store, err := s.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, in NewItem) (LineItem, *View, error) {
	var added LineItem
	store, err := s.mutate(ctx, sessionID, "add_item", func(ctx context.Context, store *Store) error {
		var err error
		added, err = store.AddItem(ctx, in)
		return err
	})
	if err != nil {
		return LineItem{}, nil, err
	}
	s.publish(ctx, sessionID, enums.CartEventItemAdded, map[string]any{
		"item_id":    added.ID,
		"product_id": added.ProductID,
		"variant_id": added.VariantID,
		"vendor_id":  added.VendorID,
		"quantity":   added.Quantity,
	})
	return added, viewOf(store), nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID, itemID string) (*View, error) {
	store, err := s.mutate(ctx, sessionID, "remove_item", func(ctx context.Context, store *Store) error {
		return store.RemoveItem(ctx, itemID)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sessionID, enums.CartEventItemRemoved, map[string]any{"item_ids": []string{itemID}})
	return viewOf(store), nil
}

func (s *service) RemoveItems(ctx context.Context, sessionID string, itemIDs []string) (int, *View, error) {
	if len(itemIDs) == 0 {
		return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item id is required")
	}
	var removed int
	store, err := s.mutate(ctx, sessionID, "remove_items", func(ctx context.Context, store *Store) error {
		var err error
		removed, err = store.RemoveItems(ctx, itemIDs)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	if removed > 0 {
		s.publish(ctx, sessionID, enums.CartEventItemRemoved, map[string]any{"item_ids": itemIDs})
	}
	return removed, viewOf(store), nil
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID, itemID string, qty int) (*View, error) {
	store, err := s.mutate(ctx, sessionID, "update_quantity", func(ctx context.Context, store *Store) error {
		_, err := store.UpdateQuantity(ctx, itemID, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

func (s *service) ToggleItemSelection(ctx context.Context, sessionID, itemID string) (bool, *View, error) {
	var selected bool
	store, err := s.mutate(ctx, sessionID, "toggle_item", func(ctx context.Context, store *Store) error {
		var err error
		selected, err = store.ToggleItemSelection(ctx, itemID)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	return selected, viewOf(store), nil
}

func (s *service) SelectAllItems(ctx context.Context, sessionID string) (*View, error) {
	store, err := s.mutate(ctx, sessionID, "select_all", func(ctx context.Context, store *Store) error {
		return store.SelectAllItems(ctx)
	})
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

func (s *service) DeselectAllItems(ctx context.Context, sessionID string) (*View, error) {
	store, err := s.mutate(ctx, sessionID, "deselect_all", func(ctx context.Context, store *Store) error {
		return store.DeselectAllItems(ctx)
	})
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

func (s *service) ToggleVendorSelection(ctx context.Context, sessionID, vendorID string) (bool, *View, error) {
	var selected bool
	ctx = s.logg.WithVendorID(ctx, vendorID)
	store, err := s.mutate(ctx, sessionID, "toggle_vendor", func(ctx context.Context, store *Store) error {
		var err error
		selected, err = store.ToggleVendorSelection(ctx, vendorID)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	return selected, viewOf(store), nil
}

func (s *service) IsVendorSelected(ctx context.Context, sessionID, vendorID string) (bool, error) {
	store, err := s.open(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return store.IsVendorSelected(vendorID), nil
}

// RedeemVoucher looks the code up among the vendor's published vouchers and
// applies the match. The lookup happens before the session lock is taken.
func (s *service) RedeemVoucher(ctx context.Context, sessionID, vendorID, code string) (*View, error) {
	ctx = s.logg.WithVendorID(ctx, vendorID)
	voucher, err := s.lookupVoucher(ctx, vendorID, code)
	if err != nil {
		s.record("redeem_voucher", err)
		return nil, err
	}
	return s.ApplyVendorVoucher(ctx, sessionID, vendorID, voucher)
}

func (s *service) ApplyVendorVoucher(ctx context.Context, sessionID, vendorID string, voucher VendorVoucher) (*View, error) {
	ctx = s.logg.WithVendorID(ctx, vendorID)
	store, err := s.mutate(ctx, sessionID, "apply_voucher", func(ctx context.Context, store *Store) error {
		return store.ApplyVendorVoucher(ctx, vendorID, voucher)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sessionID, enums.CartEventVoucherApplied, map[string]any{
		"vendor_id":  vendorID,
		"voucher_id": voucher.ID,
		"code":       voucher.Code,
	})
	return viewOf(store), nil
}

func (s *service) RemoveVendorVoucher(ctx context.Context, sessionID, vendorID string) (*View, error) {
	ctx = s.logg.WithVendorID(ctx, vendorID)
	store, err := s.mutate(ctx, sessionID, "remove_voucher", func(ctx context.Context, store *Store) error {
		return store.RemoveVendorVoucher(ctx, vendorID)
	})
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

func (s *service) ApplyVendorCoupon(ctx context.Context, sessionID, vendorID, couponID string) (*View, error) {
	ctx = s.logg.WithVendorID(ctx, vendorID)
	coupons, err := s.vouchers.ListVendorCoupons(ctx, vendorID)
	if err != nil {
		err = dependencyError(err, "load vendor coupons")
		s.record("apply_coupon", err)
		return nil, err
	}
	coupon, ok := FindCoupon(couponID, coupons)
	if !ok {
		err := pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
			WithDetails(map[string]any{"vendor_id": vendorID, "coupon_id": couponID})
		s.record("apply_coupon", err)
		return nil, err
	}
	store, err := s.mutate(ctx, sessionID, "apply_coupon", func(ctx context.Context, store *Store) error {
		return store.ApplyVendorCoupon(ctx, vendorID, coupon)
	})
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

func (s *service) RemoveVendorCoupon(ctx context.Context, sessionID, vendorID string) (*View, error) {
	ctx = s.logg.WithVendorID(ctx, vendorID)
	store, err := s.mutate(ctx, sessionID, "remove_coupon", func(ctx context.Context, store *Store) error {
		return store.RemoveVendorCoupon(ctx, vendorID)
	})
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

func (s *service) SetVendorDeliveryOption(ctx context.Context, sessionID, vendorID string, option enums.DeliveryOption) (*View, error) {
	ctx = s.logg.WithVendorID(ctx, vendorID)
	store, err := s.mutate(ctx, sessionID, "set_delivery", func(ctx context.Context, store *Store) error {
		return store.SetVendorDeliveryOption(ctx, vendorID, option)
	})
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

func (s *service) CalculateVendorTotal(ctx context.Context, sessionID, vendorID string) (pricing.VendorTotal, error) {
	store, err := s.open(ctx, sessionID)
	if err != nil {
		return pricing.VendorTotal{}, err
	}
	return store.VendorTotal(vendorID), nil
}

func (s *service) CalculateCartTotal(ctx context.Context, sessionID string) (pricing.CartSummary, error) {
	store, err := s.open(ctx, sessionID)
	if err != nil {
		return pricing.CartSummary{}, err
	}
	return store.CartTotal(), nil
}

func (s *service) BuyNowItem(ctx context.Context, sessionID string, in NewItem) (*BuyNowView, error) {
	store, err := s.mutate(ctx, sessionID, "buy_now", func(ctx context.Context, store *Store) error {
		return store.BuyNowItem(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return buyNowViewOf(store), nil
}

func (s *service) SetBuyNowDelivery(ctx context.Context, sessionID string, option enums.DeliveryOption) (*BuyNowView, error) {
	store, err := s.mutate(ctx, sessionID, "buy_now_delivery", func(ctx context.Context, store *Store) error {
		return store.SetBuyNowDelivery(ctx, option)
	})
	if err != nil {
		return nil, err
	}
	return buyNowViewOf(store), nil
}

func (s *service) RedeemBuyNowVoucher(ctx context.Context, sessionID, code string) (*BuyNowView, error) {
	current, err := s.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.state.BuyNow == nil {
		s.record("buy_now_voucher", errNoBuyNow())
		return nil, errNoBuyNow()
	}
	vendorID := current.state.BuyNow.Item.VendorID
	ctx = s.logg.WithVendorID(ctx, vendorID)

	voucher, err := s.lookupVoucher(ctx, vendorID, code)
	if err != nil {
		s.record("buy_now_voucher", err)
		return nil, err
	}
	store, err := s.mutate(ctx, sessionID, "buy_now_voucher", func(ctx context.Context, store *Store) error {
		if store.state.BuyNow == nil || store.state.BuyNow.Item.VendorID != vendorID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "buy-now item changed while redeeming the voucher")
		}
		return store.ApplyBuyNowVoucher(ctx, voucher)
	})
	if err != nil {
		return nil, err
	}
	return buyNowViewOf(store), nil
}

func (s *service) ClearBuyNow(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, "clear_buy_now", func(ctx context.Context, store *Store) error {
		return store.ClearBuyNow(ctx)
	})
	return err
}

func (s *service) BuyNowSummary(ctx context.Context, sessionID string) (*BuyNowView, error) {
	store, err := s.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if store.state.BuyNow == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no buy-now item is staged")
	}
	return buyNowViewOf(store), nil
}

// CompleteCheckout drops exactly the ordered items, or the buy-now slot.
func (s *service) CompleteCheckout(ctx context.Context, sessionID string, mode enums.CheckoutMode, itemIDs []string) (*View, error) {
	store, err := s.mutate(ctx, sessionID, "complete_checkout", func(ctx context.Context, store *Store) error {
		if mode == enums.CheckoutModeBuyNow {
			return store.ClearBuyNow(ctx)
		}
		_, err := store.RemoveItems(ctx, itemIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return viewOf(store), nil
}

// Discard tears the session's cart down, e.g. on logout.
func (s *service) Discard(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, "discard", func(ctx context.Context, store *Store) error {
		return store.Discard(ctx)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, sessionID, enums.CartEventDiscarded, map[string]any{"session_id": sessionID})
	return nil
}

func (s *service) lookupVoucher(ctx context.Context, vendorID, code string) (VendorVoucher, error) {
	candidates, err := s.vouchers.ListVendorVouchers(ctx, vendorID)
	if err != nil {
		return VendorVoucher{}, dependencyError(err, "load vendor vouchers")
	}
	result := ValidateVoucher(vendorID, code, candidates, s.clock())
	if !result.Valid {
		return VendorVoucher{}, pkgerrors.New(pkgerrors.CodeValidation, result.Message).
			WithDetails(map[string]any{"vendor_id": vendorID, "code": code})
	}
	return *result.Voucher, nil
}

func (s *service) open(ctx context.Context, sessionID string) (*Store, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	store, err := OpenStore(ctx, s.repo, sessionID, sessionID, s.opts, s.clock)
	if err != nil {
		return nil, dependencyError(err, "load cart")
	}
	return store, nil
}

// mutate runs fn against the session's store while holding the session lock.
func (s *service) mutate(ctx context.Context, sessionID, op string, fn func(context.Context, *Store) error) (*Store, error) {
	ctx = s.logg.WithSessionID(ctx, sessionID)
	store, err := s.runLocked(ctx, sessionID, fn)
	s.record(op, err)
	if err != nil {
		s.logFailure(ctx, "cart."+op, err)
		return nil, err
	}
	s.logg.Info(ctx, "cart."+op)
	return store, nil
}

func (s *service) runLocked(ctx context.Context, sessionID string, fn func(context.Context, *Store) error) (*Store, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, dependencyError(err, "lock cart")
	}
	defer unlock()

	store, err := s.open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx, store); err != nil {
		return nil, dependencyError(err, "save cart")
	}
	return store, nil
}

func (s *service) logFailure(ctx context.Context, msg string, err error) {
	typed := pkgerrors.As(err)
	if typed != nil && typed.Code() != pkgerrors.CodeDependency && typed.Code() != pkgerrors.CodeInternal {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
		return
	}
	s.logg.Error(ctx, msg, err)
}

func (s *service) publish(ctx context.Context, sessionID string, eventType enums.CartEventType, data any) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		SessionID:  sessionID,
		Data:       data,
		OccurredAt: s.clock().UTC(),
	})
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"event_type": eventType, "error": err.Error()}), "publish cart event failed")
	}
}

func (s *service) record(op string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCartOperation(op, metrics.Outcome(err))
}

func viewOf(store *Store) *View {
	return &View{Cart: store.State(), Summary: store.CartTotal()}
}

func buyNowViewOf(store *Store) *BuyNowView {
	state := store.State()
	return &BuyNowView{Checkout: state.BuyNow, Summary: store.BuyNowSummary()}
}

// dependencyError keeps typed errors and classifies the rest as dependency failures.
func dependencyError(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
