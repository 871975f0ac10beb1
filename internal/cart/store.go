package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
)

// Store is the cart of one session. Each mutation is applied to a copy of
// the loaded state, saved through the repository, and only then adopted, so
// a failed transition or save leaves the cart unchanged.
type Store struct {
	repo  StateRepository
	opts  Options
	clock func() time.Time
	state *State
}

// OpenStore loads the session's cart, starting an empty one when none exists.
func OpenStore(ctx context.Context, repo StateRepository, sessionID, buyerID string, opts Options, clock func() time.Time) (*Store, error) {
	if repo == nil {
		return nil, errors.New("state repository required")
	}
	if sessionID == "" {
		return nil, errors.New("session id required")
	}
	if clock == nil {
		clock = time.Now
	}
	state, err := repo.Load(ctx, sessionID)
	switch {
	case errors.Is(err, ErrStateNotFound):
		state = NewState(sessionID, buyerID)
	case err != nil:
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &Store{repo: repo, opts: opts.withDefaults(), clock: clock, state: state}, nil
}

// State returns a copy of the current cart.
func (s *Store) State() *State {
	return s.state.Clone()
}

// mutate applies fn to a copy and swaps it in only after a successful save.
func (s *Store) mutate(ctx context.Context, fn func(next *State, now time.Time) error) error {
	next := s.state.Clone()
	if err := fn(next, s.clock().UTC()); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.state = next
	return nil
}

// AddItem merges or appends the item under the store's quantity policy and saves.
func (s *Store) AddItem(ctx context.Context, in NewItem) (LineItem, error) {
	var added LineItem
	err := s.mutate(ctx, func(next *State, now time.Time) error {
		item, err := next.AddItem(in, s.opts, now)
		added = item
		return err
	})
	return added, err
}

// RemoveItem drops one line and prunes the vendor's ledgers when it was the last.
func (s *Store) RemoveItem(ctx context.Context, id string) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		return next.RemoveItem(id, now)
	})
}

// RemoveItems drops the listed lines and reports how many were removed.
func (s *Store) RemoveItems(ctx context.Context, ids []string) (int, error) {
	var removed int
	err := s.mutate(ctx, func(next *State, now time.Time) error {
		removed = next.RemoveItems(ids, now)
		return nil
	})
	return removed, err
}

// UpdateQuantity sets a line's quantity; under the reject policy the cart is left as is.
func (s *Store) UpdateQuantity(ctx context.Context, id string, qty int) (LineItem, error) {
	var updated LineItem
	err := s.mutate(ctx, func(next *State, now time.Time) error {
		item, err := next.UpdateQuantity(id, qty, s.opts, now)
		updated = item
		return err
	})
	return updated, err
}

// ToggleItemSelection flips one line and reports whether it is now selected.
func (s *Store) ToggleItemSelection(ctx context.Context, id string) (bool, error) {
	var selected bool
	err := s.mutate(ctx, func(next *State, now time.Time) error {
		var err error
		selected, err = next.ToggleItemSelection(id, now)
		return err
	})
	return selected, err
}

func (s *Store) SelectAllItems(ctx context.Context) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		next.SelectAllItems(now)
		return nil
	})
}

func (s *Store) DeselectAllItems(ctx context.Context) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		next.DeselectAllItems(now)
		return nil
	})
}

// ToggleVendorSelection selects every line of the vendor unless all already are.
func (s *Store) ToggleVendorSelection(ctx context.Context, vendorID string) (bool, error) {
	var selected bool
	err := s.mutate(ctx, func(next *State, now time.Time) error {
		var err error
		selected, err = next.ToggleVendorSelection(vendorID, now)
		return err
	})
	return selected, err
}

func (s *Store) IsVendorSelected(vendorID string) bool {
	return s.state.IsVendorSelected(vendorID)
}

// ApplyVendorVoucher stores an already validated voucher, replacing any previous one.
func (s *Store) ApplyVendorVoucher(ctx context.Context, vendorID string, voucher VendorVoucher) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		return next.ApplyVendorVoucher(vendorID, voucher, now)
	})
}

func (s *Store) RemoveVendorVoucher(ctx context.Context, vendorID string) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		next.RemoveVendorVoucher(vendorID, now)
		return nil
	})
}

// ApplyVendorCoupon stores the coupon for a vendor present in the cart.
func (s *Store) ApplyVendorCoupon(ctx context.Context, vendorID string, coupon VendorCoupon) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		return next.ApplyVendorCoupon(vendorID, coupon, now)
	})
}

func (s *Store) RemoveVendorCoupon(ctx context.Context, vendorID string) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		next.RemoveVendorCoupon(vendorID, now)
		return nil
	})
}

// SetVendorDeliveryOption picks the delivery option, and so the fee, for one vendor.
func (s *Store) SetVendorDeliveryOption(ctx context.Context, vendorID string, option enums.DeliveryOption) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		return next.SetVendorDeliveryOption(vendorID, option, now)
	})
}

// BuyNowItem stages a single item in the transient slot, leaving the cart lines alone.
func (s *Store) BuyNowItem(ctx context.Context, in NewItem) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		_, err := next.BuyNowItem(in, s.opts, now)
		return err
	})
}

func (s *Store) SetBuyNowDelivery(ctx context.Context, option enums.DeliveryOption) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		return next.SetBuyNowDelivery(option, now)
	})
}

func (s *Store) ApplyBuyNowVoucher(ctx context.Context, voucher VendorVoucher) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		return next.ApplyBuyNowVoucher(voucher, now)
	})
}

// ClearBuyNow empties the transient slot.
func (s *Store) ClearBuyNow(ctx context.Context) error {
	return s.mutate(ctx, func(next *State, now time.Time) error {
		next.ClearBuyNow(now)
		return nil
	})
}

// VendorTotal prices the vendor's selected lines with its adjustments and delivery fee.
func (s *Store) VendorTotal(vendorID string) pricing.VendorTotal {
	return s.state.VendorTotal(vendorID, s.opts.Fees)
}

// CartTotal sums every vendor with at least one selected line.
func (s *Store) CartTotal() pricing.CartSummary {
	return s.state.CartTotal(s.opts.Fees)
}

// BuyNowSummary prices the transient slot on its own.
func (s *Store) BuyNowSummary() pricing.CartSummary {
	return s.state.BuyNow.Summary(s.opts.Fees)
}

// Discard deletes the persisted cart and resets the store to an empty cart.
func (s *Store) Discard(ctx context.Context) error {
	if err := s.repo.Delete(ctx, s.state.SessionID); err != nil {
		return fmt.Errorf("discard cart: %w", err)
	}
	s.state = NewState(s.state.SessionID, s.state.BuyerID)
	return nil
}
