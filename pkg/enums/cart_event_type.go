package enums

import "fmt"

// CartEventType names the domain events emitted by the cart service.
type CartEventType string

const (
	CartEventItemAdded         CartEventType = "cart.item_added"
	CartEventItemRemoved       CartEventType = "cart.item_removed"
	CartEventVoucherApplied    CartEventType = "cart.voucher_applied"
	CartEventCheckoutCompleted CartEventType = "cart.checkout_completed"
	CartEventDiscarded         CartEventType = "cart.discarded"
)

var validCartEventTypes = []CartEventType{
	CartEventItemAdded,
	CartEventItemRemoved,
	CartEventVoucherApplied,
	CartEventCheckoutCompleted,
	CartEventDiscarded,
}

// String implements fmt.Stringer.
func (c CartEventType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartEventType.
func (c CartEventType) IsValid() bool {
	for _, candidate := range validCartEventTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartEventType converts raw input into a CartEventType.
func ParseCartEventType(value string) (CartEventType, error) {
	for _, candidate := range validCartEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart event type %q", value)
}
