package enums

import "fmt"

// CheckoutMode selects which items a checkout submits.
type CheckoutMode string

const (
	// CheckoutModeCart submits the selected line items of the persistent cart.
	CheckoutModeCart CheckoutMode = "cart"
	// CheckoutModeBuyNow submits the transient buy-now item only.
	CheckoutModeBuyNow CheckoutMode = "buy_now"
)

var validCheckoutModes = []CheckoutMode{
	CheckoutModeCart,
	CheckoutModeBuyNow,
}

// String implements fmt.Stringer.
func (c CheckoutMode) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutMode.
func (c CheckoutMode) IsValid() bool {
	for _, candidate := range validCheckoutModes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutMode converts raw input into a CheckoutMode. Empty input means cart.
func ParseCheckoutMode(value string) (CheckoutMode, error) {
	if value == "" {
		return CheckoutModeCart, nil
	}
	for _, candidate := range validCheckoutModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout mode %q", value)
}
