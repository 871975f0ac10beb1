package enums

import "fmt"

// DeliveryOption is the courier a buyer picks per vendor.
type DeliveryOption string

const (
	DeliveryOptionMotorcycle DeliveryOption = "motorcycle-delivery"
	DeliveryOptionBicycle    DeliveryOption = "bicycle-delivery"
)

var validDeliveryOptions = []DeliveryOption{
	DeliveryOptionMotorcycle,
	DeliveryOptionBicycle,
}

// DeliveryOptions lists every supported option.
func DeliveryOptions() []DeliveryOption {
	out := make([]DeliveryOption, len(validDeliveryOptions))
	copy(out, validDeliveryOptions)
	return out
}

// String implements fmt.Stringer.
func (d DeliveryOption) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryOption.
func (d DeliveryOption) IsValid() bool {
	for _, candidate := range validDeliveryOptions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryOption converts raw input into a DeliveryOption.
func ParseDeliveryOption(value string) (DeliveryOption, error) {
	for _, candidate := range validDeliveryOptions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery option %q", value)
}
