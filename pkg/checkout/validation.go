package checkout

import (
	"fmt"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

// DeliveryValidationInput describes one vendor taking part in a checkout.
type DeliveryValidationInput struct {
	VendorID   string
	VendorName string
	Delivery   enums.DeliveryOption
}

// DeliveryViolationDetail exposes the vendors still missing a delivery choice.
type DeliveryViolationDetail struct {
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name,omitempty"`
}

// ValidateDeliveries ensures every vendor with items carries a valid delivery option.
func ValidateDeliveries(vendors []DeliveryValidationInput) error {
	var violations []DeliveryViolationDetail
	for _, v := range vendors {
		if v.Delivery.IsValid() {
			continue
		}
		violations = append(violations, DeliveryViolationDetail{
			VendorID:   v.VendorID,
			VendorName: v.VendorName,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("delivery option missing for %d vendor(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// ValidatePaymentMethod parses the requested payment method.
func ValidatePaymentMethod(value string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment method is required").WithDetails(map[string]any{
			"payment_method": value,
		})
	}
	return method, nil
}
