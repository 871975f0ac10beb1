package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-cart/api/responses"
	"github.com/angelmondragon/storefront-cart/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-cart/internal/checkout"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

type checkoutRequest struct {
	ShippingAddressID string `json:"shipping_address_id"`
	PaymentMethod     string `json:"payment_method" validate:"required"`
	Mode              string `json:"mode" validate:"omitempty,oneof=cart buy_now"`
}

// Checkout submits the buyer's selected items, or the buy-now slot, as an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmation, err := svc.PlaceOrder(r.Context(), session, checkoutsvc.PlaceOrderInput{
			ShippingAddressID: strings.TrimSpace(payload.ShippingAddressID),
			PaymentMethod:     strings.TrimSpace(payload.PaymentMethod),
			Mode:              enums.CheckoutMode(payload.Mode),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, confirmation)
	}
}
