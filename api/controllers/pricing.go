package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/api/responses"
	"github.com/angelmondragon/storefront-cart/api/validators"
	"github.com/angelmondragon/storefront-cart/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

type discountPriceRequest struct {
	OriginalPrice decimal.Decimal    `json:"original_price"`
	Promotions    *promotionsRequest `json:"promotions,omitempty"`
}

type discountResponse struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type discountPriceResponse struct {
	OriginalPrice   decimal.Decimal    `json:"original_price"`
	DiscountedPrice decimal.Decimal    `json:"discounted_price"`
	Discounts       []discountResponse `json:"discounts"`
}

// PricingDiscountPrice previews a product's price after its ongoing promotions.
func PricingDiscountPrice(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload discountPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.OriginalPrice.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "original price must not be negative"))
			return
		}

		promos, err := payload.Promotions.toPromotions()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var discounts []pricing.Discount
		if promos != nil {
			discounts = pricing.DiscountInfo(*promos)
		}

		out := discountPriceResponse{
			OriginalPrice:   payload.OriginalPrice,
			DiscountedPrice: pricing.CalculateDiscountPrice(payload.OriginalPrice, discounts),
			Discounts:       make([]discountResponse, 0, len(discounts)),
		}
		for _, d := range discounts {
			out.Discounts = append(out.Discounts, discountResponse{
				ID:     d.ID,
				Source: d.Source.String(),
				Type:   d.Type.String(),
				Amount: d.Amount,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
