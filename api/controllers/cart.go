package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/api/middleware"
	"github.com/angelmondragon/storefront-cart/api/responses"
	"github.com/angelmondragon/storefront-cart/api/validators"
	cartsvc "github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/pricing"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

const maxVoucherCodeLength = 64

type cartItemRequest struct {
	ProductID       string             `json:"product_id" validate:"required"`
	VariantID       string             `json:"variant_id"`
	VendorID        string             `json:"vendor_id" validate:"required"`
	VendorName      string             `json:"vendor_name"`
	Name            string             `json:"name" validate:"required"`
	Images          []string           `json:"images"`
	Quantity        int                `json:"quantity" validate:"gte=0"`
	OriginalPrice   decimal.Decimal    `json:"original_price"`
	DiscountedPrice *decimal.Decimal   `json:"discounted_price,omitempty"`
	Promotions      *promotionsRequest `json:"promotions,omitempty"`
}

type promotionsRequest struct {
	NewArrival *promotionRequest `json:"new_arrival,omitempty"`
	Product    *promotionRequest `json:"product,omitempty"`
}

type promotionRequest struct {
	ID     string          `json:"id" validate:"required"`
	Type   string          `json:"type" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status" validate:"required"`
}

func (p *promotionRequest) toPromotion() (*pricing.Promotion, error) {
	if p == nil {
		return nil, nil
	}
	discountType, err := enums.ParseDiscountType(p.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promotion type")
	}
	status, err := enums.ParsePromoStatus(p.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promotion status")
	}
	return &pricing.Promotion{ID: p.ID, Type: discountType, Amount: p.Amount, Status: status}, nil
}

func (p *promotionsRequest) toPromotions() (*pricing.ProductPromotions, error) {
	if p == nil {
		return nil, nil
	}
	newArrival, err := p.NewArrival.toPromotion()
	if err != nil {
		return nil, err
	}
	product, err := p.Product.toPromotion()
	if err != nil {
		return nil, err
	}
	return &pricing.ProductPromotions{NewArrival: newArrival, Product: product}, nil
}

func (r cartItemRequest) toNewItem() (cartsvc.NewItem, error) {
	promos, err := r.Promotions.toPromotions()
	if err != nil {
		return cartsvc.NewItem{}, err
	}
	return cartsvc.NewItem{
		ProductID:       strings.TrimSpace(r.ProductID),
		VariantID:       strings.TrimSpace(r.VariantID),
		VendorID:        strings.TrimSpace(r.VendorID),
		VendorName:      strings.TrimSpace(r.VendorName),
		Name:            strings.TrimSpace(r.Name),
		Images:          r.Images,
		Quantity:        r.Quantity,
		OriginalPrice:   r.OriginalPrice,
		DiscountedPrice: r.DiscountedPrice,
		Promotions:      promos,
	}, nil
}

type removeItemsRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type redeemVoucherRequest struct {
	Code string `json:"code" validate:"required"`
}

type applyCouponRequest struct {
	CouponID string `json:"coupon_id" validate:"required"`
}

type deliveryRequest struct {
	DeliveryOption string `json:"delivery_option" validate:"required"`
}

func (r deliveryRequest) option() (enums.DeliveryOption, error) {
	option, err := enums.ParseDeliveryOption(strings.TrimSpace(r.DeliveryOption))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery option").
			WithDetails(map[string]any{"allowed": enums.DeliveryOptions()})
	}
	return option, nil
}

type addItemResponse struct {
	Item cartsvc.LineItem `json:"item"`
	*cartsvc.View
}

type removeItemsResponse struct {
	Removed int `json:"removed"`
	*cartsvc.View
}

type toggleResponse struct {
	Selected bool `json:"selected"`
	*cartsvc.View
}

type vendorSelectedResponse struct {
	VendorID string `json:"vendor_id"`
	Selected bool   `json:"selected"`
}

// sessionID resolves the cart session of the authenticated buyer.
func sessionID(r *http.Request) (string, error) {
	buyerID := middleware.BuyerIDFromContext(r.Context())
	if buyerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer context missing")
	}
	return buyerID, nil
}

func urlParam(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	return value, nil
}

// cartHandler runs fn with the resolved session and renders its result.
func cartHandler(svc cartsvc.Service, logg *logger.Logger, status int, fn func(r *http.Request, session string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		session, err := sessionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		data, err := fn(r, session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if data == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		responses.WriteSuccessStatus(w, status, data)
	}
}

// CartGet returns the buyer's cart with the summary of its selected items.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		return svc.Get(r.Context(), session)
	})
}

// CartAddItem adds a product or merges it into an existing line.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusCreated, func(r *http.Request, session string) (any, error) {
		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		in, err := payload.toNewItem()
		if err != nil {
			return nil, err
		}
		item, view, err := svc.AddItem(r.Context(), session, in)
		if err != nil {
			return nil, err
		}
		return addItemResponse{Item: item, View: view}, nil
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		itemID, err := urlParam(r, "itemId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), session, itemID)
	})
}

// CartRemoveItems drops several lines at once; unknown ids are skipped.
func CartRemoveItems(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		var payload removeItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		removed, view, err := svc.RemoveItems(r.Context(), session, payload.ItemIDs)
		if err != nil {
			return nil, err
		}
		return removeItemsResponse{Removed: removed, View: view}, nil
	})
}

func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		itemID, err := urlParam(r, "itemId")
		if err != nil {
			return nil, err
		}
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.UpdateQuantity(r.Context(), session, itemID, payload.Quantity)
	})
}

func CartToggleItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		itemID, err := urlParam(r, "itemId")
		if err != nil {
			return nil, err
		}
		selected, view, err := svc.ToggleItemSelection(r.Context(), session, itemID)
		if err != nil {
			return nil, err
		}
		return toggleResponse{Selected: selected, View: view}, nil
	})
}

func CartSelectAll(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		return svc.SelectAllItems(r.Context(), session)
	})
}

func CartDeselectAll(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		return svc.DeselectAllItems(r.Context(), session)
	})
}

// CartToggleVendor selects every line of the vendor unless all of them are
// already selected, in which case it clears them.
func CartToggleVendor(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		vendorID, err := urlParam(r, "vendorId")
		if err != nil {
			return nil, err
		}
		selected, view, err := svc.ToggleVendorSelection(r.Context(), session, vendorID)
		if err != nil {
			return nil, err
		}
		return toggleResponse{Selected: selected, View: view}, nil
	})
}

func CartVendorSelected(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		vendorID, err := urlParam(r, "vendorId")
		if err != nil {
			return nil, err
		}
		selected, err := svc.IsVendorSelected(r.Context(), session, vendorID)
		if err != nil {
			return nil, err
		}
		return vendorSelectedResponse{VendorID: vendorID, Selected: selected}, nil
	})
}

func CartVendorTotal(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		vendorID, err := urlParam(r, "vendorId")
		if err != nil {
			return nil, err
		}
		return svc.CalculateVendorTotal(r.Context(), session, vendorID)
	})
}

// CartRedeemVoucher validates a typed promo code against the vendor's codes
// and applies it.
func CartRedeemVoucher(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		vendorID, err := urlParam(r, "vendorId")
		if err != nil {
			return nil, err
		}
		var payload redeemVoucherRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		code := validators.SanitizeString(payload.Code, maxVoucherCodeLength)
		return svc.RedeemVoucher(r.Context(), session, vendorID, code)
	})
}

func CartRemoveVoucher(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		vendorID, err := urlParam(r, "vendorId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveVendorVoucher(r.Context(), session, vendorID)
	})
}

func CartApplyCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		vendorID, err := urlParam(r, "vendorId")
		if err != nil {
			return nil, err
		}
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.ApplyVendorCoupon(r.Context(), session, vendorID, strings.TrimSpace(payload.CouponID))
	})
}

func CartRemoveCoupon(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		vendorID, err := urlParam(r, "vendorId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveVendorCoupon(r.Context(), session, vendorID)
	})
}

func CartSetDelivery(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		vendorID, err := urlParam(r, "vendorId")
		if err != nil {
			return nil, err
		}
		var payload deliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		option, err := payload.option()
		if err != nil {
			return nil, err
		}
		return svc.SetVendorDeliveryOption(r.Context(), session, vendorID, option)
	})
}

func CartSummary(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		return svc.CalculateCartTotal(r.Context(), session)
	})
}

// BuyNowStage replaces the buy-now slot with the posted product.
func BuyNowStage(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		in, err := payload.toNewItem()
		if err != nil {
			return nil, err
		}
		return svc.BuyNowItem(r.Context(), session, in)
	})
}

func BuyNowGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		return svc.BuyNowSummary(r.Context(), session)
	})
}

func BuyNowClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusNoContent, func(r *http.Request, session string) (any, error) {
		return nil, svc.ClearBuyNow(r.Context(), session)
	})
}

func BuyNowSetDelivery(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		var payload deliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		option, err := payload.option()
		if err != nil {
			return nil, err
		}
		return svc.SetBuyNowDelivery(r.Context(), session, option)
	})
}

func BuyNowRedeemVoucher(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, session string) (any, error) {
		var payload redeemVoucherRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		code := validators.SanitizeString(payload.Code, maxVoucherCodeLength)
		return svc.RedeemBuyNowVoucher(r.Context(), session, code)
	})
}

// CartDiscardSession tears the buyer's cart down on logout.
func CartDiscardSession(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusNoContent, func(r *http.Request, session string) (any, error) {
		return nil, svc.Discard(r.Context(), session)
	})
}
