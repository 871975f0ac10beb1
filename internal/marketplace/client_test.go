package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-cart/pkg/auth"
	"github.com/angelmondragon/storefront-cart/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorIs(t, err, errBaseURLRequired)
	_, err = NewClient("not a url")
	require.Error(t, err)
}

func TestListAddressesForwardsBearerToken(t *testing.T) {
	var authHeader, path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		path = r.URL.Path
		_, _ = io.WriteString(w, `{"data":[{"id":"a1","line1":"1 Rizal St"},{"id":"a2","line1":"2 Mabini St","isDefault":true}]}`)
	})

	ctx := auth.WithAccessToken(context.Background(), "tok-123")
	addresses, err := client.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", authHeader)
	assert.Equal(t, "/api/buyer/addresses", path)
	require.Len(t, addresses, 2)

	def, ok := PickAddress(addresses, "")
	require.True(t, ok)
	assert.Equal(t, "a2", def.ID)
	byID, ok := PickAddress(addresses, "a1")
	require.True(t, ok)
	assert.Equal(t, "1 Rizal St", byID.Line1)
	_, ok = PickAddress(addresses, "ghost")
	assert.False(t, ok)
}

func TestListVendorVouchersMapsPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vendors/v%201/promo-codes", r.URL.EscapedPath())
		_, _ = io.WriteString(w, `{"data":[
			{"id":"p1","vendorId":"v 1","code":"SAVE20","discountAmount":20,"discountType":"PercentageOff","adminApprovalStatus":"Approved","startDate":"2026-01-01T00:00:00Z"},
			{"id":"p2","vendorId":"v 1","code":"WEIRD","discountAmount":"5","discountType":"Bogus","adminApprovalStatus":"Approved"},
			{"id":"p3","vendorId":"v 1","code":"HOLD","discountAmount":"15.5","discountType":"FixedPrice","adminApprovalStatus":"Unknown"}
		]}`)
	})

	vouchers, err := client.ListVendorVouchers(context.Background(), "v 1")
	require.NoError(t, err)
	require.Len(t, vouchers, 2)
	assert.Equal(t, enums.DiscountTypePercentageOff, vouchers[0].DiscountType)
	assert.Equal(t, enums.ApprovalStatusApproved, vouchers[0].AdminApprovalStatus)
	assert.True(t, vouchers[0].DiscountAmount.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, vouchers[0].StartsAt)
	assert.Equal(t, enums.DiscountTypeFixedPrice, vouchers[1].DiscountType)
	assert.Empty(t, vouchers[1].AdminApprovalStatus)

	_, err = client.ListVendorVouchers(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListVendorCouponsMapsPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vendors/v1/coupons", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[{"id":"c1","vendorId":"v1","name":"Ten off","discountAmount":"10","type":"fixed_price","status":"Ongoing"}]}`)
	})

	coupons, err := client.ListVendorCoupons(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, enums.PromoStatusOngoing, coupons[0].Status)
	assert.Equal(t, enums.DiscountTypeFixedPrice, coupons[0].Type)
}

func TestCreateOrderSendsRequest(t *testing.T) {
	var received OrderRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/buyer/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"orderId":"ord-9"}`)
	})

	result, err := client.CreateOrder(context.Background(), OrderRequest{
		ShippingAddressID: "a1",
		PaymentMethod:     enums.PaymentMethodCashOnDelivery,
		VendorDeliveries:  []VendorDelivery{{VendorID: "v1", DeliveryOption: enums.DeliveryOptionBicycle, ShippingFee: decimal.NewFromInt(30)}},
		Items:             []OrderItem{{ProductID: "p1", VendorID: "v1", Quantity: 2, PromoCodeID: "promo-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-9", result.OrderID)
	assert.Equal(t, "a1", received.ShippingAddressID)
	require.Len(t, received.Items, 1)
	assert.Equal(t, "promo-1", received.Items[0].PromoCodeID)
	assert.True(t, received.VendorDeliveries[0].ShippingFee.Equal(decimal.NewFromInt(30)))
}

func TestCreateOrderErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		code    pkgerrors.Code
		message string
	}{
		{name: "business rejection", status: http.StatusBadRequest, body: `{"message":"Voucher is not approved"}`, code: pkgerrors.CodeValidation, message: "Voucher is not approved"},
		{name: "no message", status: http.StatusUnprocessableEntity, body: `oops`, code: pkgerrors.CodeValidation, message: "marketplace rejected the request"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, code: pkgerrors.CodeUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, code: pkgerrors.CodeRateLimit},
		{name: "server error", status: http.StatusBadGateway, body: `upstream down`, code: pkgerrors.CodeDependency},
		{name: "missing order id", status: http.StatusOK, body: `{}`, code: pkgerrors.CodeDependency},
		{name: "bad json", status: http.StatusOK, body: `{`, code: pkgerrors.CodeDependency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := client.CreateOrder(context.Background(), OrderRequest{})
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tc.code, typed.Code())
			if tc.message != "" {
				assert.Equal(t, tc.message, typed.Message())
			}
		})
	}
}

func TestTransportFailureIsDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client, err := NewClient(baseURL)
	require.NoError(t, err)
	_, err = client.ListAddresses(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.Retryable(err))
	assert.True(t, strings.Contains(err.Error(), "execute marketplace request"))
}
