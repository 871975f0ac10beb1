package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
)

type quantityRequest struct {
	Quantity int    `json:"quantity" validate:"gte=1"`
	Option   string `json:"option" validate:"required,oneof=motorcycle-delivery bicycle-delivery"`
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantErr   bool
	}{
		{name: "valid", body: `{"quantity":2,"option":"bicycle-delivery"}`},
		{name: "malformed", body: `{"quantity":`, wantErr: true},
		{name: "unknown field", body: `{"quantity":1,"option":"bicycle-delivery","extra":true}`, wantErr: true},
		{name: "below minimum", body: `{"quantity":0,"option":"bicycle-delivery"}`, wantErr: true, wantField: "quantity"},
		{name: "bad option", body: `{"quantity":1,"option":"walking"}`, wantErr: true, wantField: "option"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dest quantityRequest
			err := DecodeJSONBody(req, &dest)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tt.wantField == "" {
				return
			}
			details, ok := pkgerrors.As(err).Details().(map[string]string)
			if !ok {
				t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
			}
			if _, ok := details[tt.wantField]; !ok {
				t.Fatalf("expected detail for %s, got %v", tt.wantField, details)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  SAVE20  ", 0); got != "SAVE20" {
		t.Fatalf("unexpected trim result %q", got)
	}
	if got := SanitizeString("ABCDEFGHIJ", 4); got != "ABCD" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
