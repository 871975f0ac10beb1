package marketplace

import (
	"context"
	"net/http"
	"strings"
)

// Address is one of the buyer's saved shipping addresses.
type Address struct {
	ID         string `json:"id"`
	Label      string `json:"label,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	IsDefault  bool   `json:"isDefault"`
}

// ListAddresses returns the signed-in buyer's saved addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	var body struct {
		Data []Address `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/buyer/addresses", nil, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// PickAddress resolves id among addresses; an empty id selects the default.
func PickAddress(addresses []Address, id string) (Address, bool) {
	id = strings.TrimSpace(id)
	for _, a := range addresses {
		if id == "" && a.IsDefault {
			return a, true
		}
		if id != "" && a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}
