package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	BuyerID string
	Email   string
}

// AccessTokenClaims represents the bearer token issued by the hosted auth provider.
type AccessTokenClaims struct {
	BuyerID string `json:"buyer_id,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Buyer returns the buyer identifier, falling back to the subject claim.
func (c *AccessTokenClaims) Buyer() string {
	if c == nil {
		return ""
	}
	if id := strings.TrimSpace(c.BuyerID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Subject)
}
