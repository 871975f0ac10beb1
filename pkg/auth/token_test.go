package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront-auth"}
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, 30*time.Minute, AccessTokenPayload{BuyerID: "buyer-1", Email: "b@example.com"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Buyer() != "buyer-1" {
		t.Fatalf("expected buyer-1, got %q", claims.Buyer())
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be set")
	}
}

func TestParseAccessTokenFallsBackToSubject(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront-auth"}
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   "buyer-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Buyer() != "buyer-sub" {
		t.Fatalf("expected subject fallback, got %q", parsed.Buyer())
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront-auth"}
	token, err := MintAccessToken(cfg, time.Now(), time.Minute, AccessTokenPayload{BuyerID: "buyer-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	badCfg := cfg
	badCfg.Secret = "other"
	if _, err := ParseAccessToken(badCfg, token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseAccessTokenRejectsWrongIssuerAndExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront-auth"}
	token, err := MintAccessToken(cfg, time.Now(), time.Minute, AccessTokenPayload{BuyerID: "buyer-1"})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected issuer error")
	}

	expired, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), time.Minute, AccessTokenPayload{BuyerID: "buyer-1"})
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}
	if _, err := ParseAccessToken(cfg, expired); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "storefront-auth"}
	if _, err := MintAccessToken(cfg, time.Now(), time.Minute, AccessTokenPayload{}); err == nil {
		t.Fatalf("expected buyer id error")
	}
	if _, err := MintAccessToken(config.JWTConfig{Issuer: "x"}, time.Now(), time.Minute, AccessTokenPayload{BuyerID: "b"}); err == nil {
		t.Fatalf("expected secret error")
	}
	if _, err := MintAccessToken(cfg, time.Now(), 0, AccessTokenPayload{BuyerID: "b"}); err == nil {
		t.Fatalf("expected ttl error")
	}
}

func TestAccessTokenContext(t *testing.T) {
	ctx := WithAccessToken(context.Background(), "abc")
	if got := AccessTokenFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := AccessTokenFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}
