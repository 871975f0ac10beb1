package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-cart/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-cart/pkg/auth"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// Auth validates the hosted provider's bearer token and seeds the request
// context with the buyer id and the raw token for upstream calls.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			buyerID := claims.Buyer()
			ctx := WithBuyerID(r.Context(), buyerID)
			ctx = pkgAuth.WithAccessToken(ctx, token)
			if logg != nil {
				ctx = logg.WithUserID(ctx, buyerID)
				ctx = logg.WithSessionID(ctx, buyerID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
