package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-cart/api/controllers"
	"github.com/angelmondragon/storefront-cart/api/middleware"
	"github.com/angelmondragon/storefront-cart/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-cart/internal/checkout"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/redis"
)

// NewRouter wires the HTTP surface. redisClient may be nil, in which case
// checkout idempotency and voucher rate limiting are disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	readiness map[string]redis.Pinger,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	voucherPolicy := middleware.NewRateLimitPolicy(
		"voucher",
		cfg.RateLimit.VoucherWindow,
		cfg.RateLimit.VoucherIPLimit,
		cfg.RateLimit.VoucherBuyerLimit,
	)
	voucherLimit := middleware.RateLimit(voucherPolicy, nil, logg)
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		voucherLimit = middleware.RateLimit(voucherPolicy, redisClient, logg)
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pricing/discount-price", controllers.PricingDiscountPrice(logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(cartService, logg))
				r.Get("/summary", controllers.CartSummary(cartService, logg))
				r.Delete("/session", controllers.CartDiscardSession(cartService, logg))

				r.Route("/items", func(r chi.Router) {
					r.Post("/", controllers.CartAddItem(cartService, logg))
					r.Post("/remove", controllers.CartRemoveItems(cartService, logg))
					r.Delete("/{itemId}", controllers.CartRemoveItem(cartService, logg))
					r.Patch("/{itemId}", controllers.CartUpdateQuantity(cartService, logg))
					r.Post("/{itemId}/toggle", controllers.CartToggleItem(cartService, logg))
				})

				r.Route("/selection", func(r chi.Router) {
					r.Post("/all", controllers.CartSelectAll(cartService, logg))
					r.Delete("/all", controllers.CartDeselectAll(cartService, logg))
				})

				r.Route("/vendors/{vendorId}", func(r chi.Router) {
					r.Post("/toggle", controllers.CartToggleVendor(cartService, logg))
					r.Get("/selected", controllers.CartVendorSelected(cartService, logg))
					r.Get("/total", controllers.CartVendorTotal(cartService, logg))
					r.With(voucherLimit).Post("/voucher", controllers.CartRedeemVoucher(cartService, logg))
					r.Delete("/voucher", controllers.CartRemoveVoucher(cartService, logg))
					r.Post("/coupon", controllers.CartApplyCoupon(cartService, logg))
					r.Delete("/coupon", controllers.CartRemoveCoupon(cartService, logg))
					r.Put("/delivery", controllers.CartSetDelivery(cartService, logg))
				})

				r.Route("/buy-now", func(r chi.Router) {
					r.Put("/", controllers.BuyNowStage(cartService, logg))
					r.Get("/", controllers.BuyNowGet(cartService, logg))
					r.Delete("/", controllers.BuyNowClear(cartService, logg))
					r.Put("/delivery", controllers.BuyNowSetDelivery(cartService, logg))
					r.With(voucherLimit).Post("/voucher", controllers.BuyNowRedeemVoucher(cartService, logg))
				})
			})

			r.With(middleware.Idempotency(idempotencyStore, cfg.RateLimit.IdempotencyTTL, logg)).
				Post("/checkout", controllers.Checkout(checkoutService, logg))
		})
	})

	return r
}
