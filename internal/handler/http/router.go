package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumistore/rewards/internal/service"
	"github.com/lumistore/rewards/pkg/health"
	"github.com/lumistore/rewards/pkg/middleware"
)

// NewRouter creates a chi router with all rewards service routes registered.
func NewRouter(
	spinService *service.SpinService,
	couponService *service.CouponService,
	ruleService *service.RuleService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("rewards"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	handler := NewRewardsHandler(spinService, couponService, ruleService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/wheel", func(r chi.Router) {
			r.Get("/", handler.GetWheel)
			r.Get("/status/{customerID}", handler.GetSpinStatus)
			r.Post("/spin", handler.Spin)
		})

		r.Get("/customers/{customerID}/coupons", handler.ListCustomerCoupons)

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/validate", handler.ValidateCoupon)
			r.Post("/redeem", handler.RedeemCoupon)
		})

		r.Post("/events/evaluate", handler.EvaluateEvent)
	})

	return r
}
