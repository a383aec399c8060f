package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "storefront/internal/api/context"
	"storefront/internal/api/handlers"
	"storefront/internal/api/middleware"
	"storefront/internal/platform/config"
)

type Dependencies struct {
	WebhookHandler  *handlers.WebhookHandler
	CheckoutHandler *handlers.CheckoutHandler
	AuthHandler     *handlers.AuthHandler
	OrderHandler    *handlers.OrderHandler
	AuditHandler    *handlers.AuditHandler
	HealthHandler   *handlers.HealthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	RateLimiter     *middleware.RateLimiter
	RateLimits      config.RateLimitConfig
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Payment provider callback. No rate limit: deliveries are authenticated
	// by signature and redelivered on non-2xx, so throttling would only
	// delay fulfillment.
	router.POST("/api/v1/payments/webhook", wrap(deps.WebhookHandler.Handle))

	// Storefront checkout
	router.POST("/api/v1/checkout",
		chain(deps.CheckoutHandler.Create,
			deps.RateLimiter.Limit("checkout", deps.RateLimits.CheckoutPerMinute)))

	// Admin
	authMid := deps.AuthMiddleware

	router.POST("/api/v1/admin/login",
		chain(deps.AuthHandler.Login,
			deps.RateLimiter.Limit("login", deps.RateLimits.LoginPerMinute)))

	router.GET("/api/v1/orders",
		chain(deps.OrderHandler.List, authMid.Handle,
			deps.RateLimiter.Limit("api_read", deps.RateLimits.APIReadPerMinute)))
	router.GET("/api/v1/orders/:order_id",
		chain(deps.OrderHandler.Get, authMid.Handle,
			deps.RateLimiter.Limit("api_read", deps.RateLimits.APIReadPerMinute)))
	router.GET("/api/v1/audit",
		chain(deps.AuditHandler.List, authMid.Handle,
			deps.RateLimiter.Limit("api_read", deps.RateLimits.APIReadPerMinute)))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
