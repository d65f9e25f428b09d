package handler

import (
	"net/http"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/middleware"
	"github.com/dukerupert/emberbean/internal/telemetry"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Register wires every route onto the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.HTTPErrorHandler = h.ErrorHandler
	e.Validator = NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(domain.NewContextWithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.Session(h.Store))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	if telemetry.Business != nil {
		e.GET("/metrics", echo.WrapHandler(telemetry.Business.Handler()))
	}

	// The webhook is outside /api: it authenticates by signature, not
	// session, and its body must reach verification unparsed.
	e.POST("/webhooks/stripe", h.StripeWebhook)

	e.GET("/track/:orderNumber", h.TrackOrder)

	api := e.Group("/api")
	api.GET("/cart", h.GetCart)
	api.POST("/cart/items", h.AddCartItem)
	api.PATCH("/cart/items/:productID", h.UpdateCartItem)
	api.DELETE("/cart/items/:productID", h.RemoveCartItem)

	api.POST("/checkout/quote", h.QuoteCheckout)
	api.POST("/checkout/intent", h.CreateCheckoutIntent)
	api.GET("/orders/by-payment-intent/:id", h.GetOrderByPaymentIntent)

	authed := api.Group("", middleware.RequireAuth())
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:orderNumber", h.GetOrder)
	authed.POST("/returns", h.CreateReturn)
	authed.GET("/returns", h.ListReturns)

	admin := e.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/orders", h.AdminListOrders)
	admin.GET("/orders/:orderNumber", h.AdminGetOrder)
	admin.PATCH("/orders/:orderNumber/status", h.AdminUpdateOrderStatus)
	admin.PUT("/orders/:orderNumber/tracking", h.AdminSetOrderTracking)
	admin.GET("/returns", h.AdminListReturns)
	admin.PATCH("/returns/:id", h.AdminResolveReturn)
}
