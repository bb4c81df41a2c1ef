package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/middleware"
	"github.com/iliyamo/warnet-bowar/internal/model"
)

// registerUser mounts the USER endpoints: bookings, DompetBowar wallets and
// chat with a venue.  Mutations pass through the rate limiter.
func registerUser(api *echo.Group, h Handlers, o Options) {
	limit := middleware.RateLimit(o.RateLimit, o.Redis, o.Log)
	user := []echo.MiddlewareFunc{middleware.JWTAuth(o.JWTSecret), middleware.RequireRole(model.RoleUser)}

	b := api.Group("/bookings", user...)
	b.GET("", h.Bookings.List)
	b.POST("", h.Bookings.Create, limit)
	b.GET("/:id", h.Bookings.Get)
	b.POST("/:id/cancel", h.Bookings.Cancel, limit)

	chat := api.Group("/chat/warnets", user...)
	chat.GET("/:warnetId", h.Chat.UserThread)
	chat.POST("/:warnetId", h.Chat.UserSend, limit)
	chat.POST("/:warnetId/read", h.Chat.UserMarkRead)

	// Listing and detail are shared with operators; the service scopes them.
	tx := api.Group("/bowar-transactions", middleware.JWTAuth(o.JWTSecret))
	tx.GET("", h.Bowar.List)
	tx.GET("/wallets", h.Bowar.Wallets, middleware.RequireRole(model.RoleUser))
	tx.GET("/:id", h.Bowar.Get)
	tx.POST("/topup", h.Bowar.Topup, middleware.RequireRole(model.RoleUser), limit)
	tx.POST("/payment", h.Bowar.Payment, middleware.RequireRole(model.RoleUser), limit)
}
