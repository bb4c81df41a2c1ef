package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/middleware"
	"github.com/iliyamo/warnet-bowar/internal/model"
)

// registerOperator mounts the OPERATOR endpoints.  RequireRole also
// rejects operator tokens without an assigned warnet; every handler is
// scoped to that warnet.
func registerOperator(api *echo.Group, h Handlers, o Options) {
	limit := middleware.RateLimit(o.RateLimit, o.Redis, o.Log)
	operator := []echo.MiddlewareFunc{middleware.JWTAuth(o.JWTSecret), middleware.RequireRole(model.RoleOperator)}

	b := api.Group("/operator/bookings", operator...)
	b.GET("", h.Bookings.ListForOperator)
	b.GET("/pending", h.Bookings.PendingForOperator)
	b.POST("/:id/approve", h.Bookings.Approve)
	b.POST("/:id/reject", h.Bookings.Reject)
	b.POST("/:id/complete", h.Bookings.Complete)

	tx := api.Group("/bowar-transactions", operator...)
	tx.POST("/refund", h.Bowar.Refund, limit)
	tx.POST("/:id/approve", h.Bowar.Approve)
	tx.POST("/:id/reject", h.Bowar.Reject)

	chat := api.Group("/chat/operator", operator...)
	chat.GET("/conversations", h.Chat.Conversations)
	chat.GET("/users/:userId", h.Chat.OperatorThread)
	chat.POST("/users/:userId", h.Chat.OperatorSend, limit)
	chat.POST("/users/:userId/read", h.Chat.OperatorMarkRead)
}
