// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/warnet-bowar/internal/config"
	"github.com/iliyamo/warnet-bowar/internal/handler"
	"github.com/iliyamo/warnet-bowar/internal/middleware"
)

// Handlers groups every HTTP handler registered under /api.
type Handlers struct {
	Auth     *handler.AuthHandler
	Warnets  *handler.WarnetHandler
	Bookings *handler.BookingHandler
	Bowar    *handler.BowarHandler
	Chat     *handler.ChatHandler
}

// Options carries what the route middleware needs.  A nil Redis client
// turns the response cache and rate limiter into pass-throughs.
type Options struct {
	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       *zap.Logger
	DB        handler.Pinger
}

// Register mounts the health check and every /api route.
func Register(e *echo.Echo, h Handlers, o Options) {
	e.GET("/healthz", handler.Health(o.DB))

	api := e.Group("/api")
	registerAuth(api, h.Auth, o)
	registerPublic(api, h.Warnets, o)
	registerUser(api, h, o)
	registerOperator(api, h, o)
}

// registerAuth exposes the token endpoints; only /api/me needs a valid
// access token.  Logout accepts either a refresh token or a bearer.
func registerAuth(api *echo.Group, a *handler.AuthHandler, o Options) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	api.GET("/me", a.Me, middleware.JWTAuth(o.JWTSecret))
}

// registerPublic serves the warnet catalogue to guests, cached in Redis.
func registerPublic(api *echo.Group, w *handler.WarnetHandler, o Options) {
	g := api.Group("/warnets", middleware.ResponseCache(o.Cache, o.Redis))
	g.GET("", w.List)
	g.GET("/:id", w.Detail)
	g.GET("/:id/rules", w.Rules)
}
