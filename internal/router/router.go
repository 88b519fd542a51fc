package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
)

// RegisterRoutes wires the HTTP surface. The /v1/auth group is public
// and rate limited per client IP; everything under the protected group
// requires a valid access token.
func RegisterRoutes(e *echo.Echo, cfg config.Config, auth *handler.AuthHandler, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	pub := e.Group("/v1/auth", limiter)
	pub.POST("/register", auth.Register)
	pub.POST("/login", auth.Login)
	pub.POST("/refresh", auth.Refresh)
	pub.GET("/verify/:token", auth.VerifyEmail)
	pub.POST("/introspect", auth.Introspect)
	pub.POST("/logout", auth.Logout)

	prot := e.Group("/v1", middleware.JWTAuth(cfg.AccessPublicKey))
	prot.GET("/me", auth.Me)
	prot.POST("/logout-all", auth.LogoutAll)
}
