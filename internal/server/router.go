package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/wavenote/wavenote-backend/internal/handlers"
	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName    string
	Log            *logger.Logger
	OriginPolicy   *middleware.OriginPolicyMiddleware
	WebhookHandler *handlers.WebhookHandler
	AuthHandler    *handlers.AuthHandler
	UserHandler    *handlers.UserHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.AttachTraceContext())
	router.Use(middleware.RequestLogger(cfg.Log))

	// Every request passes the origin policy guard before handler dispatch;
	// route classification (public vs protected) lives in the policy, not
	// in the route table.
	router.Use(cfg.OriginPolicy.Guard())

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/webhooks/identity", cfg.WebhookHandler.HandleIdentityEvent)
		api.GET("/auth/me", cfg.AuthHandler.Me)
		api.POST("/auth/sync", cfg.AuthHandler.Sync)
		api.GET("/user", cfg.UserHandler.GetMe)
	}

	return router
}
