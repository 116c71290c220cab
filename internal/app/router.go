package app

import (
	"github.com/gin-gonic/gin"

	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/server"
)

func wireRouter(serviceName string, log *logger.Logger, handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:    serviceName,
		Log:            log,
		OriginPolicy:   middlewareset.OriginPolicy,
		WebhookHandler: handlerset.Webhook,
		AuthHandler:    handlerset.Auth,
		UserHandler:    handlerset.User,
	})
}
