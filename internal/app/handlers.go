package app

import (
	"github.com/wavenote/wavenote-backend/internal/handlers"
	"github.com/wavenote/wavenote-backend/internal/logger"
)

type Handlers struct {
	Webhook *handlers.WebhookHandler
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Webhook: handlers.NewWebhookHandler(log, serviceset.WebhookVerifier, serviceset.Reconciler),
		Auth:    handlers.NewAuthHandler(log, serviceset.Session, serviceset.User, serviceset.Reconciler),
		User:    handlers.NewUserHandler(serviceset.User),
	}
}
