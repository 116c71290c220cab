package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/services"
)

type Services struct {
	WebhookVerifier services.WebhookVerifier
	Session         services.SessionService
	Reconciler      services.ReconcilerService
	User            services.UserService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	verifier, err := services.NewWebhookVerifier(log, cfg.WebhookSecret)
	if err != nil {
		return Services{}, fmt.Errorf("init webhook verifier: %w", err)
	}

	session := services.NewSessionService(log, cfg.SessionJWKSURL, cfg.SessionJWTSecret, cfg.SessionIssuer, nil)

	return Services{
		WebhookVerifier: verifier,
		Session:         session,
		Reconciler:      services.NewReconcilerService(db, log, reposet.User),
		User:            services.NewUserService(db, log, reposet.User),
	}, nil
}
