package app

import (
	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/originpolicy"
	"github.com/wavenote/wavenote-backend/internal/utils"
)

type Config struct {
	Environment      string
	Port             string
	WebhookSecret    string
	SessionJWKSURL   string
	SessionJWTSecret string
	SessionIssuer    string
	Policy           originpolicy.Policy
}

func LoadConfig(log *logger.Logger) Config {
	environment := utils.GetEnv("APP_ENV", "development", log)

	policy := originpolicy.Policy{
		Environment: environment,
		AllowedOrigins: utils.GetEnvAsList("ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5174",
		}, log),
		PublicRoutes: utils.GetEnvAsList("PUBLIC_ROUTES", []string{
			"/healthcheck",
			"/api/webhooks/*",
			"/api/auth/me",
		}, log),
		StudioPrefixes: utils.GetEnvAsList("STUDIO_PREFIXES", []string{
			"/api/studio",
		}, log),
	}
	if policyFile := utils.GetEnv("ORIGIN_POLICY_FILE", "", log); policyFile != "" {
		merged, err := originpolicy.LoadFile(policyFile, policy)
		if err != nil {
			log.Warn("Origin policy file unusable, keeping env-derived policy", "path", policyFile, "error", err)
		} else {
			policy = merged
		}
	}

	webhookSecret := utils.GetEnv("IDENTITY_WEBHOOK_SECRET", "", log)
	if webhookSecret == "" {
		log.Warn("IDENTITY_WEBHOOK_SECRET is not set, webhook verification will use a dev-only secret")
		webhookSecret = "dev-only-webhook-secret"
	}

	return Config{
		Environment:      environment,
		Port:             utils.GetEnv("PORT", "8080", log),
		WebhookSecret:    webhookSecret,
		SessionJWKSURL:   utils.GetEnv("SESSION_JWKS_URL", "", log),
		SessionJWTSecret: utils.GetEnv("SESSION_JWT_SECRET", "", log),
		SessionIssuer:    utils.GetEnv("SESSION_ISSUER", "", log),
		Policy:           policy,
	}
}
