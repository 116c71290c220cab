package app

import (
	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/middleware"
	"github.com/wavenote/wavenote-backend/internal/originpolicy"
)

type Middleware struct {
	OriginPolicy *middleware.OriginPolicyMiddleware
}

func wireMiddleware(log *logger.Logger, policy *originpolicy.Policy, serviceset Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		OriginPolicy: middleware.NewOriginPolicyMiddleware(log, policy, serviceset.Session),
	}
}
