package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/originpolicy"
	"github.com/wavenote/wavenote-backend/internal/requestdata"
	"github.com/wavenote/wavenote-backend/internal/services"
)

const (
	allowMethods    = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	allowHeaders    = "Authorization, Content-Type, X-Requested-With, svix-id, svix-timestamp, svix-signature"
	preflightMaxAge = "86400"
)

type OriginPolicyMiddleware struct {
	log            *logger.Logger
	policy         *originpolicy.Policy
	sessionService services.SessionService
}

func NewOriginPolicyMiddleware(log *logger.Logger, policy *originpolicy.Policy, sessionService services.SessionService) *OriginPolicyMiddleware {
	middlewareLogger := log.With("middleware", "OriginPolicyMiddleware")
	return &OriginPolicyMiddleware{log: middlewareLogger, policy: policy, sessionService: sessionService}
}

// Guard runs before every handler: CORS headers on every response (errors
// included, or browsers cannot read the error body), preflight
// short-circuit, then default-deny route classification.
func (om *OriginPolicyMiddleware) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin, matched := om.policy.ResolveOrigin(c.GetHeader("Origin"))
		if !matched && c.GetHeader("Origin") != "" {
			om.log.Debug("Unrecognized origin, granting default", "origin", c.GetHeader("Origin"))
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Max-Age", preflightMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if om.policy.RouteClassOf(c.Request.URL.Path) == originpolicy.RoutePublic {
			c.Next()
			return
		}

		principal, err := om.sessionService.PrincipalFromRequest(c.Request.Context(), c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
			SubjectID: principal.SubjectID,
			Email:     principal.Email,
			Name:      principal.Name,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
