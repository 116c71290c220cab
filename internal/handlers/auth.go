package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavenote/wavenote-backend/internal/apierr"
	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/requestdata"
	"github.com/wavenote/wavenote-backend/internal/services"
)

type AuthHandler struct {
	log            *logger.Logger
	sessionService services.SessionService
	userService    services.UserService
	reconciler     services.ReconcilerService
}

func NewAuthHandler(log *logger.Logger, sessionService services.SessionService, userService services.UserService, reconciler services.ReconcilerService) *AuthHandler {
	handlerLog := log.With("handler", "AuthHandler")
	return &AuthHandler{log: handlerLog, sessionService: sessionService, userService: userService, reconciler: reconciler}
}

// Me reports the current principal. Deliberately never 401: "not
// authenticated" is a successfully determined state, not an error.
func (ah *AuthHandler) Me(c *gin.Context) {
	principal, err := ah.sessionService.PrincipalFromRequest(c.Request.Context(), c.Request)
	if err != nil {
		RespondOK(c, gin.H{"authenticated": false, "user": nil})
		return
	}

	user, err := ah.userService.GetBySubject(c.Request.Context(), principal.SubjectID)
	if err != nil {
		ah.log.Error("User lookup failed", "subject_id", principal.SubjectID, "error", err)
		RespondError(c, apierr.New(http.StatusInternalServerError, "store_unavailable", err), "internal error")
		return
	}
	if user == nil {
		// Exists in the provider, not yet in the store: eventual consistency,
		// the webhook closes this gap.
		RespondOK(c, gin.H{
			"authenticated": true,
			"user":          nil,
			"provisioned":   false,
			"message":       "user not yet provisioned",
		})
		return
	}
	RespondOK(c, gin.H{"authenticated": true, "user": user, "provisioned": true})
}

// Sync is the client-driven fallback for when the async webhook path has not
// run yet. Protected route: the guard has already resolved the principal.
func (ah *AuthHandler) Sync(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.SubjectID == "" {
		RespondError(c, apierr.New(http.StatusUnauthorized, "unauthenticated", services.ErrUnauthenticated), "authentication required")
		return
	}

	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	// Body is optional; the principal's claims are the fallback.
	_ = c.ShouldBindJSON(&req)
	email := req.Email
	if email == "" {
		email = rd.Email
	}
	name := req.Name
	if name == "" {
		name = rd.Name
	}

	result, err := ah.reconciler.ReconcileFromPrincipal(c.Request.Context(), rd.SubjectID, email, name)
	if err != nil {
		ah.log.Error("Manual sync failed", "subject_id", rd.SubjectID, "error", err)
		RespondError(c, apierr.New(http.StatusInternalServerError, "reconciliation_failed", err), "failed to sync user")
		return
	}

	RespondOK(c, gin.H{
		"success": true,
		"user": gin.H{
			"id":    result.User.ID,
			"email": result.User.Email,
			"name":  result.User.Name,
		},
		"message": fmt.Sprintf("user %s", result.Outcome),
	})
}
